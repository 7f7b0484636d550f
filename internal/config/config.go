package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

const defaultEnvFile = ".env"

type Config struct {
	Env               string `yaml:"env"`
	BaseURL           string `yaml:"base_url"`
	ShortCodeLength   int    `yaml:"short_code_length"`
	MaxShortenRetries int    `yaml:"max_shorten_retries"`
	HTTPServer        `yaml:"http_server"`
	Postgres          `yaml:"postgres"`
	Redis             `yaml:"redis"`
	Auth              `yaml:"auth"`
	Classifier        `yaml:"classifier"`
	RateLimit         `yaml:"rate_limit"`
}

type HTTPServer struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
	CertFile       string        `yaml:"cert_file"`
	KeyFile        string        `yaml:"key_file"`
}

var defaultHTTPServer = HTTPServer{
	Port:           8080,
	ReadTimeout:    5 * time.Second,
	WriteTimeout:   15 * time.Second,
	IdleTimeout:    time.Minute,
	MaxHeaderBytes: 1 << 20,
}

func (s *HTTPServer) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type Postgres struct {
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	DB              string        `yaml:"db"`
	SSLMode         string        `yaml:"sslmode"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	ConnectBackoff  time.Duration `yaml:"connect_backoff"`
}

var defaultPostgres = Postgres{
	Host:            "localhost",
	Port:            5432,
	SSLMode:         "disable",
	ConnMaxIdleTime: 5 * time.Minute,
	ConnMaxLifetime: 30 * time.Minute,
	MaxIdleConns:    5,
	MaxOpenConns:    25,
	ConnectAttempts: 5,
	ConnectBackoff:  2 * time.Second,
}

func (p *Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.DB, p.SSLMode)
}

// Redis configures the rate limiter store. An empty Addr disables rate limiting.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func (r *Redis) Enabled() bool {
	return r.Addr != ""
}

const maxShortCodeLength = 20

type Auth struct {
	JWTSecret      string         `yaml:"jwt_secret"`
	TokenTTL       time.Duration  `yaml:"token_ttl"`
	BcryptCost     int            `yaml:"bcrypt_cost"`
	BootstrapAdmin BootstrapAdmin `yaml:"bootstrap_admin"`
}

// BootstrapAdmin is the administrator ensured on every start. An empty Email
// disables it.
type BootstrapAdmin struct {
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

func (a *BootstrapAdmin) Enabled() bool {
	return a.Email != ""
}

var defaultAuth = Auth{
	TokenTTL:   24 * time.Hour,
	BcryptCost: 10,
}

// Classifier configures the Gemini safety check. Without an APIKey every URL
// gets an unknown verdict and nothing is sent upstream.
type Classifier struct {
	APIKey          string        `yaml:"api_key"`
	Endpoint        string        `yaml:"endpoint"`
	Model           string        `yaml:"model"`
	Timeout         time.Duration `yaml:"timeout"`
	RejectThreshold float64       `yaml:"reject_threshold"`
}

var defaultClassifier = Classifier{
	Endpoint:        "https://generativelanguage.googleapis.com/v1beta",
	Model:           "gemini-1.5-flash",
	Timeout:         10 * time.Second,
	RejectThreshold: 0.7,
}

type RateLimit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

var defaultRateLimit = RateLimit{
	Limit:  10,
	Window: time.Minute,
}

// Load reads the YAML config at path. Variables from envFiles (".env" when none
// are given) are added to the environment first, without overriding variables
// that are already set, and ${VAR} references in the file are expanded.
// Missing env files are ignored.
func Load(path string, envFiles ...string) (*Config, error) {
	const op = "config.Load"

	if len(envFiles) == 0 {
		envFiles = []string{defaultEnvFile}
	}

	for _, name := range envFiles {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: failed to load env file %q: %w", op, name, err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open config file: %w", op, err)
	}

	var cfg Config
	setDefaults(&cfg)

	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(data))))
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to decode config file: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Env {
	case EnvDev, EnvStage, EnvProd:
	default:
		return fmt.Errorf("unknown env %q", cfg.Env)
	}

	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}

	if cfg.ShortCodeLength < 1 || cfg.ShortCodeLength > maxShortCodeLength {
		return fmt.Errorf("short_code_length must be between 1 and %d, got %d", maxShortCodeLength, cfg.ShortCodeLength)
	}

	if cfg.MaxShortenRetries < 1 {
		return fmt.Errorf("max_shorten_retries must be at least 1, got %d", cfg.MaxShortenRetries)
	}

	if cfg.Classifier.RejectThreshold < 0 || cfg.Classifier.RejectThreshold > 1 {
		return fmt.Errorf("classifier.reject_threshold must be between 0 and 1, got %v", cfg.Classifier.RejectThreshold)
	}

	if admin := cfg.Auth.BootstrapAdmin; admin.Enabled() {
		if admin.Name == "" {
			return errors.New("auth.bootstrap_admin.name is required")
		}
		if len(admin.Password) < 6 || len(admin.Password) > 72 {
			return errors.New("auth.bootstrap_admin.password must be 6-72 characters")
		}
	}

	if cfg.Env == EnvProd && (cfg.HTTPServer.CertFile == "" || cfg.HTTPServer.KeyFile == "") {
		return errors.New("http_server.cert_file and http_server.key_file are required in prod")
	}

	return nil
}

func setDefaults(cfg *Config) {
	cfg.Env = EnvDev
	cfg.BaseURL = "http://localhost:8080"
	cfg.ShortCodeLength = 6
	cfg.MaxShortenRetries = 5
	cfg.HTTPServer = defaultHTTPServer
	cfg.Postgres = defaultPostgres
	cfg.Auth = defaultAuth
	cfg.Classifier = defaultClassifier
	cfg.RateLimit = defaultRateLimit
}
