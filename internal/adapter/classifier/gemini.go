// Package classifier grades URLs with the Gemini text generation API.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/safe-shortener/internal/entity"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel    = "gemini-1.5-flash"
	DefaultTimeout  = 10 * time.Second

	// maxReplySize bounds how much of a reply is read.
	maxReplySize = 1 << 20
)

var (
	ErrNoVerdict      = errors.New("reply contains no json object")
	ErrInvalidVerdict = errors.New("reply does not match the verdict shape")
)

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

const promptTemplate = `
Analyze this URL for safety concerns: "%s"

Consider the following aspects:
1. Is it a known phishing site?
2. Does it contain malware or suspicious redirects?
3. Is it associated with scams or fraud?
4. Does it contain inappropriate content (adult, violence, etc.)?
5. Is the domain suspicious or newly registered?

Respond in JSON format with the following structure:
{
  "isSafe": boolean,
  "flagged": boolean,
  "reason": string or null,
  "category": "safe" | "suspicious" | "malicious" | "inappropriate" | "unknown",
  "confidence": number between 0 and 1
}

Only respond with the JSON object, no additional text.
`

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// verdictReply mirrors the JSON object the model is asked for. Pointers tell a
// missing field apart from its zero value.
type verdictReply struct {
	IsSafe     *bool    `json:"isSafe" validate:"required"`
	Flagged    *bool    `json:"flagged" validate:"required"`
	Reason     *string  `json:"reason"`
	Category   *string  `json:"category" validate:"required,oneof=safe suspicious malicious inappropriate unknown"`
	Confidence *float64 `json:"confidence" validate:"required,gte=0,lte=1"`
}

type Option func(*Client)

func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = strings.TrimRight(endpoint, "/")
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// Client is a Gemini backed safety classifier. A client without an API key
// answers every request with entity.UnknownVerdict.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
	validate   *validator.Validate
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   DefaultEndpoint,
		model:      DefaultModel,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		validate:   validator.New(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) Classify(ctx context.Context, rawURL string) (entity.Verdict, error) {
	const op = "adapter.classifier.Client.Classify"

	if c.apiKey == "" {
		return entity.UnknownVerdict(), nil
	}

	text, err := c.generate(ctx, fmt.Sprintf(promptTemplate, rawURL))
	if err != nil {
		return entity.Verdict{}, fmt.Errorf("%s: %w", op, err)
	}

	verdict, err := c.parseVerdict(text)
	if err != nil {
		return entity.Verdict{}, fmt.Errorf("%s: %w", op, err)
	}

	return verdict, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, url.PathEscape(c.model))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("model responded with status %d", resp.StatusCode)
	}

	var gr generateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplySize)).Decode(&gr); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(gr.Candidates) == 0 {
		return "", ErrNoVerdict
	}

	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}

	return sb.String(), nil
}

func (c *Client) parseVerdict(text string) (entity.Verdict, error) {
	match := jsonObjectPattern.FindString(text)
	if match == "" {
		return entity.Verdict{}, ErrNoVerdict
	}

	var reply verdictReply
	if err := json.Unmarshal([]byte(match), &reply); err != nil {
		return entity.Verdict{}, fmt.Errorf("%w: %w", ErrInvalidVerdict, err)
	}

	if err := c.validate.Struct(reply); err != nil {
		return entity.Verdict{}, fmt.Errorf("%w: %w", ErrInvalidVerdict, err)
	}

	return entity.Verdict{
		IsSafe:     *reply.IsSafe,
		Flagged:    *reply.Flagged,
		Reason:     reply.Reason,
		Category:   entity.Category(*reply.Category),
		Confidence: *reply.Confidence,
	}, nil
}
