package entity

// Category is the safety classifier's classification of a URL.
type Category string

const (
	CategorySafe          Category = "safe"
	CategorySuspicious    Category = "suspicious"
	CategoryMalicious     Category = "malicious"
	CategoryInappropriate Category = "inappropriate"
	CategoryUnknown       Category = "unknown"
)

// Verdict is the safety classifier's assessment of a candidate URL.
type Verdict struct {
	IsSafe     bool
	Flagged    bool
	Reason     *string
	Category   Category
	Confidence float64
}

// UnknownVerdict is used whenever no usable assessment is available.
func UnknownVerdict() Verdict {
	return Verdict{
		IsSafe:     true,
		Flagged:    false,
		Category:   CategoryUnknown,
		Confidence: 0,
	}
}
