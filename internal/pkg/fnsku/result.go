package fnsku

import "time"

const (
	MethodDirectAPI       = "direct_api"
	MethodPatternMatching = "pattern_matching"
	MethodFailed          = "failed"
)

// ConversionResult is the outcome of one conversion attempt. A nil ASIN
// means the conversion failed.
type ConversionResult struct {
	FNSKU            string         `json:"fnsku"`
	ASIN             *string        `json:"asin"`
	Confidence       ConfidenceBand `json:"confidence"`
	ConfidenceScore  float64        `json:"confidence_score"`
	Method           string         `json:"method"`
	Success          bool           `json:"success"`
	Cached           bool           `json:"cached"`
	CacheAgeHours    *float64       `json:"cache_age_hours,omitempty"`
	ConversionTimeMs float64        `json:"conversion_time_ms"`
	Details          map[string]any `json:"details"`
	Error            string         `json:"error,omitempty"`
}

func newSuccess(fnsku, asin string, score float64, method string, details map[string]any) *ConversionResult {
	return &ConversionResult{
		FNSKU:           fnsku,
		ASIN:            &asin,
		Confidence:      BandFromScore(score),
		ConfidenceScore: score,
		Method:          method,
		Success:         true,
		Details:         details,
	}
}

func newFailure(fnsku, message string, details map[string]any) *ConversionResult {
	if details == nil {
		details = map[string]any{}
	}
	return &ConversionResult{
		FNSKU:      fnsku,
		Confidence: ConfidenceNone,
		Method:     MethodFailed,
		Details:    details,
		Error:      message,
	}
}

// ASINValue returns the ASIN or "" on failure.
func (r *ConversionResult) ASINValue() string {
	if r == nil || r.ASIN == nil {
		return ""
	}
	return *r.ASIN
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
