package fnsku

import (
	"encoding/json"
	"fmt"
	"math"
)

// ConfidenceBand is a discretized confidence level. Bands are ordered, so
// they can be compared with < and >.
type ConfidenceBand int

const (
	ConfidenceNone ConfidenceBand = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
	ConfidenceVeryHigh
)

var bandNames = [...]string{"none", "low", "medium", "high", "very_high"}

// representative values used when a band has to be shown as a number
var bandValues = [...]float64{0.0, 0.3, 0.55, 0.8, 0.95}

// BandFromScore maps a score in [0,1] to its band. Scores outside the
// range are clamped.
func BandFromScore(score float64) ConfidenceBand {
	switch {
	case math.IsNaN(score) || score < 0.2:
		return ConfidenceNone
	case score < 0.4:
		return ConfidenceLow
	case score < 0.7:
		return ConfidenceMedium
	case score < 0.9:
		return ConfidenceHigh
	default:
		return ConfidenceVeryHigh
	}
}

// Representative returns the display value of the band. It is not the
// score the band was derived from.
func (b ConfidenceBand) Representative() float64 {
	if !b.valid() {
		return 0
	}
	return bandValues[b]
}

func (b ConfidenceBand) String() string {
	if !b.valid() {
		return fmt.Sprintf("ConfidenceBand(%d)", int(b))
	}
	return bandNames[b]
}

func (b ConfidenceBand) valid() bool {
	return b >= ConfidenceNone && b <= ConfidenceVeryHigh
}

// ParseConfidenceBand parses the lowercase band name.
func ParseConfidenceBand(s string) (ConfidenceBand, error) {
	for i, name := range bandNames {
		if name == s {
			return ConfidenceBand(i), nil
		}
	}
	return ConfidenceNone, fmt.Errorf("unknown confidence band %q", s)
}

func (b ConfidenceBand) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

func (b *ConfidenceBand) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseConfidenceBand(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// scoreToPercent converts a [0,1] score to the persisted 0-100 integer.
func scoreToPercent(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	return int(math.Round(math.Max(0, math.Min(1, score)) * 100))
}

func percentToScore(percent int) float64 {
	return float64(max(0, min(100, percent))) / 100
}
