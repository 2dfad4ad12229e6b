package fnsku

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandFromScore_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  ConfidenceBand
	}{
		{0.0, ConfidenceNone},
		{0.199, ConfidenceNone},
		{0.2, ConfidenceLow},
		{0.399, ConfidenceLow},
		{0.4, ConfidenceMedium},
		{0.699, ConfidenceMedium},
		{0.7, ConfidenceHigh},
		{0.899, ConfidenceHigh},
		{0.9, ConfidenceVeryHigh},
		{1.0, ConfidenceVeryHigh},
		{-0.5, ConfidenceNone},
		{1.5, ConfidenceVeryHigh},
	}

	for _, tt := range tests {
		if got := BandFromScore(tt.score); got != tt.want {
			t.Fatalf("BandFromScore(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestBandFromScore_Monotonic(t *testing.T) {
	prev := BandFromScore(0)
	for i := 1; i <= 1000; i++ {
		band := BandFromScore(float64(i) / 1000)
		if band < prev {
			t.Fatalf("band decreased at %v: %s < %s", float64(i)/1000, band, prev)
		}
		prev = band
	}
}

func TestRepresentativeRoundTrip(t *testing.T) {
	for b := ConfidenceNone; b <= ConfidenceVeryHigh; b++ {
		assert.Equal(t, b, BandFromScore(b.Representative()), "band %s", b)
	}
	assert.Equal(t, 0.55, ConfidenceMedium.Representative())
}

func TestConfidenceBandJSON(t *testing.T) {
	raw, err := json.Marshal(ConfidenceVeryHigh)
	require.NoError(t, err)
	assert.Equal(t, `"very_high"`, string(raw))

	var b ConfidenceBand
	require.NoError(t, json.Unmarshal([]byte(`"medium"`), &b))
	assert.Equal(t, ConfidenceMedium, b)

	assert.Error(t, json.Unmarshal([]byte(`"certain"`), &b))
}

func TestScorePercentConversion(t *testing.T) {
	assert.Equal(t, 95, scoreToPercent(0.95))
	assert.Equal(t, 80, scoreToPercent(0.804))
	assert.Equal(t, 100, scoreToPercent(3))
	assert.Equal(t, 0, scoreToPercent(-1))
	assert.Equal(t, 0.8, percentToScore(80))
}
