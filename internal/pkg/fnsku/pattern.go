package fnsku

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2/log"

	"github.com/702ron/product-api-site-sub000/app/models"
)

// Heuristic weights. These are placeholders, not measured accuracies.
const (
	similarPrefixConfidence    = 0.8
	asinFormatConfidence       = 0.4
	charSubstitutionConfidence = 0.4

	similarPrefixLength = 6
)

var ocrReplacer = strings.NewReplacer("O", "0", "I", "1")

// SimilarFinder finds the best known conversion of an FNSKU sharing a prefix
// with fnsku. It returns nil when there is none.
type SimilarFinder interface {
	FindSimilar(ctx context.Context, fnsku string, prefixLen int) (*models.ConversionCacheEntry, error)
}

// PatternStrategy derives an ASIN from the FNSKU itself or from previously
// converted FNSKUs. Sub-strategies run in order and the first hit wins:
// similar_prefix, asin_format, char_substitution.
type PatternStrategy struct {
	similar SimilarFinder
}

func NewPatternStrategy(similar SimilarFinder) *PatternStrategy {
	return &PatternStrategy{similar: similar}
}

func (s *PatternStrategy) Name() string {
	return MethodPatternMatching
}

func (s *PatternStrategy) Attempt(ctx context.Context, fnsku, marketplace string) (Candidate, error) {
	if c, ok := s.similarPrefix(ctx, fnsku); ok {
		return c, nil
	}
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}

	if IsASIN(fnsku) {
		return Candidate{
			ASIN:       fnsku,
			Confidence: asinFormatConfidence,
			Details:    map[string]any{"sub_method": "asin_format"},
		}, nil
	}

	if transformed := ocrReplacer.Replace(fnsku); transformed != fnsku {
		candidate := transformed
		if !IsASIN(candidate) {
			candidate = leadingB(transformed)
		}
		if IsASIN(candidate) {
			return Candidate{
				ASIN:       candidate,
				Confidence: charSubstitutionConfidence,
				Details: map[string]any{
					"sub_method":  "char_substitution",
					"transformed": transformed,
				},
			}, nil
		}
	}

	return Candidate{}, nil
}

func (s *PatternStrategy) similarPrefix(ctx context.Context, fnsku string) (Candidate, bool) {
	if s.similar == nil || len(fnsku) < similarPrefixLength {
		return Candidate{}, false
	}
	match, err := s.similar.FindSimilar(ctx, fnsku, similarPrefixLength)
	if err != nil {
		log.Warnf("[PatternStrategy] Similar prefix lookup for %s failed: %v", fnsku, err)
		return Candidate{}, false
	}
	if match == nil || !match.HasASIN() {
		return Candidate{}, false
	}

	candidate := leadingB(fnsku)
	if !IsASIN(candidate) {
		return Candidate{}, false
	}
	return Candidate{
		ASIN:       candidate,
		Confidence: similarPrefixConfidence,
		Details: map[string]any{
			"sub_method":         "similar_prefix",
			"prefix":             fnsku[:similarPrefixLength],
			"matched_fnsku":      match.FNSKU,
			"matched_asin":       *match.ASIN,
			"matched_confidence": match.ConfidenceScore,
		},
	}, true
}

// leadingB swaps the first character for 'B', keeping positions 2-10.
func leadingB(s string) string {
	if s == "" {
		return s
	}
	return "B" + s[1:]
}
