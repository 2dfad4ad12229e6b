package fnsku

import (
	"context"
	"errors"

	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
)

const directConfidence = 0.95

// Resolver resolves an FNSKU to an ASIN through an external provider.
type Resolver interface {
	ResolveFNSKU(ctx context.Context, fnsku, marketplace string) (string, error)
}

// DirectLookupStrategy asks the product provider to resolve the FNSKU.
type DirectLookupStrategy struct {
	resolver Resolver
}

func NewDirectLookupStrategy(resolver Resolver) *DirectLookupStrategy {
	return &DirectLookupStrategy{resolver: resolver}
}

func (s *DirectLookupStrategy) Name() string {
	return MethodDirectAPI
}

func (s *DirectLookupStrategy) Attempt(ctx context.Context, fnsku, marketplace string) (Candidate, error) {
	asin, err := s.resolver.ResolveFNSKU(ctx, fnsku, marketplace)
	if err != nil {
		if errors.Is(err, amazon.ErrNotFound) {
			return Candidate{}, nil
		}
		return Candidate{}, err
	}
	if !IsASIN(asin) {
		return Candidate{}, nil
	}
	return Candidate{
		ASIN:       asin,
		Confidence: directConfidence,
		Details: map[string]any{
			"sub_method": "provider_lookup",
			"source":     "product_api",
		},
	}, nil
}
