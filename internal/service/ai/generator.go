// Package ai generates product copy and artwork for the catalog.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/twocards/backoffice/internal/apperr"
)

// DescriptionRequest asks for a product description.
type DescriptionRequest struct {
	NameAR string `json:"name_ar"`
	Hints  string `json:"hints,omitempty"`
	Tone   Tone   `json:"tone,omitempty"`
}

// Validate checks the request before any provider call.
func (r DescriptionRequest) Validate() error {
	if strings.TrimSpace(r.NameAR) == "" {
		return apperr.Invalid("name_ar is required")
	}
	if r.Tone != "" && !r.Tone.Valid() {
		return apperr.Invalid(fmt.Sprintf("unknown tone %q", r.Tone))
	}
	return nil
}

// Generator is implemented by every AI provider.
type Generator interface {
	// Describe returns a complete description.
	Describe(ctx context.Context, req DescriptionRequest) (string, error)
	// StreamDescribe calls onChunk for each piece of the description as it
	// is produced. An error from onChunk stops the stream.
	StreamDescribe(ctx context.Context, req DescriptionRequest, onChunk func(string) error) error
	// Image returns the URL of a generated product image.
	Image(ctx context.Context, prompt string) (string, error)
}
