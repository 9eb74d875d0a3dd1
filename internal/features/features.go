// Package features turns raw text into fixed-width numeric vectors that can be
// embedded with t-SNE.
//
// Text is tokenized with a tiktoken BPE encoding and the token IDs are hashed
// into a bag-of-tokens count vector, log-scaled and L2-normalized.
package features

import (
	"fmt"
	"math"

	"github.com/pkoukk/tiktoken-go"
	"gonum.org/v1/gonum/floats"
)

// DefaultEncoding is the BPE encoding used when none is given (GPT-4 family).
const DefaultEncoding = "cl100k_base"

// Encoder converts text to token IDs. *tiktoken.Tiktoken satisfies it.
type Encoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

// Featurizer maps text to hashed token-count vectors of a fixed width.
type Featurizer struct {
	encoder Encoder
	width   int
}

// New loads the named tiktoken encoding and returns a featurizer producing
// vectors of the given width.
func New(encoding string, width int) (*Featurizer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encoding, err)
	}
	return NewWithEncoder(enc, width)
}

// NewWithEncoder returns a featurizer over an arbitrary encoder.
func NewWithEncoder(enc Encoder, width int) (*Featurizer, error) {
	if width <= 0 {
		return nil, fmt.Errorf("feature width must be > 0, got %d", width)
	}
	return &Featurizer{encoder: enc, width: width}, nil
}

// Width returns the vector width.
func (f *Featurizer) Width() int {
	return f.width
}

// Vector writes the feature vector of text into dst, which must have Width() entries.
func (f *Featurizer) Vector(text string, dst []float64) {
	clear(dst)
	for _, tok := range f.encoder.Encode(text, nil, nil) {
		dst[bucket(tok, f.width)]++
	}
	for i, c := range dst {
		dst[i] = math.Log1p(c)
	}
	if norm := floats.Norm(dst, 2); norm > 0 {
		floats.Scale(1/norm, dst)
	}
}

// Matrix returns the row-major len(texts)×Width() feature matrix.
func (f *Featurizer) Matrix(texts []string) []float64 {
	out := make([]float64, len(texts)*f.width)
	for i, text := range texts {
		f.Vector(text, out[i*f.width:(i+1)*f.width])
	}
	return out
}

// bucket hashes a token ID into [0, width) with a multiplicative hash so that
// consecutive IDs spread across buckets.
func bucket(tok, width int) int {
	h := uint64(tok) * 0x9E3779B97F4A7C15 //nolint:gosec // G115: token IDs are non-negative.
	return int(h>>33) % width             //nolint:gosec // G115: shifted hash fits in int.
}
