package tsne

import "errors"

// Common errors.
var (
	ErrInvalidConfig      = errors.New("invalid t-SNE configuration")
	ErrPerplexityTooLarge = errors.New("perplexity too large for the number of data points")
	ErrShapeMismatch      = errors.New("buffer size does not match shape")
)
