package core

import "errors"

var (
	// ErrModelUnavailable is returned when no embedding model in the fallback chain could be loaded
	ErrModelUnavailable = errors.New("no embedding model could be loaded")
	// ErrEncodingFailed is returned when a text could not be encoded even after the truncated retry
	ErrEncodingFailed = errors.New("failed to encode text")
	// ErrCategoryLoadFailed is returned when no categories are available for classification
	ErrCategoryLoadFailed = errors.New("failed to load categories")
	// ErrDimensionMismatch is returned when two vectors of different length are compared
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrCacheMiss is returned by embedding caches when a key is absent or expired
	ErrCacheMiss = errors.New("cache entry not found")
)
