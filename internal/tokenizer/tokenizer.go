// Package tokenizer loads HuggingFace tokenizer.json files through the
// tokenizers Rust bindings. It is the only package that links libtokenizers.
package tokenizer

import (
	"fmt"

	"github.com/daulet/tokenizers"

	"github.com/Brownie44l1/zeroshot-api/internal/model"
)

// FromFile loads the tokenizer at path. The caller owns the result and must
// Close it.
func FromFile(path string) (model.Tokenizer, error) {
	tk, err := tokenizers.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer %s: %w", path, err)
	}
	return tk, nil
}
