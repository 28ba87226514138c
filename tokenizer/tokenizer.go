// Package tokenizer estimates model token counts for history budgeting.
package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates the number of model tokens in a piece of text.
type Counter interface {
	CountTokens(text string) int
}

// Tiktoken counts tokens with a BPE encoding matching the target model.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken resolves the encoding for a model name, falling back to
// treating the name as an encoding name (e.g. "cl100k_base").
func NewTiktoken(name string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) CountTokens(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic approximates tokens as four characters each; useful when no
// encoding data is available.
type Heuristic struct{}

func (Heuristic) CountTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}
