package query

import (
	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the tiktoken encoding used by current OpenAI chat models.
const DefaultEncoding = "cl100k_base"

// TokenCounter returns the number of model tokens in text.
type TokenCounter func(text string) int

// NewTiktokenCounter returns a counter backed by the named tiktoken encoding.
// Loading an encoding may download its ranks file on first use.
func NewTiktokenCounter(encoding string) (TokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return func(text string) int {
		return len(enc.Encode(text, nil, nil))
	}, nil
}
