// Package internal provides small helpers for the llm package that are not
// part of the public extraction API.
package internal

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
)

// CountTokens estimates the number of GPT-4o tokens in a string. The OpenAI
// adapter uses this to log prompt size before sending a request.
func CountTokens(text string) (int, error) {
	enc, err := tokenizer.ForModel(tokenizer.GPT4o)
	if err != nil {
		return 0, fmt.Errorf("failed to get tokenizer: %w", err)
	}

	ids, _, err := enc.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to encode string: %w", err)
	}

	return len(ids), nil
}
