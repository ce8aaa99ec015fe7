package llm

import (
	"github.com/rs/zerolog/log"
	"github.com/tiktoken-go/tokenizer"
)

// approxCharsPerToken is used when no tokenizer could be loaded.
const approxCharsPerToken = 4

// TokenBudget truncates provider input to a fixed number of tokens.
type TokenBudget struct {
	codec     tokenizer.Codec
	maxTokens int
}

// NewTokenBudget creates a budget of maxTokens using the cl100k_base encoding.
func NewTokenBudget(maxTokens int) *TokenBudget {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warn().Err(err).Msg("Tokenizer unavailable, using character budget")
		codec = nil
	}
	return &TokenBudget{codec: codec, maxTokens: maxTokens}
}

// Count returns the number of tokens in text.
func (b *TokenBudget) Count(text string) int {
	if b.codec == nil {
		return (len([]rune(text)) + approxCharsPerToken - 1) / approxCharsPerToken
	}
	ids, _, err := b.codec.Encode(text)
	if err != nil {
		return (len([]rune(text)) + approxCharsPerToken - 1) / approxCharsPerToken
	}
	return len(ids)
}

// Truncate returns text cut to at most maxTokens tokens.
func (b *TokenBudget) Truncate(text string) string {
	if b == nil || b.maxTokens <= 0 {
		return text
	}
	if b.codec != nil {
		ids, _, err := b.codec.Encode(text)
		if err == nil {
			if len(ids) <= b.maxTokens {
				return text
			}
			out, err := b.codec.Decode(ids[:b.maxTokens])
			if err == nil {
				return out
			}
		}
	}
	runes := []rune(text)
	limit := b.maxTokens * approxCharsPerToken
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
