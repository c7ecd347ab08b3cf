package llm

import "strings"

// EstimateTokens approximates the token count of English text at about
// 1.33 tokens per word. Non-empty text counts as at least one token.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		if text == "" {
			return 0
		}
		return 1
	}
	return max(int(float64(words)*1.33), 1)
}
