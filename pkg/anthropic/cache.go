package anthropic

// CachedSystem returns a single system block marked for prompt caching. The
// discovery and qualification system prompts repeat across every call in a
// session, so they are sent with a 5 minute cache breakpoint.
func CachedSystem(text string) []SystemBlock {
	if text == "" {
		return nil
	}
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: "5m"}}}
}

// UserPrompt builds a request with one user message.
func UserPrompt(model string, maxTokens int64, system, prompt string) MessageRequest {
	return MessageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    CachedSystem(system),
		Messages:  []Message{{Role: "user", Content: prompt}},
	}
}
