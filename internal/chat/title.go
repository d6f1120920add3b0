package chat

const titleMaxLength = 30

// SuggestMoreLabel is the content stored for the user turn of a Suggest More round.
const SuggestMoreLabel = "Suggest more"

// GenerateChatTitle derives a chat title from the first user message:
// at most 30 characters, with "..." appended when the text was cut.
func GenerateChatTitle(firstMessage string) string {
	r := []rune(firstMessage)
	if len(r) <= titleMaxLength {
		return firstMessage
	}
	return string(r[:titleMaxLength]) + "..."
}

// LastPrompt returns the most recent user prompt that was typed by the user,
// skipping Suggest More turns.
func (c *Chat) LastPrompt() (string, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m.Role == RoleUser && m.Content != SuggestMoreLabel {
			return m.Content, true
		}
	}
	return "", false
}

// LastAssistantNames returns the names of the most recent assistant message
// that carried any.
func (c *Chat) LastAssistantNames() []string {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m.Role == RoleAssistant && len(m.Names) > 0 {
			return m.Names
		}
	}
	return nil
}

// CanSuggestMore reports whether the latest assistant reply offered names
// and there is a typed prompt to repeat.
func (c *Chat) CanSuggestMore() bool {
	if _, ok := c.LastPrompt(); !ok {
		return false
	}
	for i := len(c.Messages) - 1; i >= 0; i-- {
		m := c.Messages[i]
		if m.Role == RoleAssistant {
			return len(m.Names) > 0
		}
	}
	return false
}
