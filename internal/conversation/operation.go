package conversation

import (
	"fmt"
	"strings"

	"github.com/suPer8Hu/brands-digger/internal/chat"
)

type Kind string

const (
	KindSend        Kind = "send"
	KindSuggestMore Kind = "suggest_more"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	// StatusDiscarded means the chat was deleted before the reply arrived.
	StatusDiscarded Status = "discarded"
)

const (
	ReplyNames       = "Here are some available domain names for your business:"
	ReplyNoNames     = "Sorry, I couldn't find any available domain names at the moment."
	ReplyMoreNames   = "Here are more available domain names:"
	ReplyNoMoreNames = "Sorry, I couldn't find more available domain names at the moment."
	ReplyFailure     = "Sorry, something went wrong. Please try again."

	BannerSendFailed    = "Failed to fetch domain names. Please try again."
	BannerSuggestFailed = "Failed to fetch more names. Please try again."
)

const (
	MaxPromptLength      = 500
	maxTrackedOperations = 256
)

// Operation is one Send or Suggest More round trip, tagged with the chat it
// was launched from.
type Operation struct {
	ID               string        `json:"id"`
	ChatID           string        `json:"chat_id"`
	Kind             Kind          `json:"kind"`
	Status           Status        `json:"status"`
	Prompt           string        `json:"prompt"`
	UserMessage      chat.Message  `json:"user_message"`
	AssistantMessage *chat.Message `json:"assistant_message,omitempty"`
	// Banner is the transient error shown to the user; it is never stored in the chat.
	Banner     string `json:"banner,omitempty"`
	Error      string `json:"error,omitempty"`
	StartedAt  int64  `json:"started_at"`
	FinishedAt int64  `json:"finished_at,omitempty"`
}

func (o Operation) Done() bool {
	return o.Status != StatusRunning
}

// Result is a finished operation plus the chat it was applied to. Chat is
// the zero value when the operation was discarded.
type Result struct {
	Operation Operation `json:"operation"`
	Chat      chat.Chat `json:"chat"`
}

func (r *Result) Discarded() bool {
	return r.Operation.Status == StatusDiscarded
}

// SuggestMoreContext is the prompt sent for Suggest More: the first
// prompt followed by the names already offered.
func SuggestMoreContext(prompt string, previous []string) string {
	return fmt.Sprintf("%s\n\nYou previously suggested these names: %s. Please suggest different available domain names.",
		prompt, strings.Join(previous, ", "))
}

func replyFor(kind Kind, found bool) string {
	switch {
	case kind == KindSuggestMore && found:
		return ReplyMoreNames
	case kind == KindSuggestMore:
		return ReplyNoMoreNames
	case found:
		return ReplyNames
	default:
		return ReplyNoNames
	}
}

func bannerFor(kind Kind) string {
	if kind == KindSuggestMore {
		return BannerSuggestFailed
	}
	return BannerSendFailed
}
