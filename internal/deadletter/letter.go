package deadletter

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Letter is the result of an operation whose chat was deleted before the
// result arrived.
type Letter struct {
	OperationID string    `json:"operation_id"`
	ChatID      string    `json:"chat_id"`
	Kind        string    `json:"kind"`
	Prompt      string    `json:"prompt"`
	Names       []string  `json:"names,omitempty"`
	Error       string    `json:"error,omitempty"`
	DiscardedAt time.Time `json:"discarded_at"`
}

type Sink interface {
	Record(ctx context.Context, l Letter) error
}

// LogSink writes letters to the log only.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Record(ctx context.Context, l Letter) error {
	s.Log.Warn().
		Str("operation_id", l.OperationID).
		Str("chat_id", l.ChatID).
		Str("kind", l.Kind).
		Strs("names", l.Names).
		Str("error", l.Error).
		Msg("discarded result for deleted chat")
	return nil
}

// Multi fans a letter out to every sink and returns the first error.
type Multi []Sink

func (m Multi) Record(ctx context.Context, l Letter) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, l); err != nil && first == nil {
			first = err
		}
	}
	return first
}
