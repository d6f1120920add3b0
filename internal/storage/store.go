package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/suPer8Hu/brands-digger/internal/chat"
)

// ErrNotFound is returned by a Backend when nothing is stored under the key.
var ErrNotFound = errors.New("storage: record not found")

// Backend is a key-value store holding opaque serialized records.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Close() error
}

// Store persists the whole chat session. It never reports failures: reads
// degrade to an empty session and writes are best-effort.
type Store interface {
	Load(ctx context.Context) ([]chat.Chat, *string)
	Save(ctx context.Context, chats []chat.Chat, activeChat *string)
}

// record is the persisted shape: {"chats": [...], "activeChat": "<id>"|null}.
type record struct {
	Chats      []chat.Chat `json:"chats"`
	ActiveChat *string     `json:"activeChat"`
}

type Adapter struct {
	backend Backend
	key     string
	log     zerolog.Logger
}

func NewAdapter(backend Backend, key string, logger zerolog.Logger) *Adapter {
	return &Adapter{
		backend: backend,
		key:     key,
		log:     logger.With().Str("component", "storage").Str("key", key).Logger(),
	}
}

func (a *Adapter) Load(ctx context.Context) ([]chat.Chat, *string) {
	raw, err := a.backend.Read(ctx, a.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			a.log.Error().Err(err).Msg("error reading chats")
		}
		return []chat.Chat{}, nil
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		a.log.Error().Err(err).Msg("error parsing stored chats")
		return []chat.Chat{}, nil
	}

	chats := rec.Chats
	if chats == nil {
		chats = []chat.Chat{}
	}
	active := rec.ActiveChat
	if active != nil && *active == "" {
		active = nil
	}
	return chats, active
}

func (a *Adapter) Save(ctx context.Context, chats []chat.Chat, activeChat *string) {
	if chats == nil {
		chats = []chat.Chat{}
	}
	b, err := json.Marshal(record{Chats: chats, ActiveChat: activeChat})
	if err != nil {
		a.log.Error().Err(err).Msg("error encoding chats")
		return
	}
	if err := a.backend.Write(ctx, a.key, b); err != nil {
		a.log.Error().Err(err).Int("chats", len(chats)).Msg("error saving chats")
	}
}

func (a *Adapter) Close() error {
	return a.backend.Close()
}
