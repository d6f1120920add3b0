package deadletter

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Entry struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OperationID string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"operation_id"`
	ChatID      string    `gorm:"type:varchar(64);index;not null" json:"chat_id"`
	Kind        string    `gorm:"type:varchar(16);not null" json:"kind"`
	Prompt      string    `gorm:"type:text;not null" json:"prompt"`
	Names       string    `gorm:"type:text" json:"names"` // JSON array
	Error       *string   `gorm:"type:text" json:"error,omitempty"`
	DiscardedAt time.Time `gorm:"index;not null" json:"discarded_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Entry) TableName() string { return "dead_letters" }

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate() error {
	return r.db.AutoMigrate(&Entry{})
}

// Insert stores a letter. Redelivered letters (same operation id) are ignored.
func (r *Repo) Insert(ctx context.Context, l Letter) error {
	names, err := json.Marshal(l.Names)
	if err != nil {
		return err
	}
	e := &Entry{
		OperationID: l.OperationID,
		ChatID:      l.ChatID,
		Kind:        l.Kind,
		Prompt:      l.Prompt,
		Names:       string(names),
		DiscardedAt: l.DiscardedAt,
	}
	if l.Error != "" {
		msg := l.Error
		e.Error = &msg
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "operation_id"}}, DoNothing: true}).
		Create(e).Error
}

// ListRecent returns entries newest first.
func (r *Repo) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var out []Entry
	if err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
