package common

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a ULID for t. IDs minted from the shared monotonic source
// sort in creation order, also within the same millisecond.
func NewULID(t time.Time) (string, error) {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func MustULID(t time.Time) string {
	id, err := NewULID(t)
	if err != nil {
		panic(err)
	}
	return id
}
