package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func letter(id string) Letter {
	return Letter{
		OperationID: id,
		ChatID:      "chat_1",
		Kind:        "send",
		Prompt:      "coffee shop",
		Names:       []string{"a", "b"},
		DiscardedAt: time.UnixMilli(1_700_000_000_000).UTC(),
	}
}

func TestRepo_InsertIsIdempotentPerOperation(t *testing.T) {
	repo := NewRepo(openTestDB(t))
	require.NoError(t, repo.Migrate())

	ctx := context.Background()
	require.NoError(t, repo.Insert(ctx, letter("01OPA")))
	require.NoError(t, repo.Insert(ctx, letter("01OPA")))
	failed := letter("01OPB")
	failed.Names = nil
	failed.Error = "names: request failed with status 502"
	require.NoError(t, repo.Insert(ctx, failed))

	got, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "01OPB", got[0].OperationID)
	require.NotNil(t, got[0].Error)
	assert.Equal(t, `["a","b"]`, got[1].Names)
	assert.Nil(t, got[1].Error)
}

type ackRecorder struct {
	mu    sync.Mutex
	acks  []uint64
	nacks []uint64
}

func (a *ackRecorder) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *ackRecorder) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, tag)
	return nil
}

func (a *ackRecorder) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type memInserter struct {
	mu   sync.Mutex
	got  []Letter
	fail bool
}

func (m *memInserter) Insert(ctx context.Context, l Letter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("db down")
	}
	m.got = append(m.got, l)
	return nil
}

func delivery(ack amqp.Acknowledger, tag uint64, body []byte) amqp.Delivery {
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: tag, Body: body}
}

func TestConsumer_AcksStoredAndNacksBadLetters(t *testing.T) {
	ack := &ackRecorder{}
	store := &memInserter{}
	c := NewConsumer(store, 2, zerolog.Nop())

	good, err := json.Marshal(letter("01OPA"))
	require.NoError(t, err)

	deliveries := make(chan amqp.Delivery, 3)
	deliveries <- delivery(ack, 1, good)
	deliveries <- delivery(ack, 2, []byte("{broken"))
	deliveries <- delivery(ack, 3, []byte(`{"chat_id":"chat_1"}`))
	close(deliveries)

	err = c.Run(context.Background(), deliveries)
	require.ErrorIs(t, err, ErrDeliveriesClosed)

	assert.Equal(t, []uint64{1}, ack.acks)
	assert.ElementsMatch(t, []uint64{2, 3}, ack.nacks)
	require.Len(t, store.got, 1)
	want := letter("01OPA")
	assert.Equal(t, want.OperationID, store.got[0].OperationID)
	assert.Equal(t, want.Names, store.got[0].Names)
	assert.True(t, want.DiscardedAt.Equal(store.got[0].DiscardedAt))
}

func TestConsumer_NacksWhenStoreFails(t *testing.T) {
	ack := &ackRecorder{}
	c := NewConsumer(&memInserter{fail: true}, 1, zerolog.Nop())

	good, err := json.Marshal(letter("01OPA"))
	require.NoError(t, err)
	deliveries := make(chan amqp.Delivery, 1)
	deliveries <- delivery(ack, 7, good)
	close(deliveries)

	_ = c.Run(context.Background(), deliveries)
	assert.Empty(t, ack.acks)
	assert.Equal(t, []uint64{7}, ack.nacks)
}

func TestConsumer_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewConsumer(&memInserter{}, 2, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, make(chan amqp.Delivery)) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}

type countingSink struct{ n int }

func (s *countingSink) Record(ctx context.Context, l Letter) error {
	s.n++
	return nil
}

func TestMulti_RecordsToEverySink(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := Multi{LogSink{Log: zerolog.Nop()}, a, b}
	require.NoError(t, m.Record(context.Background(), letter("01OPA")))
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
