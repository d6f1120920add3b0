package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Inserter interface {
	Insert(ctx context.Context, l Letter) error
}

// Consumer drains the letter queue into an Inserter with a fixed pool of workers.
type Consumer struct {
	store       Inserter
	concurrency int
	log         zerolog.Logger
}

func NewConsumer(store Inserter, concurrency int, logger zerolog.Logger) *Consumer {
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Consumer{
		store:       store,
		concurrency: concurrency,
		log:         logger.With().Str("component", "deadletter-consumer").Logger(),
	}
}

// Subscribe opens a channel on url and starts consuming queue with manual acks.
// The returned closer releases channel and connection.
func Subscribe(url, queue string, prefetch int) (<-chan amqp.Delivery, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	closer := closerFunc(func() error {
		_ = ch.Close()
		return conn.Close()
	})

	if err := DeclareQueue(ch, queue); err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		_ = closer.Close()
		return nil, nil, err
	}
	return msgs, closer, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var ErrDeliveriesClosed = errors.New("deadletter: delivery channel closed")

// Run blocks until ctx is done or deliveries is closed. In-flight letters are
// finished before it returns.
func (c *Consumer) Run(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	jobs := make(chan amqp.Delivery, c.concurrency*2)

	var wg sync.WaitGroup
	wg.Add(c.concurrency)
	for i := 0; i < c.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				c.handle(ctx, workerID, d)
			}
		}(i)
	}

	c.log.Info().Int("concurrency", c.concurrency).Msg("consumer started")

	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("consumer shutting down")
			close(jobs)
			wg.Wait()
			return nil

		case d, ok := <-deliveries:
			if !ok {
				c.log.Warn().Msg("delivery channel closed")
				close(jobs)
				wg.Wait()
				return ErrDeliveriesClosed
			}
			jobs <- d
		}
	}
}

func (c *Consumer) handle(ctx context.Context, workerID int, d amqp.Delivery) {
	var l Letter
	if err := json.Unmarshal(d.Body, &l); err != nil || l.OperationID == "" {
		c.log.Warn().Int("worker", workerID).AnErr("err", err).Msg("bad message")
		_ = d.Nack(false, false)
		return
	}

	start := time.Now()
	// use a fresh context so shutdown does not abort a letter half-written
	if err := c.store.Insert(context.WithoutCancel(ctx), l); err != nil {
		c.log.Error().Int("worker", workerID).Str("operation_id", l.OperationID).
			Dur("cost", time.Since(start)).Err(err).Msg("store letter failed")
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.log.Error().Int("worker", workerID).Str("operation_id", l.OperationID).Err(err).Msg("ack failed")
	}
}
