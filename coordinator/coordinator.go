// Package coordinator wires producer and consumer tasks to a shared bounded
// channel and owns the close decision. Two topologies are supported: a lone
// producer that closes the channel itself right after its last send, and a
// multi-producer arrangement where the coordinator joins all producers
// before performing the single close.
package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sandeepkv93/bounded-channel-coordinator/boundedchannel"
)

// Source generates a producer's item sequence. It is called with
// seq = 0, 1, 2, ... and returns ok=false once the sequence is exhausted.
type Source[T any] func(seq int) (item T, ok bool)

// Sink receives every item delivered to a consumer.
type Sink[T any] func(consumerID int, item T)

// Config holds the coordination parameters.
type Config struct {
	Capacity    int           // channel capacity, 0 for rendezvous
	ProduceRate rate.Limit    // simulated work pace per producer
	ConsumeRate rate.Limit    // simulated work pace per consumer
	Logger      *logrus.Logger
}

// DefaultConfig returns the default configuration: a small fixed buffer and
// no pacing.
func DefaultConfig() Config {
	return Config{
		Capacity:    8,
		ProduceRate: rate.Inf,
		ConsumeRate: rate.Inf,
		Logger:      logrus.StandardLogger(),
	}
}

// Per converts "eventCount events per duration" into a rate.Limit.
func Per(eventCount int, duration time.Duration) rate.Limit {
	return rate.Every(duration / time.Duration(eventCount))
}

// Producer owns an identity and a generation sequence. It never closes the
// shared channel; that decision belongs to the coordinator (or to the
// single-producer topology, which closes on the producer's own goroutine
// immediately after run returns).
type Producer[T any] struct {
	ID     int
	Source Source[T]

	limiter *rate.Limiter
	log     *logrus.Entry
}

func (p *Producer[T]) run(ctx context.Context, ch *boundedchannel.BoundedChannel[T]) error {
	for seq := 0; ; seq++ {
		item, ok := p.Source(seq)
		if !ok {
			p.log.Debug("producer finished")
			return nil
		}
		// Simulated work. A cancellation here stops the producer before the
		// send, never between deciding to send and sending.
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("producer %d: %w", p.ID, err)
		}
		if err := ch.Enqueue(item); err != nil {
			return fmt.Errorf("producer %d: enqueue %v: %w", p.ID, item, err)
		}
		p.log.WithField("item", item).Info("produced")
	}
}

// Consumer owns an identity and drains the shared channel until it observes
// end-of-stream.
type Consumer[T any] struct {
	ID   int
	Sink Sink[T]

	limiter *rate.Limiter
	log     *logrus.Entry
}

func (c *Consumer[T]) run(ctx context.Context, ch *boundedchannel.BoundedChannel[T]) {
	for {
		item, ok := ch.Dequeue()
		if !ok {
			c.log.Debug("consumer finished")
			return
		}
		c.log.WithField("item", item).Info("consumed")
		if c.Sink != nil {
			c.Sink(c.ID, item)
		}
		// Simulated work; keep draining even if the context ends.
		_ = c.limiter.Wait(ctx)
	}
}

// Coordinator launches producers and consumers around one shared bounded
// channel and performs the single authoritative close.
type Coordinator[T any] struct {
	cfg       Config
	ch        *boundedchannel.BoundedChannel[T]
	producers []*Producer[T]
	consumers []*Consumer[T]
	log       *logrus.Entry
}

// New creates a coordinator with an open channel of cfg.Capacity.
func New[T any](cfg Config) (*Coordinator[T], error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.ProduceRate <= 0 {
		cfg.ProduceRate = rate.Inf
	}
	if cfg.ConsumeRate <= 0 {
		cfg.ConsumeRate = rate.Inf
	}
	ch, err := boundedchannel.New[T](cfg.Capacity)
	if err != nil {
		return nil, err
	}
	return &Coordinator[T]{
		cfg: cfg,
		ch:  ch,
		log: cfg.Logger.WithField("component", "coordinator"),
	}, nil
}

// AddProducer registers a producer for the given source and returns it.
// Producer ids are assigned 1, 2, ... in registration order.
func (co *Coordinator[T]) AddProducer(source Source[T]) *Producer[T] {
	p := &Producer[T]{
		ID:      len(co.producers) + 1,
		Source:  source,
		limiter: rate.NewLimiter(co.cfg.ProduceRate, 1),
	}
	p.log = co.cfg.Logger.WithField("producer", p.ID)
	co.producers = append(co.producers, p)
	return p
}

// AddConsumer registers a consumer delivering into sink and returns it.
// Consumer ids are assigned 1, 2, ... in registration order.
func (co *Coordinator[T]) AddConsumer(sink Sink[T]) *Consumer[T] {
	c := &Consumer[T]{
		ID:      len(co.consumers) + 1,
		Sink:    sink,
		limiter: rate.NewLimiter(co.cfg.ConsumeRate, 1),
	}
	c.log = co.cfg.Logger.WithField("consumer", c.ID)
	co.consumers = append(co.consumers, c)
	return c
}

// Channel exposes the shared bounded channel, mainly for stats inspection.
func (co *Coordinator[T]) Channel() *boundedchannel.BoundedChannel[T] {
	return co.ch
}

func (co *Coordinator[T]) startConsumers(ctx context.Context) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, c := range co.consumers {
		wg.Add(1)
		go func(c *Consumer[T]) {
			defer wg.Done()
			c.run(ctx, co.ch)
		}(c)
	}
	return &wg
}

// RunMultiProducer runs every registered producer on its own goroutine,
// joins them all, closes the channel exactly once, and waits for the
// consumers to drain. No individual producer ever closes the channel. The
// returned error is the first producer failure, if any.
func (co *Coordinator[T]) RunMultiProducer(ctx context.Context) error {
	consumers := co.startConsumers(ctx)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range co.producers {
		p := p
		g.Go(func() error {
			return p.run(gctx, co.ch)
		})
	}

	// Join-all before the single close: only after every producer has
	// terminated can no further send happen.
	err := g.Wait()
	co.log.Info("all producers finished, closing channel")
	if cerr := co.ch.Close(); cerr != nil && err == nil {
		err = cerr
	}

	consumers.Wait()
	co.log.Info("all consumers finished")
	return err
}

// RunSingleProducer runs the lone registered producer on the calling
// goroutine and closes the channel immediately after its last send, with no
// suspension in between that could admit another send. Consumers behave
// exactly as in the multi-producer topology.
func (co *Coordinator[T]) RunSingleProducer(ctx context.Context) error {
	if len(co.producers) != 1 {
		return fmt.Errorf("single-producer topology requires exactly one producer, have %d", len(co.producers))
	}
	consumers := co.startConsumers(ctx)

	err := co.producers[0].run(ctx, co.ch)
	co.log.Info("producer finished, closing channel")
	if cerr := co.ch.Close(); cerr != nil && err == nil {
		err = cerr
	}

	consumers.Wait()
	co.log.Info("all consumers finished")
	return err
}
