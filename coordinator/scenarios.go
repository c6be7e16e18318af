package coordinator

import (
	"context"
	"fmt"
	"sync"
)

// Delivery records which consumer received each item, for verification of
// exactly-once delivery across all consumers.
type Delivery[T comparable] struct {
	mu         sync.Mutex
	counts     map[T]int
	byConsumer map[int][]T
}

// NewDelivery returns an empty delivery record.
func NewDelivery[T comparable]() *Delivery[T] {
	return &Delivery[T]{
		counts:     make(map[T]int),
		byConsumer: make(map[int][]T),
	}
}

// Record is a Sink that tallies the delivered item.
func (d *Delivery[T]) Record(consumerID int, item T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.counts[item]++
	d.byConsumer[consumerID] = append(d.byConsumer[consumerID], item)
}

// Counts returns a copy of the per-item delivery counts.
func (d *Delivery[T]) Counts() map[T]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	counts := make(map[T]int, len(d.counts))
	for item, n := range d.counts {
		counts[item] = n
	}
	return counts
}

// ByConsumer returns a copy of the items the given consumer received, in
// delivery order.
func (d *Delivery[T]) ByConsumer(consumerID int) []T {
	d.mu.Lock()
	defer d.mu.Unlock()
	items := make([]T, len(d.byConsumer[consumerID]))
	copy(items, d.byConsumer[consumerID])
	return items
}

// Total returns the total number of deliveries across all consumers.
func (d *Delivery[T]) Total() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	total := 0
	for _, n := range d.counts {
		total += n
	}
	return total
}

// Squares is a source emitting the squares 1, 4, 9, ... up to n*n.
func Squares(n int) Source[int] {
	return func(seq int) (int, bool) {
		if seq >= n {
			return 0, false
		}
		k := seq + 1
		return k * k, true
	}
}

// NamedItems is a source emitting n strings tagged with the producer id,
// "producer-<id>-item-1" through "producer-<id>-item-<n>".
func NamedItems(producerID, n int) Source[string] {
	return func(seq int) (string, bool) {
		if seq >= n {
			return "", false
		}
		return fmt.Sprintf("producer-%d-item-%d", producerID, seq+1), true
	}
}

// SquaresScenario runs one producer emitting the squares of 1..5 into a
// capacity-2 channel drained by two consumers. The producer owns the close.
func SquaresScenario(ctx context.Context, cfg Config) (*Delivery[int], error) {
	cfg.Capacity = 2
	co, err := New[int](cfg)
	if err != nil {
		return nil, err
	}
	delivery := NewDelivery[int]()
	co.AddProducer(Squares(5))
	for i := 0; i < 2; i++ {
		co.AddConsumer(delivery.Record)
	}
	return delivery, co.RunSingleProducer(ctx)
}

// NamedItemsScenario runs two producers each emitting four tagged strings
// into a default-capacity channel drained by three consumers. The
// coordinator joins both producers before the single close.
func NamedItemsScenario(ctx context.Context, cfg Config) (*Delivery[string], error) {
	co, err := New[string](cfg)
	if err != nil {
		return nil, err
	}
	delivery := NewDelivery[string]()
	for id := 1; id <= 2; id++ {
		co.AddProducer(NamedItems(id, 4))
	}
	for i := 0; i < 3; i++ {
		co.AddConsumer(delivery.Record)
	}
	return delivery, co.RunMultiProducer(ctx)
}
