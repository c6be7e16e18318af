package coordinator

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/bounded-channel-coordinator/boundedchannel"
)

func testConfig() Config {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := DefaultConfig()
	cfg.Logger = logger
	return cfg
}

func TestSingleProducerSingleConsumerFIFO(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 2
	co, err := New[int](cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	delivery := NewDelivery[int]()
	co.AddProducer(Squares(5))
	consumer := co.AddConsumer(delivery.Record)

	if err := co.RunSingleProducer(context.Background()); err != nil {
		t.Fatalf("RunSingleProducer failed: %v", err)
	}

	// One writer, one reader: delivery order matches emission order.
	got := delivery.ByConsumer(consumer.ID)
	want := []int{1, 4, 9, 16, 25}
	if len(got) != len(want) {
		t.Fatalf("Expected %d items, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Position %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestSingleProducerTopologyRequiresOneProducer(t *testing.T) {
	co, err := New[int](testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	co.AddProducer(Squares(3))
	co.AddProducer(Squares(3))
	co.AddConsumer(nil)

	if err := co.RunSingleProducer(context.Background()); err == nil {
		t.Error("Expected an error for two producers in the single-producer topology")
	}
}

func TestMultiProducerClosesAfterJoinAll(t *testing.T) {
	cfg := testConfig()
	co, err := New[string](cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Each source flags its own exhaustion so the close ordering is
	// observable: the channel must not close before both flags are set.
	var finished int32
	var closedEarly int32
	for id := 1; id <= 2; id++ {
		source := NamedItems(id, 4)
		co.AddProducer(func(seq int) (string, bool) {
			item, ok := source(seq)
			if !ok {
				atomic.AddInt32(&finished, 1)
			}
			return item, ok
		})
	}

	delivery := NewDelivery[string]()
	for i := 0; i < 3; i++ {
		co.AddConsumer(func(consumerID int, item string) {
			if co.Channel().Closed() && atomic.LoadInt32(&finished) < 2 {
				atomic.StoreInt32(&closedEarly, 1)
			}
			delivery.Record(consumerID, item)
		})
	}

	if err := co.RunMultiProducer(context.Background()); err != nil {
		t.Fatalf("RunMultiProducer failed: %v", err)
	}

	if atomic.LoadInt32(&closedEarly) == 1 {
		t.Error("Channel closed before all producers terminated")
	}
	if atomic.LoadInt32(&finished) != 2 {
		t.Errorf("Expected 2 finished producers, got %d", finished)
	}
	if !co.Channel().Closed() {
		t.Error("Channel was not closed after the run")
	}
	if total := delivery.Total(); total != 8 {
		t.Errorf("Expected 8 delivered items, got %d", total)
	}
}

func TestProducerFailsOnClosedChannel(t *testing.T) {
	co, err := New[int](testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	co.AddProducer(Squares(3))
	co.AddConsumer(nil)

	// Misuse: closing out from under the producers must surface as a
	// producer error naming the offender, not hang or get swallowed.
	if err := co.Channel().Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	err = co.RunMultiProducer(context.Background())
	if !errors.Is(err, boundedchannel.ErrClosedChannel) {
		t.Fatalf("Expected ErrClosedChannel, got %v", err)
	}
	if !strings.Contains(err.Error(), "producer 1") {
		t.Errorf("Expected the error to identify producer 1, got %q", err)
	}
}

func TestNoConsumersStillJoins(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 16
	co, err := New[int](cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	co.AddProducer(Squares(4))
	co.AddProducer(Squares(4))

	if err := co.RunMultiProducer(context.Background()); err != nil {
		t.Fatalf("RunMultiProducer failed: %v", err)
	}
	if got := co.Channel().Len(); got != 8 {
		t.Errorf("Expected 8 undrained items, got %d", got)
	}
}

func TestPerProducerOrderPreserved(t *testing.T) {
	cfg := testConfig()
	cfg.Capacity = 4
	co, err := New[string](cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	delivery := NewDelivery[string]()
	for id := 1; id <= 3; id++ {
		co.AddProducer(NamedItems(id, 10))
	}
	consumer := co.AddConsumer(delivery.Record)

	if err := co.RunMultiProducer(context.Background()); err != nil {
		t.Fatalf("RunMultiProducer failed: %v", err)
	}

	// Cross-producer interleaving is unspecified, but each producer's own
	// items must appear in emission order.
	received := delivery.ByConsumer(consumer.ID)
	lastSeq := map[string]int{}
	for _, item := range received {
		parts := strings.Split(item, "-item-")
		if len(parts) != 2 {
			t.Fatalf("Unexpected item format %q", item)
		}
		seq, err := strconv.Atoi(parts[1])
		if err != nil {
			t.Fatalf("Unexpected item format %q", item)
		}
		if seq <= lastSeq[parts[0]] {
			t.Errorf("Item %q arrived after item %d of the same producer", item, lastSeq[parts[0]])
		}
		lastSeq[parts[0]] = seq
	}
	if len(received) != 30 {
		t.Errorf("Expected 30 items, got %d", len(received))
	}
}
