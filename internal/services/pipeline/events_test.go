package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bobmcallan/finscan/internal/common"
	"github.com/bobmcallan/finscan/internal/models"
)

func TestBusDeliversToAllSubscribers(t *testing.T) {
	bus := NewBus(common.NewSilentLogger())
	defer bus.Close()

	var mu sync.Mutex
	counts := map[string]int{}
	for _, name := range []string{"a", "b"} {
		name := name
		bus.Subscribe(name, func(event *models.PipelineEvent) {
			mu.Lock()
			counts[name]++
			mu.Unlock()
		})
	}

	for i := 0; i < 5; i++ {
		bus.Publish(&models.PipelineEvent{Type: models.EventBatchCompleted, JobID: "j"})
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return counts["a"] == 5 && counts["b"] == 5
	}, 2*time.Second, 5*time.Millisecond)
}

func TestBusStampsTimestamps(t *testing.T) {
	bus := NewBus(common.NewSilentLogger())
	defer bus.Close()

	got := make(chan *models.PipelineEvent, 1)
	bus.Subscribe("ts", func(event *models.PipelineEvent) { got <- event })

	bus.Publish(&models.PipelineEvent{Type: models.EventJobStarted, JobID: "j"})

	select {
	case event := <-got:
		assert.False(t, event.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusNeverBlocksOnSlowSubscriber(t *testing.T) {
	bus := NewBus(common.NewSilentLogger())
	defer bus.Close()

	block := make(chan struct{})
	defer close(block)
	bus.Subscribe("slow", func(event *models.PipelineEvent) { <-block })

	// Publish far past the subscriber buffer; all calls must return promptly.
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish(&models.PipelineEvent{Type: models.EventBatchCompleted})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
