package queue

import (
	"sync"
	"testing"

	"github.com/google/uuid"

	"tracklix/tracking/internal/tracking/domain"
)

func testSubmission() domain.Submission {
	return domain.Submission{
		SessionID:  uuid.New(),
		CompanyID:  uuid.New(),
		EmployeeID: uuid.New(),
		Payload:    domain.EventPayload{Production: "PT", EventType: "Click", EventName: "Click_Test"},
	}
}

func TestSubmit_AcceptsUntilFull(t *testing.T) {
	q := New(2)

	if !q.Submit(testSubmission()) {
		t.Fatal("first submit rejected")
	}
	if !q.Submit(testSubmission()) {
		t.Fatal("second submit rejected")
	}
	if q.Submit(testSubmission()) {
		t.Fatal("third submit accepted on a full queue")
	}

	if got := q.Enqueued(); got != 2 {
		t.Errorf("enqueued = %d, want 2", got)
	}
	if got := q.Dropped(); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
	if got := q.Depth(); got != 2 {
		t.Errorf("depth = %d, want 2", got)
	}
}

func TestSubmit_DropDoesNotDisturbAcceptedItems(t *testing.T) {
	q := New(1)
	first := testSubmission()

	q.Submit(first)
	q.Submit(testSubmission()) // dropped

	q.Close()
	var drained []domain.Submission
	for sub := range q.Items() {
		drained = append(drained, sub)
	}
	if len(drained) != 1 {
		t.Fatalf("drained %d items, want 1", len(drained))
	}
	if drained[0].SessionID != first.SessionID {
		t.Error("drained item is not the accepted one")
	}
}

func TestItems_FIFOForAcceptedItems(t *testing.T) {
	q := New(10)
	subs := make([]domain.Submission, 5)
	for i := range subs {
		subs[i] = testSubmission()
		q.Submit(subs[i])
	}

	q.Close()
	i := 0
	for sub := range q.Items() {
		if sub.SessionID != subs[i].SessionID {
			t.Fatalf("item %d out of order", i)
		}
		i++
	}
	if i != len(subs) {
		t.Errorf("drained %d items, want %d", i, len(subs))
	}
}

func TestClose_RejectsNewProducersAndKeepsBuffer(t *testing.T) {
	q := New(4)
	q.Submit(testSubmission())
	q.Close()

	if q.Submit(testSubmission()) {
		t.Error("submit accepted after close")
	}
	if got := q.Depth(); got != 1 {
		t.Errorf("depth after close = %d, want 1", got)
	}

	// Close is idempotent.
	q.Close()
}

func TestSubmit_ConcurrentProducers(t *testing.T) {
	const producers = 50
	const perProducer = 20

	q := New(producers * perProducer)
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if !q.Submit(testSubmission()) {
					t.Error("submit rejected below capacity")
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := q.Enqueued(); got != producers*perProducer {
		t.Errorf("enqueued = %d, want %d", got, producers*perProducer)
	}
	if got := q.Dropped(); got != 0 {
		t.Errorf("dropped = %d, want 0", got)
	}
}

func TestNew_CapacityFallback(t *testing.T) {
	q := New(0)
	if q.Capacity() != DefaultCapacity {
		t.Errorf("capacity = %d, want %d", q.Capacity(), DefaultCapacity)
	}
}
