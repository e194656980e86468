package queue

import (
	"testing"

	"github.com/samber/do"
)

func TestAddAndReceive(t *testing.T) {
	svc, err := New(do.New())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	svc.Add("5511999999999", "oi")

	msg := <-svc.Channel()
	if msg.Sender != "5511999999999" || msg.Text != "oi" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.ReceivedAt.IsZero() {
		t.Error("ReceivedAt not stamped")
	}
}

func TestOverflowDropsInsteadOfBlocking(t *testing.T) {
	svc, err := New(do.New())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// One more than the buffer; the call must not block.
	for i := 0; i <= bufferSize; i++ {
		svc.Add("5511999999999", "flood")
	}

	if got := len(svc.Channel()); got != bufferSize {
		t.Errorf("buffered = %d, want %d", got, bufferSize)
	}
}

func TestAddAfterShutdownDoesNotPanic(t *testing.T) {
	svc, err := New(do.New())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := svc.Shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	svc.Add("5511999999999", "oi")
}
