package routes

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// overlapConn flags any concurrent entry into WriteJSON, which the
// underlying websocket library forbids
type overlapConn struct {
	active  int32
	overlap int32
	writes  int32
}

func (c *overlapConn) WriteJSON(v interface{}) error {
	if atomic.AddInt32(&c.active, 1) > 1 {
		atomic.StoreInt32(&c.overlap, 1)
	}
	time.Sleep(100 * time.Microsecond)
	atomic.AddInt32(&c.active, -1)
	atomic.AddInt32(&c.writes, 1)
	return nil
}

func TestFeedWriterSerializesConcurrentProducers(t *testing.T) {
	conn := &overlapConn{}
	w := newFeedWriter()
	defer w.stop()
	go w.run(conn)

	// Snapshot producers (command loop) race event producers (forwarder)
	const producers, perProducer = 8, 25
	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				w.send(feedSnapshot{Type: "snapshot"})
			}
		}()
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&conn.writes) < producers*perProducer {
		if time.Now().After(deadline) {
			t.Fatalf("only %d of %d queued writes drained",
				atomic.LoadInt32(&conn.writes), producers*perProducer)
		}
		time.Sleep(time.Millisecond)
	}

	if atomic.LoadInt32(&conn.overlap) != 0 {
		t.Fatal("connection was written by more than one goroutine at a time")
	}
}

func TestFeedWriterSendAfterStopDoesNotBlock(t *testing.T) {
	w := newFeedWriter()
	w.stop()

	finished := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			w.send(feedSnapshot{Type: "snapshot"})
		}
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("send blocked after the writer stopped")
	}
}
