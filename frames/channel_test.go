package frames

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

const blockWindow = 50 * time.Millisecond

func TestSendReceiveRelease(t *testing.T) {
	var released []int
	c := NewChannel(func(v int) { released = append(released, v) })
	ctx := context.Background()

	if err := c.Send(ctx, 1); err != nil {
		t.Fatal(err)
	}
	d, err := c.Receive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if d.Value != 1 {
		t.Errorf("Value = %d, want 1", d.Value)
	}
	if !c.Occupied() {
		t.Error("slot free before release")
	}

	d.Release()
	d.Release()
	if len(released) != 1 || released[0] != 1 {
		t.Errorf("released = %v, want [1]", released)
	}
	if c.Occupied() {
		t.Error("slot still occupied after release")
	}
	if s := c.Stats(); s.Sent != 1 || s.Released != 1 {
		t.Errorf("stats = %+v", s)
	}
}

func TestSecondSendBlocksUntilRelease(t *testing.T) {
	c := NewChannel[int](nil)
	ctx := context.Background()

	if err := c.Send(ctx, 1); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- c.Send(ctx, 2) }()

	select {
	case err := <-done:
		t.Fatalf("second Send returned %v while slot was queued", err)
	case <-time.After(blockWindow):
	}

	d, err := c.TryReceive()
	if err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		t.Fatalf("second Send returned %v before release", err)
	case <-time.After(blockWindow):
	}

	d.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("second Send: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("second Send still blocked after release")
	}

	d2, err := c.TryReceive()
	if err != nil || d2.Value != 2 {
		t.Fatalf("TryReceive = %v, %v", d2.Value, err)
	}
}

func TestStaleReleaseIgnored(t *testing.T) {
	c := NewChannel[int](nil)
	ctx := context.Background()

	c.Send(ctx, 1)
	d1, _ := c.TryReceive()
	d1.Release()

	c.Send(ctx, 2)
	d2, _ := c.TryReceive()
	d1.Release()
	if !c.Occupied() {
		t.Fatal("stale release freed the slot of a newer delivery")
	}
	d2.Release()
	if c.Occupied() {
		t.Fatal("slot not freed")
	}
}

func TestTryReceive(t *testing.T) {
	c := NewChannel[string](nil)

	if _, err := c.TryReceive(); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty: err = %v, want ErrEmpty", err)
	}

	c.Send(context.Background(), "a")
	c.Close()

	d, err := c.TryReceive()
	if err != nil || d.Value != "a" {
		t.Fatalf("queued item lost on close: %q, %v", d.Value, err)
	}
	if _, err := c.TryReceive(); !errors.Is(err, ErrEmpty) && !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v", err)
	}
	d.Release()
	if _, err := c.TryReceive(); !errors.Is(err, ErrClosed) {
		t.Errorf("after close: err = %v, want ErrClosed", err)
	}
}

func TestReceiveAfterCloseDeliversQueued(t *testing.T) {
	c := NewChannel[int](nil)
	ctx := context.Background()
	c.Send(ctx, 7)
	c.Close()
	c.Close()

	d, err := c.Receive(ctx)
	if err != nil || d.Value != 7 {
		t.Fatalf("Receive = %d, %v", d.Value, err)
	}
	d.Release()

	if _, err := c.Receive(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
	if err := c.Send(ctx, 8); !errors.Is(err, ErrClosed) {
		t.Errorf("Send after close: %v, want ErrClosed", err)
	}
}

func TestCloseUnblocksReceiverAndSender(t *testing.T) {
	c := NewChannel[int](nil)
	ctx := context.Background()

	recvErr := make(chan error, 1)
	go func() {
		_, err := c.Receive(ctx)
		recvErr <- err
	}()

	time.Sleep(blockWindow)
	c.Close()

	select {
	case err := <-recvErr:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Receive err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive not woken by Close")
	}

	c2 := NewChannel[int](nil)
	c2.Send(ctx, 1)
	sendErr := make(chan error, 1)
	go func() { sendErr <- c2.Send(ctx, 2) }()
	time.Sleep(blockWindow)
	c2.Close()

	select {
	case err := <-sendErr:
		if !errors.Is(err, ErrClosed) {
			t.Errorf("Send err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send not woken by Close")
	}
}

func TestContextCancellation(t *testing.T) {
	t.Run("receive", func(t *testing.T) {
		c := NewChannel[int](nil)
		ctx, cancel := context.WithCancel(context.Background())
		errc := make(chan error, 1)
		go func() {
			_, err := c.Receive(ctx)
			errc <- err
		}()
		time.Sleep(blockWindow)
		cancel()
		select {
		case err := <-errc:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("err = %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Receive ignored cancellation")
		}
	})

	t.Run("send", func(t *testing.T) {
		c := NewChannel[int](nil)
		c.Send(context.Background(), 1)
		ctx, cancel := context.WithTimeout(context.Background(), blockWindow)
		defer cancel()
		if err := c.Send(ctx, 2); !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("err = %v", err)
		}
		d, _ := c.TryReceive()
		if d.Value != 1 {
			t.Errorf("cancelled send replaced queued item: %d", d.Value)
		}
	})
}

func TestDrain(t *testing.T) {
	var released []int
	c := NewChannel(func(v int) { released = append(released, v) })

	if c.Drain() {
		t.Error("Drain on empty channel reported an item")
	}

	c.Send(context.Background(), 3)
	c.Close()
	if !c.Drain() {
		t.Fatal("Drain missed the queued item")
	}
	if len(released) != 1 || released[0] != 3 {
		t.Errorf("released = %v", released)
	}
	if c.Occupied() {
		t.Error("slot occupied after drain")
	}
	if _, err := c.TryReceive(); !errors.Is(err, ErrClosed) {
		t.Errorf("err = %v, want ErrClosed", err)
	}
}

func TestDrainLeavesDeliveredItem(t *testing.T) {
	c := NewChannel[int](nil)
	c.Send(context.Background(), 1)
	d, _ := c.TryReceive()
	if c.Drain() {
		t.Error("Drain took an item the consumer holds")
	}
	d.Release()
}

func TestNeverMoreThanOneOutstanding(t *testing.T) {
	var mu sync.Mutex
	outstanding, peak := 0, 0
	c := NewChannel(func(int) {
		mu.Lock()
		outstanding--
		mu.Unlock()
	})
	ctx := context.Background()
	const n = 200

	go func() {
		for i := 0; i < n; i++ {
			if err := c.Send(ctx, i); err != nil {
				return
			}
			mu.Lock()
			outstanding++
			if outstanding > peak {
				peak = outstanding
			}
			mu.Unlock()
		}
		c.Close()
	}()

	next := 0
	for {
		d, err := c.Receive(ctx)
		if errors.Is(err, ErrClosed) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if d.Value != next {
			t.Fatalf("got %d, want %d", d.Value, next)
		}
		next++
		d.Release()
	}

	if next != n {
		t.Errorf("received %d items, want %d", next, n)
	}
	if peak > 1 {
		t.Errorf("peak outstanding = %d, want 1", peak)
	}
}
