package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mulimoen/portcodes/internal/domain"
	"github.com/mulimoen/portcodes/internal/ports"
)

// mockLogger implements ports.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...ports.Field) {}
func (mockLogger) Info(msg string, fields ...ports.Field)  {}
func (mockLogger) Warn(msg string, fields ...ports.Field)  {}
func (mockLogger) Error(msg string, fields ...ports.Field) {}

// mockTransport records written bytes. When gated, Write blocks until the
// gate is released, which stalls the sender deterministically. entered is
// signalled once per Write call so tests can wait for the sender to be busy.
type mockTransport struct {
	mu       sync.Mutex
	writes   []byte
	closed   int
	failN    int // fail the first failN writes
	writeErr error

	gate    chan struct{} // nil means ungated
	entered chan struct{}
}

func newMockTransport() *mockTransport {
	return &mockTransport{entered: make(chan struct{}, 16)}
}

func newGatedTransport() *mockTransport {
	return &mockTransport{
		gate:    make(chan struct{}),
		entered: make(chan struct{}, 16),
	}
}

func (m *mockTransport) Write(ctx context.Context, b byte) error {
	select {
	case m.entered <- struct{}{}:
	default:
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failN > 0 {
		m.failN--
		return m.writeErr
	}
	m.writes = append(m.writes, b)
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *mockTransport) Writes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte{}, m.writes...)
}

func (m *mockTransport) Closed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// release opens the gate permanently; subsequent writes pass straight through.
func (m *mockTransport) release() {
	close(m.gate)
}

// mockEmitter records write events.
type mockEmitter struct {
	mu      sync.Mutex
	writes  []byte
	dropped []error
}

func (m *mockEmitter) OnWrite(value byte, codes, attempts int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, value)
}

func (m *mockEmitter) OnWriteError(err error, value byte, dropped bool) {
	if !dropped {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropped = append(m.dropped, err)
}

func (m *mockEmitter) Dropped() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]error{}, m.dropped...)
}

func testConfig() Config {
	return Config{
		QueueSize:      64,
		WriteTimeout:   time.Second,
		WriteRetries:   3,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}
}

func newTestDispatcher(t *testing.T, cfg Config, tr ports.Transport, emitter WriteEventEmitter) *Dispatcher {
	t.Helper()
	d := NewDispatcher(cfg, tr, mockLogger{}, emitter, NewLifecycle(mockLogger{}, nil))
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// waitForEntered blocks until the transport has seen a Write call.
func waitForEntered(t *testing.T, tr *mockTransport) {
	t.Helper()
	select {
	case <-tr.entered:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for sender to enter Write")
	}
}

func TestDispatcher_SingleCode(t *testing.T) {
	tr := newMockTransport()
	d := newTestDispatcher(t, testConfig(), tr, nil)

	if err := d.Enqueue(4); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	barrier(t, d)

	writes := tr.Writes()
	if len(writes) != 1 || writes[0] != 4 {
		t.Errorf("writes = %v, want [4]", writes)
	}
}

// Codes enqueued while the sender is stalled in a write are combined into
// exactly one OR'd byte on the next drain pass.
func TestDispatcher_MultiplexesStalledCodes(t *testing.T) {
	tr := newGatedTransport()
	d := newTestDispatcher(t, testConfig(), tr, nil)

	// First code occupies the sender inside Write.
	if err := d.Enqueue(1); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	waitForEntered(t, tr)

	// These arrive while the sender is stalled.
	for _, c := range []domain.Code{2, 4, 8} {
		if err := d.Enqueue(c); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", c, err)
		}
	}

	tr.release()
	barrier(t, d)

	writes := tr.Writes()
	want := []byte{1, 2 | 4 | 8}
	if len(writes) != len(want) {
		t.Fatalf("writes = %v, want %v", writes, want)
	}
	for i := range want {
		if writes[i] != want[i] {
			t.Errorf("writes[%d] = %d, want %d", i, writes[i], want[i])
		}
	}
}

// A flush marker inside a stalled batch splits it: codes before the flush are
// written first and codes after it never merge into that write.
func TestDispatcher_FlushSplitsBatch(t *testing.T) {
	tr := newGatedTransport()
	d := newTestDispatcher(t, testConfig(), tr, nil)

	if err := d.Enqueue(1); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	waitForEntered(t, tr)

	// Stalled sequence [2, flush, 4].
	for _, c := range []domain.Code{2, domain.FlushCode, 4} {
		if err := d.Enqueue(c); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", c, err)
		}
	}

	tr.release()
	barrier(t, d)

	writes := tr.Writes()
	want := []byte{1, 2, 4}
	if len(writes) != len(want) {
		t.Fatalf("writes = %v, want %v", writes, want)
	}
	for i := range want {
		if writes[i] != want[i] {
			t.Errorf("writes[%d] = %d, want %d", i, writes[i], want[i])
		}
	}
	for _, w := range writes {
		if w == 0 {
			t.Error("zero byte reached the transport")
		}
	}
}

// A pure flush with nothing pending produces no write and unblocks promptly.
func TestDispatcher_PureFlush(t *testing.T) {
	tr := newMockTransport()
	d := newTestDispatcher(t, testConfig(), tr, nil)

	done, err := d.EnqueueBarrier()
	if err != nil {
		t.Fatalf("EnqueueBarrier() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pure flush did not unblock")
	}

	if writes := tr.Writes(); len(writes) != 0 {
		t.Errorf("writes = %v, want none", writes)
	}
}

// Consecutive flush markers collapse to one synchronization point.
func TestDispatcher_FlushesCoalesce(t *testing.T) {
	tr := newGatedTransport()
	d := newTestDispatcher(t, testConfig(), tr, nil)

	if err := d.Enqueue(1); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	waitForEntered(t, tr)

	if err := d.Enqueue(2); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	var barriers []<-chan struct{}
	for i := 0; i < 3; i++ {
		done, err := d.EnqueueBarrier()
		if err != nil {
			t.Fatalf("EnqueueBarrier() error = %v", err)
		}
		barriers = append(barriers, done)
	}

	tr.release()
	for _, done := range barriers {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("barrier did not unblock")
		}
	}

	writes := tr.Writes()
	want := []byte{1, 2}
	if len(writes) != len(want) {
		t.Fatalf("writes = %v, want %v", writes, want)
	}
}

// With a flush between every code, the wire sequence equals the input
// sequence (the no-batching round-trip).
func TestDispatcher_RoundTrip(t *testing.T) {
	tr := newMockTransport()
	d := newTestDispatcher(t, testConfig(), tr, nil)

	input := []domain.Code{1, 4, 8, 1, 255, 2}
	for _, c := range input {
		if err := d.Enqueue(c); err != nil {
			t.Fatalf("Enqueue(%d) error = %v", c, err)
		}
		barrier(t, d)
	}

	writes := tr.Writes()
	if len(writes) != len(input) {
		t.Fatalf("writes = %v, want %v", writes, input)
	}
	for i, c := range input {
		if writes[i] != byte(c) {
			t.Errorf("writes[%d] = %d, want %d", i, writes[i], c)
		}
	}
}

func TestDispatcher_QueueFull(t *testing.T) {
	cfg := testConfig()
	cfg.QueueSize = 1

	tr := newGatedTransport()
	d := newTestDispatcher(t, cfg, tr, nil)

	// Occupy the sender, then fill the single queue slot.
	if err := d.Enqueue(1); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	waitForEntered(t, tr)
	if err := d.Enqueue(2); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := d.Enqueue(4); !errors.Is(err, domain.ErrQueueFull) {
		t.Errorf("Enqueue() error = %v, want ErrQueueFull", err)
	}

	tr.release()
}

func TestDispatcher_Close(t *testing.T) {
	tr := newMockTransport()
	lc := NewLifecycle(mockLogger{}, nil)
	d := NewDispatcher(testConfig(), tr, mockLogger{}, nil, lc)

	if err := d.Enqueue(8); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Idempotent second call.
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if d.State() != StateClosed {
		t.Errorf("State() = %v, want StateClosed", d.State())
	}
	if got := tr.Closed(); got != 1 {
		t.Errorf("transport closed %d times, want 1", got)
	}

	// The code enqueued before Close was drained onto the wire.
	writes := tr.Writes()
	if len(writes) != 1 || writes[0] != 8 {
		t.Errorf("writes = %v, want [8]", writes)
	}

	// Sends after Close are rejected and never reach the transport.
	if err := d.Enqueue(2); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("Enqueue() after Close error = %v, want ErrClosed", err)
	}
	if _, err := d.EnqueueBarrier(); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("EnqueueBarrier() after Close error = %v, want ErrClosed", err)
	}
	if writes := tr.Writes(); len(writes) != 1 {
		t.Errorf("writes after Close = %v, want [8]", writes)
	}
}

// Write failures are retried; once retries exhaust the batch is dropped,
// reported, and the sender keeps serving later codes.
func TestDispatcher_WriteRetryExhaustion(t *testing.T) {
	cfg := testConfig()
	cfg.WriteRetries = 2

	tr := newMockTransport()
	tr.failN = 3 // attempts 1..3 fail: initial + 2 retries
	tr.writeErr = errors.New("device unplugged")

	emitter := &mockEmitter{}
	d := newTestDispatcher(t, cfg, tr, emitter)

	if err := d.Enqueue(16); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	barrier(t, d)

	dropped := emitter.Dropped()
	if len(dropped) != 1 {
		t.Fatalf("dropped events = %d, want 1", len(dropped))
	}
	if !errors.Is(dropped[0], domain.ErrWriteRetriesExhausted) {
		t.Errorf("dropped error = %v, want ErrWriteRetriesExhausted", dropped[0])
	}
	if writes := tr.Writes(); len(writes) != 0 {
		t.Errorf("writes = %v, want none", writes)
	}

	// Liveness: the next code still transmits.
	if err := d.Enqueue(32); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	barrier(t, d)

	writes := tr.Writes()
	if len(writes) != 1 || writes[0] != 32 {
		t.Errorf("writes = %v, want [32]", writes)
	}
}

// Transient write failures recover within the retry budget and drop nothing.
func TestDispatcher_WriteRetryRecovers(t *testing.T) {
	tr := newMockTransport()
	tr.failN = 2
	tr.writeErr = errors.New("transient")

	emitter := &mockEmitter{}
	d := newTestDispatcher(t, testConfig(), tr, emitter)

	if err := d.Enqueue(64); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	barrier(t, d)

	writes := tr.Writes()
	if len(writes) != 1 || writes[0] != 64 {
		t.Errorf("writes = %v, want [64]", writes)
	}
	if dropped := emitter.Dropped(); len(dropped) != 0 {
		t.Errorf("dropped events = %v, want none", dropped)
	}
}

func TestDispatcher_ConcurrentProducers(t *testing.T) {
	tr := newMockTransport()
	d := newTestDispatcher(t, testConfig(), tr, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(c domain.Code) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				// The queue is large enough that saturation is the only
				// acceptable failure.
				if err := d.Enqueue(c); err != nil && !errors.Is(err, domain.ErrQueueFull) {
					t.Errorf("Enqueue() error = %v", err)
				}
			}
		}(domain.Code(1 << uint(i%8)))
	}
	wg.Wait()
	barrier(t, d)

	for _, w := range tr.Writes() {
		if w == 0 {
			t.Error("zero byte reached the transport")
		}
	}
}

// barrier waits until the sender has processed everything enqueued so far.
func barrier(t *testing.T, d *Dispatcher) {
	t.Helper()
	done, err := d.EnqueueBarrier()
	if err != nil {
		t.Fatalf("EnqueueBarrier() error = %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for sender barrier")
	}
}
