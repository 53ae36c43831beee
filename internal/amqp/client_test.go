package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rabbitmq/amqp091-go"
)

// recordingAck captures how a delivery was settled.
type recordingAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (a *recordingAck) Ack(uint64, bool) error {
	a.acked = true
	return nil
}

func (a *recordingAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func (a *recordingAck) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeue = true, requeue
	return nil
}

func delivery(t *testing.T, ack *recordingAck, body string) amqp091.Delivery {
	t.Helper()
	return amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte(body)}
}

func TestHandleDeliverySettlement(t *testing.T) {
	valid := `{"job_id":"0b7c","kind":"pdf","requested_at":"2024-05-01T10:00:00Z"}`
	tests := []struct {
		name    string
		body    string
		handler ExportHandler
		want    recordingAck
	}{
		{
			name:    "success acks",
			body:    valid,
			handler: func(context.Context, *ExportRequestMessage) error { return nil },
			want:    recordingAck{acked: true},
		},
		{
			name:    "transient failure requeues",
			body:    valid,
			handler: func(context.Context, *ExportRequestMessage) error { return errors.New("database is locked") },
			want:    recordingAck{nacked: true, requeue: true},
		},
		{
			name: "permanent failure drops",
			body: valid,
			handler: func(context.Context, *ExportRequestMessage) error {
				return Permanent(errors.New("unknown export kind"))
			},
			want: recordingAck{nacked: true},
		},
		{
			name:    "malformed body drops",
			body:    `{"kind":"pdf"}`,
			handler: func(context.Context, *ExportRequestMessage) error { return errors.New("handler called") },
			want:    recordingAck{nacked: true},
		},
	}

	c := &Client{queueName: "export_requests"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &recordingAck{}
			c.handleDelivery(context.Background(), delivery(t, ack, tt.body), tt.handler)
			if diff := cmp.Diff(tt.want, *ack, cmp.AllowUnexported(recordingAck{})); diff != "" {
				t.Errorf("settlement mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestHandleDeliveryPassesMessage(t *testing.T) {
	var got *ExportRequestMessage
	c := &Client{}
	c.handleDelivery(context.Background(), delivery(t, &recordingAck{}, `{"job_id":"j1","kind":"xlsx"}`),
		func(_ context.Context, msg *ExportRequestMessage) error {
			got = msg
			return nil
		})
	if got == nil || got.JobID != "j1" || got.Kind != "xlsx" {
		t.Fatalf("handler received %+v", got)
	}
}

func TestExportRequestMessageJSON(t *testing.T) {
	msg := NewExportRequestMessage("job-42", "sheets")
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(string(data), `"job_id":"job-42"`) {
		t.Errorf("encoded message %s lacks job_id", data)
	}

	decoded, err := ExportRequestMessageFromJSON(data)
	if err != nil {
		t.Fatalf("ExportRequestMessageFromJSON: %v", err)
	}
	if decoded.Kind != "sheets" || !decoded.RequestedAt.Equal(msg.RequestedAt) {
		t.Errorf("decoded %+v, want %+v", decoded, msg)
	}

	for _, bad := range []string{`not json`, `{"kind":"pdf"}`, `{"job_id":"x"}`} {
		if _, err := ExportRequestMessageFromJSON([]byte(bad)); err == nil {
			t.Errorf("ExportRequestMessageFromJSON(%s) accepted", bad)
		}
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("no spreadsheet configured")
	wrapped := fmt.Errorf("job j1: %w", Permanent(base))

	if !IsPermanent(wrapped) {
		t.Error("wrapped permanent error not detected")
	}
	if !errors.Is(wrapped, base) {
		t.Error("permanent error hides its cause")
	}
	if IsPermanent(base) {
		t.Error("plain error reported as permanent")
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should stay nil")
	}
}

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, maxBackoff, maxBackoff}
	for attempt, w := range want {
		if got := exponentialBackoff(attempt); got != w {
			t.Errorf("exponentialBackoff(%d) = %v, want %v", attempt, got, w)
		}
	}
	if got := exponentialBackoff(40); got != maxBackoff {
		t.Errorf("exponentialBackoff(40) = %v, want cap", got)
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{amqp091.ErrClosed, true},
		{fmt.Errorf("start consuming: %w", amqp091.ErrClosed), true},
		{errors.New("dial tcp: connection refused"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("message channel closed"), true},
		{errors.New("render pdf: font missing"), false},
	}
	for _, tt := range tests {
		if got := isConnectionError(tt.err); got != tt.want {
			t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestCircuitBreakerLifecycle(t *testing.T) {
	c := &Client{exchangeName: "reportes", queueName: "export_requests"}
	if c.isCircuitOpen() {
		t.Fatal("new client starts with an open circuit")
	}

	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	if c.isCircuitOpen() {
		t.Fatalf("circuit opened before %d failures", maxFailures)
	}
	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("circuit still closed after max failures")
	}

	err := c.PublishExportRequest(context.Background(), NewExportRequestMessage("j1", "pdf"))
	if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Fatalf("publish with open circuit: err = %v", err)
	}

	// Past the open timeout a single trial request is allowed.
	c.mu.Lock()
	c.lastFailure = time.Now().Add(-openTimeout - time.Second)
	c.mu.Unlock()
	if c.isCircuitOpen() {
		t.Fatal("circuit did not move to half-open after timeout")
	}
	if s := atomic.LoadInt32(&c.state); s != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", s)
	}

	// A failed trial request reopens immediately.
	c.recordFailure()
	if atomic.LoadInt32(&c.state) != StateOpen {
		t.Fatal("failed trial request did not reopen the circuit")
	}

	c.recordSuccess()
	if atomic.LoadInt32(&c.state) != StateClosed || atomic.LoadInt64(&c.failureCount) != 0 {
		t.Fatal("success did not reset the breaker")
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	c := &Client{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.PublishExportRequest(ctx, NewExportRequestMessage("j1", "pdf")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
