package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func newTestSpinner(ctx context.Context, message string) (*Spinner, *bytes.Buffer) {
	var buf bytes.Buffer
	s := newSpinnerWithContext(ctx, message)
	s.out = &buf
	return s, &buf
}

func TestSpinnerDraws(t *testing.T) {
	s, buf := newTestSpinner(context.Background(), "Loading documents...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Loading documents...") {
		t.Errorf("spinner output %q should contain the message", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Error("Stop should leave the line cleared")
	}
	if s.Cancelled() {
		t.Error("a stopped spinner is not cancelled")
	}
}

func TestSpinnerUpdate(t *testing.T) {
	s, buf := newTestSpinner(context.Background(), "first")
	s.Start()
	s.Update("second message")
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "second message") {
		t.Error("updated message should be drawn")
	}
}

func TestSpinnerCancelled(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, cancel
		}},
		{"timeout", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			s, _ := newTestSpinner(ctx, "waiting")
			s.Start()
			time.Sleep(100 * time.Millisecond)

			if !s.Cancelled() {
				t.Error("spinner should report cancellation")
			}
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s, _ := newTestSpinner(context.Background(), "stopping")
	s.Start()
	s.Stop()
	s.Stop()
	s.StopWithSuccess("done")
}
