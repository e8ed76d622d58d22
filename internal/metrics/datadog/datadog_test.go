package datadog

import (
	"net"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/JoKnopp/wp-import/internal/metrics"
)

func TestLabelsToTags(t *testing.T) {
	t.Parallel()

	got := labelsToTags(metrics.Labels{"table": "page", "job": "dewiki"})
	want := []string{"job:dewiki", "table:page"}
	if !slices.Equal(got, want) {
		t.Fatalf("labelsToTags() = %v, want %v", got, want)
	}
	if got := labelsToTags(nil); got != nil {
		t.Fatalf("labelsToTags(nil) = %v, want nil", got)
	}
}

func TestNewBackendRequiresAddr(t *testing.T) {
	t.Parallel()

	if _, err := NewBackend(Config{}); err == nil {
		t.Fatalf("NewBackend() error = nil, want error")
	}
	var b Backend
	b.IncCounter(metrics.StepTotal, 1, nil)
	if err := b.Flush(); err != nil {
		t.Fatalf("zero Backend Flush() error = %v", err)
	}
}

// TestSendsToAgent points the backend at a UDP socket standing in for the
// agent and checks that Flush delivers the counter.
func TestSendsToAgent(t *testing.T) {
	t.Parallel()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("udp listen: %v", err)
	}
	defer pc.Close()

	b, err := NewBackend(Config{Addr: pc.LocalAddr().String(), Namespace: "wpimport."})
	if err != nil {
		t.Fatalf("NewBackend() error = %v", err)
	}
	b.IncCounter(metrics.StatementsTotal, 3, metrics.Labels{"table": "page"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	_ = pc.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, _, err := pc.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	got := string(buf[:n])
	if !strings.Contains(got, "wpimport."+metrics.StatementsTotal+":3|c") || !strings.Contains(got, "table:page") {
		t.Fatalf("datagram = %q, want statements count with table tag", got)
	}
}
