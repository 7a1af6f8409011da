package statsd

import (
	"net"
	"strings"
	"testing"
	"time"
)

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" job/metric ":  "job_metric",
		"foo..bar":      "foo.bar",
		"multi  space":  "multi__space",
		"slash/name/id": "slash_name_id",
		"..":            "",
	}

	for input, want := range tests {
		if got := cleanName(input); got != want {
			t.Fatalf("cleanName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTrimDots(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  metrics.app  ": "metrics.app",
		"..foo..":         "foo",
		".":               "",
		"":                "",
	}

	for input, want := range tests {
		if got := trimDots(input); got != want {
			t.Fatalf("trimDots(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestWriteTags(t *testing.T) {
	t.Parallel()

	var line strings.Builder
	writeTags(&line,
		map[string]string{"env": "prod", " service ": " authz "},
		map[string]string{"result": " hit ", "": "ignored", "env": "stage"},
	)
	if got, want := line.String(), "|#env:stage,result:hit,service:authz"; got != want {
		t.Fatalf("writeTags = %q, want %q", got, want)
	}

	line.Reset()
	writeTags(&line, nil, nil)
	if line.Len() != 0 {
		t.Fatalf("writeTags(nil, nil) wrote %q", line.String())
	}
}

func TestCloneTagsReturnsCopy(t *testing.T) {
	t.Parallel()

	original := map[string]string{
		"env": "prod",
		"":    "ignored",
	}

	cloned := cloneTags(original)
	if cloned == nil {
		t.Fatal("cloneTags returned nil map")
	}

	cloned["env"] = "stage"
	if original["env"] != "prod" {
		t.Fatal("cloneTags did not copy values")
	}
	if _, ok := cloned[""]; ok {
		t.Fatal("cloneTags kept empty key")
	}
}

func TestClientEmitsWireFormat(t *testing.T) {
	t.Parallel()

	sock, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer sock.Close()

	client, err := NewClient(Config{
		Enabled:    true,
		Address:    sock.LocalAddr().String(),
		Prefix:     "spaarke.",
		GlobalTags: map[string]string{"env": "test"},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	read := func() string {
		t.Helper()
		buf := make([]byte, 512)
		_ = sock.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := sock.ReadFrom(buf)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		return string(buf[:n])
	}

	client.Count("cache.op", 1, map[string]string{"result": "hit"})
	if got, want := read(), "spaarke.cache.op:1|c|#env:test,result:hit"; got != want {
		t.Fatalf("count line = %q, want %q", got, want)
	}

	client.Timing("authz.duration", 1500*time.Microsecond, nil)
	if got, want := read(), "spaarke.authz.duration:1.5|ms|#env:test"; got != want {
		t.Fatalf("timing line = %q, want %q", got, want)
	}

	client.Gauge("pool.size", 8, nil)
	if got, want := read(), "spaarke.pool.size:8|g|#env:test"; got != want {
		t.Fatalf("gauge line = %q, want %q", got, want)
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{
		enabled: true,
		conn:    clientConn,
	}

	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}

	// A second Close must be a no-op.
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
	if err := nilClient.Close(); err != nil {
		t.Fatalf("nil client Close error: %v", err)
	}
	nilClient.Count("cache.op", 1, nil)
}

func TestNewClientDisabledWithoutAddress(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{
		Enabled: true,
		Address: "   ",
	})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}

	// Emitting on a disabled client is a silent no-op.
	client.Count("cache.op", 1, nil)
}

func TestNewClientDialError(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{
		Enabled: true,
		Address: "bad address",
	})
	if err == nil {
		t.Fatal("expected NewClient to error for invalid address")
	}
	if !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("unexpected error: %v", err)
	}
}
