//go:build e2e

package e2e_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sophialabs/scopecore/internal/domain/packet"
	"github.com/sophialabs/scopecore/internal/infrastructure/outbound/source"
	"github.com/sophialabs/scopecore/internal/infrastructure/wiring"
	"github.com/sophialabs/scopecore/internal/testutil"
)

// fakeDevice accepts one connection, records the command lines it receives
// and streams whatever packets the test hands it.
type fakeDevice struct {
	ln   net.Listener
	conn chan net.Conn

	mu       sync.Mutex
	commands []string
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	d := &fakeDevice{ln: ln, conn: make(chan net.Conn, 1)}
	go d.accept()
	t.Cleanup(func() { _ = ln.Close() })
	return d
}

func (d *fakeDevice) accept() {
	c, err := d.ln.Accept()
	if err != nil {
		return
	}
	d.conn <- c
	sc := bufio.NewScanner(c)
	for sc.Scan() {
		d.mu.Lock()
		d.commands = append(d.commands, sc.Text())
		d.mu.Unlock()
	}
}

func (d *fakeDevice) Addr() string { return d.ln.Addr().String() }

func (d *fakeDevice) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// waitCommands polls until the device has seen at least n commands.
func (d *fakeDevice) waitCommands(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := d.Commands(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("device saw %v, want %d commands", d.Commands(), n)
	return nil
}

// stream writes one packet per value of channel ch, holding the other
// channels at mid-scale.
func (d *fakeDevice) stream(t *testing.T, ch int, raws ...uint16) {
	t.Helper()
	var c net.Conn
	select {
	case c = <-d.conn:
		d.conn <- c
	case <-time.After(2 * time.Second):
		t.Fatal("device never connected")
	}
	var buf bytes.Buffer
	for _, r := range raws {
		v := packet.Values{2048, 2048, 2048, 2048}
		v[ch] = r
		b := packet.EncodeValues(v)
		buf.Write(b[:])
	}
	if _, err := c.Write(buf.Bytes()); err != nil {
		t.Fatalf("failed to stream packets: %v", err)
	}
}

type harness struct {
	c      *wiring.Container
	ts     *httptest.Server
	device *fakeDevice
}

func setupE2E(t *testing.T) *harness {
	t.Helper()
	d := newFakeDevice(t)
	c, err := wiring.New(context.Background(), wiring.Params{
		Source:         source.Options{Kind: source.KindTCP, Addr: d.Addr(), DialTimeout: time.Second},
		EventLogSize:   100,
		RateLimiterTTL: time.Minute,
		Logger:         &testutil.NoopLogger{},
	})
	if err != nil {
		t.Fatalf("failed to build container: %v", err)
	}
	c.Pump().Start()
	ts := httptest.NewServer(c.Server())
	t.Cleanup(func() {
		ts.Close()
		c.Close()
	})
	return &harness{c: c, ts: ts, device: d}
}

// acquireUntil runs the acquisition step until the scope holds at least n
// valid points.
func (h *harness) acquireUntil(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.c.AcquireUseCase().Execute(context.Background(), h.c.Pump().Drain(0))
		if h.c.Scope().Status().ValidPoints >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("scope reached %d valid points, want %d", h.c.Scope().Status().ValidPoints, n)
}

func (h *harness) getJSON(t *testing.T, path string, v any) {
	t.Helper()
	resp, err := http.Get(h.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("GET %s: failed to decode: %v", path, err)
	}
}

func (h *harness) putJSON(t *testing.T, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, h.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT %s failed: %v", path, err)
	}
	return resp
}
