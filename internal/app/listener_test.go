package app

import (
	"net"
	"testing"
	"time"
)

func TestListen_LimitsConcurrentConnections(t *testing.T) {
	ln, err := listen("127.0.0.1:0", 1)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 2)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()

	for range 2 {
		c, err := net.Dial("tcp", ln.Addr().String())
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer c.Close()
	}

	first := <-accepted
	select {
	case <-accepted:
		t.Fatal("second connection accepted while the first is open")
	case <-time.After(100 * time.Millisecond):
	}

	first.Close()
	select {
	case c := <-accepted:
		c.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("second connection never accepted")
	}
}

func TestListen_Unlimited(t *testing.T) {
	ln, err := listen("127.0.0.1:0", 0)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	if _, ok := ln.(*net.TCPListener); !ok {
		t.Errorf("expected a plain TCP listener, got %T", ln)
	}
}

func TestListen_BadAddress(t *testing.T) {
	if _, err := listen("127.0.0.1:-1", 1); err == nil {
		t.Error("expected error")
	}
}
