package session

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fresh-editor/fresh/internal/editor"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	dir := t.TempDir()
	return Paths{
		Name:        "test",
		ControlSock: filepath.Join(dir, "test.ctrl.sock"),
		DataSock:    filepath.Join(dir, "test.data.sock"),
		PidFile:     filepath.Join(dir, "test.pid"),
	}
}

func waitForPidFile(t *testing.T, p Paths) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(p.PidFile); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("server never wrote pid file")
}

// TestSessionReadiness is property 8 from spec.md §8: once the pid file
// exists, a client connect succeeds on the first attempt, no backoff.
func TestSessionReadiness(t *testing.T) {
	paths := testPaths(t)
	ed := editor.New()
	srv := NewServer(paths, ed, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)

	waitForPidFile(t, paths)

	client, err := Dial(paths, 80, 24)
	if err != nil {
		t.Fatalf("dial failed immediately after pid file appeared: %v", err)
	}
	defer client.Close()
}

// TestVersionMismatch is property 10: a client with a different protocol
// version gets VersionMismatch on the control channel and nothing else.
func TestVersionMismatch(t *testing.T) {
	paths := testPaths(t)
	ed := editor.New()
	srv := NewServer(paths, ed, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	waitForPidFile(t, paths)

	conn, err := net.Dial("unix", paths.ControlSock)
	if err != nil {
		t.Fatalf("dial control: %v", err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	dec := json.NewDecoder(conn)

	bad := ClientHello(ClientVersion, 80, 24, nil)
	bad.ProtocolVersion = Protocol + 1
	if err := enc.Encode(bad); err != nil {
		t.Fatalf("send hello: %v", err)
	}

	var reply ControlMessage
	if err := dec.Decode(&reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Type != "version_mismatch" {
		t.Fatalf("expected version_mismatch, got %q", reply.Type)
	}

	// Nothing else should follow — the server closes its side.
	var extra ControlMessage
	if err := dec.Decode(&extra); err == nil {
		t.Fatalf("expected connection to close after version_mismatch, got extra message %+v", extra)
	}
}

// TestDetachIsolation is property 9: detaching one client doesn't disturb
// another connected client.
func TestDetachIsolation(t *testing.T) {
	paths := testPaths(t)
	ed := editor.New()
	srv := NewServer(paths, ed, nil, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Run(ctx)
	waitForPidFile(t, paths)

	c1, err := Dial(paths, 80, 24)
	if err != nil {
		t.Fatalf("dial client 1: %v", err)
	}
	defer c1.Close()

	c2, err := Dial(paths, 80, 24)
	if err != nil {
		t.Fatalf("dial client 2: %v", err)
	}
	defer c2.Close()

	if err := c1.Detach(); err != nil {
		t.Fatalf("detach: %v", err)
	}

	var reply ControlMessage
	if err := c1.ctrlDec.Decode(&reply); err != nil {
		t.Fatalf("decode detach quit: %v", err)
	}
	if reply.Type != "quit" || reply.Reason != "detached" {
		t.Fatalf("expected quit{detached}, got %+v", reply)
	}

	// Client 2 should still be fully functional: a ping gets a pong.
	if err := c2.ctrlEnc.Encode(ClientPing()); err != nil {
		t.Fatalf("client 2 ping: %v", err)
	}
	var pong ControlMessage
	if err := c2.ctrlDec.Decode(&pong); err != nil {
		t.Fatalf("client 2 decode pong: %v", err)
	}
	if pong.Type != "pong" {
		t.Fatalf("expected pong for client 2, got %+v", pong)
	}
}
