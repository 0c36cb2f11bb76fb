package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"
)

// Exit codes a SessionClient run can produce, distinguished so cmd/fresh
// can map them straight onto process exit status (spec.md §7).
const (
	ExitNormal          = 0
	ExitError           = 1
	ExitVersionMismatch = 3
	ExitDetached        = 4
)

// ClientVersion is reported to the server in the control Hello.
const ClientVersion = "0.1.0"

// Client is a thin terminal relay: it owns the two sockets, puts the local
// terminal in raw mode, and pumps stdin/stdout through them (spec.md §4.10).
// Grounded on the teacher's eggSpawn client loop (cmd/wt/egg.go): raw-mode
// terminal, a SIGWINCH-driven resize goroutine, and two pump goroutines
// joined by a single done channel.
type Client struct {
	ctrlConn net.Conn
	dataConn net.Conn
	ctrlEnc  *json.Encoder
	ctrlDec  *json.Decoder
	sessionID string
}

// Dial connects to both of a session's sockets and performs the control
// handshake, pairing the data connection via the session id (spec.md
// §8 property 8: connecting after the pid file exists must not need
// backoff).
func Dial(paths Paths, cols, rows int) (*Client, error) {
	ctrlConn, err := net.Dial("unix", paths.ControlSock)
	if err != nil {
		return nil, fmt.Errorf("dial control socket: %w", err)
	}

	enc := json.NewEncoder(ctrlConn)
	dec := json.NewDecoder(ctrlConn)

	if err := enc.Encode(ClientHello(ClientVersion, cols, rows, nil)); err != nil {
		ctrlConn.Close()
		return nil, fmt.Errorf("send hello: %w", err)
	}

	var reply ControlMessage
	if err := dec.Decode(&reply); err != nil {
		ctrlConn.Close()
		return nil, fmt.Errorf("read hello reply: %w", err)
	}
	if reply.Type == "version_mismatch" {
		ctrlConn.Close()
		return nil, &VersionMismatchError{
			ServerVersion: reply.ServerVersion,
			ClientVersion: reply.ClientVersion,
			Message:       reply.Message,
		}
	}
	if reply.Type != "hello" {
		ctrlConn.Close()
		return nil, fmt.Errorf("unexpected control reply: %s", reply.Type)
	}

	dataConn, err := net.Dial("unix", paths.DataSock)
	if err != nil {
		ctrlConn.Close()
		return nil, fmt.Errorf("dial data socket: %w", err)
	}
	if _, err := fmt.Fprintf(dataConn, "%s\n", reply.SessionID); err != nil {
		ctrlConn.Close()
		dataConn.Close()
		return nil, fmt.Errorf("send data handshake: %w", err)
	}

	return &Client{
		ctrlConn:  ctrlConn,
		dataConn:  dataConn,
		ctrlEnc:   enc,
		ctrlDec:   dec,
		sessionID: reply.SessionID,
	}, nil
}

// VersionMismatchError is returned by Dial when the server rejects the
// client's protocol version (spec.md §8 property 10).
type VersionMismatchError struct {
	ServerVersion string
	ClientVersion string
	Message       string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("protocol mismatch: server=%s client=%s: %s", e.ServerVersion, e.ClientVersion, e.Message)
}

// Close tears down both sockets.
func (c *Client) Close() error {
	c.ctrlConn.Close()
	return c.dataConn.Close()
}

// Run puts the real terminal into raw mode and pumps stdin<->data channel
// and control events (resize, pong, quit) until the server closes the
// connection, the user detaches (ctrl+q by convention), or an error
// occurs. Returns one of the Exit* codes.
func (c *Client) Run() (int, error) {
	fd := int(os.Stdin.Fd())
	var restore func()
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err == nil {
			restore = func() { term.Restore(fd, oldState) }
			defer restore()
		}
	}

	winchCh := make(chan os.Signal, 1)
	signal.Notify(winchCh, syscall.SIGWINCH)
	defer signal.Stop(winchCh)

	go func() {
		for range winchCh {
			if w, h, err := term.GetSize(fd); err == nil {
				c.ctrlEnc.Encode(ClientResize(w, h))
			}
		}
	}()

	result := make(chan int, 1)
	detached := false
	quitReason := ""

	go func() {
		for {
			var msg ControlMessage
			if err := c.ctrlDec.Decode(&msg); err != nil {
				result <- ExitNormal
				return
			}
			switch msg.Type {
			case "quit":
				quitReason = msg.Reason
				if quitReason == "detached" {
					detached = true
				}
				result <- ExitNormal
				return
			case "error":
				result <- ExitError
				return
			}
		}
	}()

	go func() {
		buf := make([]byte, 4096)
		reader := bufio.NewReader(c.dataConn)
		for {
			n, err := reader.Read(buf)
			if n > 0 {
				os.Stdout.Write(buf[:n])
			}
			if err != nil {
				return
			}
		}
	}()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				c.dataConn.Write(buf[:n])
			}
			if err != nil {
				if err != io.EOF {
					result <- ExitError
				}
				return
			}
		}
	}()

	code := <-result
	if detached {
		return ExitDetached, nil
	}
	return code, nil
}

// Detach sends a Detach control message and closes the connection; the
// server tears down only this client's state (spec.md §8 property 9).
func (c *Client) Detach() error {
	return c.ctrlEnc.Encode(ClientDetach())
}

// OpenFiles pushes file-open requests to an already-running session.
func (c *Client) OpenFiles(files []FileLocation) error {
	return c.ctrlEnc.Encode(ClientOpenFiles(files))
}

// Quit asks the server to shut down entirely.
func (c *Client) Quit() error {
	return c.ctrlEnc.Encode(ClientQuit())
}
