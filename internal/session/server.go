package session

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fresh-editor/fresh/internal/capture"
	"github.com/fresh-editor/fresh/internal/editor"
	"github.com/fresh-editor/fresh/internal/workspace"
)

// ServerVersion is reported to clients in Hello and VersionMismatch
// messages; bump alongside Protocol when the wire format changes.
const ServerVersion = "0.1.0"

const renderInterval = 16 * time.Millisecond

// Server is the long-lived process owning an Editor, bound to a session's
// control and data sockets (spec.md §4.9). Grounded on the teacher's
// transport.Server (internal/transport/server.go) for the listen/shutdown
// shape, and internal/egg/server.go for the pid-file-after-bind sequencing
// and per-connection read/broadcast loop.
type Server struct {
	paths       Paths
	logger      *slog.Logger
	idleTimeout time.Duration

	// frameInterval paces the render tick in Run; defaults to
	// renderInterval the package const, overridable via SetRenderInterval
	// (config.Config.FrameInterval, spec.md §3.2).
	frameInterval time.Duration

	editor  *editor.Editor
	backend *capture.Backend

	mu      sync.Mutex
	clients map[string]*client

	// pendingTokens maps a connection token (the session id the server
	// sends in its control Hello reply, echoed by the client as the data
	// socket's first line) to the control-side client waiting for its data
	// connection to arrive.
	pendingTokens map[string]*client

	// inputCh is stashed here (rather than kept purely local to Run) so
	// ListenRemote's websocket-backed data connections can feed the same
	// input pipeline as the unix data socket.
	inputCh chan clientInput

	// needsFullRenderCh is stashed the same way inputCh is: a newly paired
	// data connection (unix socket or websocket) reports itself here
	// instead of touching s.backend directly, since the backend's
	// coalescing state is only ever safe to mutate from the Run goroutine
	// (spec.md §5's single cooperative event loop).
	needsFullRenderCh chan struct{}

	// ws is optional; when set, Run writes a recovery snapshot of every
	// open buffer once per dirty render cycle (spec.md §6.4) and the
	// caller is responsible for loading/saving the workspace file itself
	// around Run (cmd/fresh does this, since it also decides which files
	// to open before the Editor exists).
	ws *workspace.Store
}

// SetWorkspace attaches a workspace.Store for recovery-snapshot writes.
// Must be called before Run.
func (s *Server) SetWorkspace(ws *workspace.Store) {
	s.ws = ws
}

type client struct {
	id       string
	ctrlConn net.Conn
	dataConn net.Conn
	ctrlEnc  *json.Encoder
	dataMu   sync.Mutex
	cols     int
	rows     int
	closed   bool
}

func (c *client) sendControl(msg ControlMessage) error {
	return c.ctrlEnc.Encode(msg)
}

func (c *client) sendData(p []byte) error {
	c.dataMu.Lock()
	defer c.dataMu.Unlock()
	_, err := c.dataConn.Write(p)
	return err
}

// NewServer constructs a Server around an already-built Editor (tests
// build one with a file preloaded; cmd/fresh builds one empty or from CLI
// file args).
func NewServer(paths Paths, ed *editor.Editor, logger *slog.Logger, idleTimeout time.Duration) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		paths:         paths,
		logger:        logger,
		idleTimeout:   idleTimeout,
		frameInterval: renderInterval,
		editor:        ed,
		backend:       capture.New(80, 24),
		clients:       map[string]*client{},
		pendingTokens: map[string]*client{},
	}
}

// SetRenderInterval overrides the render tick's pacing (config.yaml's
// frame_interval_millis). Ignored if d is not positive. Must be called
// before Run.
func (s *Server) SetRenderInterval(d time.Duration) {
	if d > 0 {
		s.frameInterval = d
	}
}

// Run binds both sockets, writes the pid file as the readiness signal
// (spec.md §8 property 8), and serves until ctx is canceled, an idle
// timeout elapses, or the Editor requests quit.
func (s *Server) Run(ctx context.Context) error {
	os.Remove(s.paths.ControlSock)
	os.Remove(s.paths.DataSock)

	ctrlLn, err := net.Listen("unix", s.paths.ControlSock)
	if err != nil {
		return err
	}
	defer ctrlLn.Close()

	dataLn, err := net.Listen("unix", s.paths.DataSock)
	if err != nil {
		return err
	}
	defer dataLn.Close()

	// Readiness signal: the pid file is written only after BOTH sockets
	// are bound, so a client that sees it can connect without backoff.
	if err := os.WriteFile(s.paths.PidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return err
	}
	defer os.Remove(s.paths.PidFile)
	defer os.Remove(s.paths.ControlSock)
	defer os.Remove(s.paths.DataSock)

	s.logger.Info("session server listening", "name", s.paths.Name, "pid", os.Getpid())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inputCh := make(chan clientInput, 64)
	controlCh := make(chan clientControlEvent, 64)
	disconnectCh := make(chan string, 16)
	needsFullRenderCh := make(chan struct{}, 16)

	s.mu.Lock()
	s.inputCh = inputCh
	s.needsFullRenderCh = needsFullRenderCh
	s.mu.Unlock()

	go s.acceptControl(ctx, ctrlLn, controlCh, disconnectCh)
	go s.acceptData(ctx, dataLn, inputCh)

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	idleDuration := s.idleTimeout
	if idleDuration <= 0 {
		idleDuration = 24 * time.Hour // effectively disabled; never fires in practice
	}
	idle := time.NewTimer(idleDuration)
	defer idle.Stop()

	dirty := false

	for {
		select {
		case <-ctx.Done():
			s.closeAll("server shutting down")
			return nil

		case in := <-inputCh:
			s.mu.Lock()
			c := s.clients[in.clientID]
			s.mu.Unlock()
			if c == nil {
				continue
			}
			for _, ks := range ParseInput(in.data) {
				ks.Apply(s.editor)
			}
			dirty = true
			resetIdle(idle, s.idleTimeout)
			if s.editor.ShouldQuit() {
				s.closeAll("server quit")
				return nil
			}

		case <-needsFullRenderCh:
			// Only the Run goroutine ever touches backend's coalescing
			// state (spec.md §5); a just-paired data connection reports
			// itself here instead of calling ResetStyleState directly,
			// and forces a redraw even if nothing has edited since so the
			// new client actually receives the full frame it needs.
			s.backend.ResetStyleState()
			dirty = true

		case ev := <-controlCh:
			s.handleControl(ev)
			resetIdle(idle, s.idleTimeout)
			if ev.msg.Type == "quit" || s.editor.ShouldQuit() {
				s.closeAll("server quit")
				return nil
			}

		case id := <-disconnectCh:
			s.mu.Lock()
			delete(s.clients, id)
			s.mu.Unlock()

		case <-ticker.C:
			if dirty {
				s.render()
				s.writeRecoveries()
				dirty = false
			}

		case <-idle.C:
			if s.idleTimeout > 0 {
				s.logger.Info("session idle timeout, shutting down", "name", s.paths.Name)
				s.closeAll("idle timeout")
				return nil
			}
		}
	}
}

func resetIdle(t *time.Timer, d time.Duration) {
	if d <= 0 {
		return
	}
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

type clientInput struct {
	clientID string
	data     []byte
}

type clientControlEvent struct {
	clientID string
	msg      ControlMessage
}

func (s *Server) acceptControl(ctx context.Context, ln net.Listener, controlCh chan<- clientControlEvent, disconnectCh chan<- string) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("control accept error", "err", err)
			continue
		}
		go s.serveControl(ctx, conn, controlCh, disconnectCh)
	}
}

func (s *Server) serveControl(ctx context.Context, conn net.Conn, controlCh chan<- clientControlEvent, disconnectCh chan<- string) {
	dec := json.NewDecoder(conn)
	var hello ControlMessage
	if err := dec.Decode(&hello); err != nil || hello.Type != "hello" {
		json.NewEncoder(conn).Encode(ServerError("expected hello"))
		conn.Close()
		return
	}

	enc := json.NewEncoder(conn)

	if hello.ProtocolVersion != Protocol {
		enc.Encode(ServerVersionMismatch(ServerVersion, hello.ClientVersion, "reject",
			"protocol version mismatch: server speaks "+strconv.Itoa(Protocol)))
		conn.Close()
		return
	}

	id := uuid.New().String()
	c := &client{id: id, ctrlConn: conn, ctrlEnc: enc}
	if hello.TermSize != nil {
		c.cols, c.rows = hello.TermSize.Cols, hello.TermSize.Rows
	}

	s.mu.Lock()
	s.pendingTokens[id] = c
	s.mu.Unlock()

	enc.Encode(ServerHello(ServerVersion, id))
	// The client is told its session id; it echoes it as the data
	// socket's first line so acceptData can pair the two connections.

	for {
		var msg ControlMessage
		if err := dec.Decode(&msg); err != nil {
			s.mu.Lock()
			delete(s.pendingTokens, id)
			delete(s.clients, id)
			s.mu.Unlock()
			disconnectCh <- id
			return
		}
		select {
		case controlCh <- clientControlEvent{clientID: id, msg: msg}:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) acceptData(ctx context.Context, ln net.Listener, inputCh chan<- clientInput) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("data accept error", "err", err)
			continue
		}
		go s.serveData(ctx, conn, inputCh)
	}
}

func (s *Server) serveData(ctx context.Context, conn net.Conn, inputCh chan<- clientInput) {
	reader := bufio.NewReader(conn)
	token, err := reader.ReadString('\n')
	if err != nil {
		conn.Close()
		return
	}
	id := trimNewline(token)

	s.mu.Lock()
	c, ok := s.pendingTokens[id]
	if ok {
		delete(s.pendingTokens, id)
		c.dataConn = conn
		s.clients[id] = c
	}
	needsFullRenderCh := s.needsFullRenderCh
	s.mu.Unlock()
	if !ok {
		conn.Close()
		return
	}

	select {
	case needsFullRenderCh <- struct{}{}:
	case <-ctx.Done():
		return
	}

	buf := make([]byte, 4096)
	for {
		n, err := reader.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			select {
			case inputCh <- clientInput{clientID: id, data: data}:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

func (s *Server) handleControl(ev clientControlEvent) {
	s.mu.Lock()
	c := s.clients[ev.clientID]
	if c == nil {
		c = s.pendingTokens[ev.clientID]
	}
	s.mu.Unlock()
	if c == nil {
		return
	}

	switch ev.msg.Type {
	case "resize":
		c.cols, c.rows = ev.msg.Cols, ev.msg.Rows
		s.backend.Resize(ev.msg.Cols, ev.msg.Rows)
	case "ping":
		c.sendControl(ServerPong())
	case "detach":
		s.mu.Lock()
		delete(s.clients, ev.clientID)
		s.mu.Unlock()
		c.sendControl(ServerQuit("detached"))
		c.ctrlConn.Close()
		if c.dataConn != nil {
			c.dataConn.Close()
		}
	case "open_files":
		for _, f := range ev.msg.Files {
			s.editor.OpenFile(f.Path)
		}
	case "quit":
		s.editor.HandleKey("quit")
	}
}

// render draws the active buffer into the capture backend and broadcasts
// the accumulated bytes to every connected client (spec.md §4.9: "render
// at most once per ~16ms; broadcast... to all clients").
func (s *Server) render() {
	st := s.editor.Active()
	if st == nil {
		return
	}
	cells := renderCells(st)
	s.backend.Draw(cells)
	out := s.backend.TakeBuffer()
	if len(out) == 0 {
		return
	}

	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if c.dataConn == nil {
			continue
		}
		if err := c.sendData(out); err != nil {
			s.logger.Warn("broadcast failed, dropping client", "client", c.id, "err", err)
		}
	}
}

// writeRecoveries backs up every open buffer's current bytes, keyed by
// buffer id, so a crash between here and the next real save never loses
// more than what the user typed since the last dirty render cycle (spec.md
// §6.4). A no-op when no workspace.Store is attached.
func (s *Server) writeRecoveries() {
	if s.ws == nil {
		return
	}
	for _, id := range s.editor.OpenBufferIDs() {
		st, ok := s.editor.State(id)
		if !ok {
			continue
		}
		key := strconv.FormatInt(int64(id), 10)
		if err := s.ws.WriteRecovery(key, st.Buffer.Path(), st.Buffer.Bytes()); err != nil {
			s.logger.Warn("recovery write failed", "buffer", key, "err", err)
		}
	}
}

func (s *Server) closeAll(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c.sendControl(ServerQuit(reason))
		c.ctrlConn.Close()
		if c.dataConn != nil {
			c.dataConn.Close()
		}
	}
	s.clients = map[string]*client{}
}
