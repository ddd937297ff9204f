package realtime

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

const maxFrameSize = 256 * 1024

// TokenVerifier validates the bearer credential presented during the
// handshake. Satisfied by auth.Verifier.
type TokenVerifier interface {
	Verify(token string) (domain.Identity, error)
}

type ServerConfig struct {
	Addr             string
	HandshakeTimeout time.Duration
	QueueSize        int
}

// Server accepts duplex client connections, runs the authentication
// handshake, and services each connection with a dedicated goroutine.
type Server struct {
	cfg      ServerConfig
	verifier TokenVerifier
	reg      *Registry
	hub      *Hub
	lg       *logger.Logger

	ln net.Listener
}

func NewServer(cfg ServerConfig, verifier TokenVerifier, reg *Registry, hub *Hub, lg *logger.Logger) *Server {
	return &Server{cfg: cfg, verifier: verifier, reg: reg, hub: hub, lg: lg}
}

// Listen binds the TCP listener. Separate from Serve so callers (and tests)
// can learn the bound address before serving.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	return nil
}

func (s *Server) Address() string {
	if s.ln == nil {
		return s.cfg.Addr
	}
	return s.ln.Addr().String()
}

// Serve blocks accepting connections until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	if s.ln == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	go func() {
		<-ctx.Done()
		_ = s.ln.Close()
	}()

	s.lg.Info("gateway_listening", map[string]any{"addr": s.Address()})
	for {
		nc, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handle(nc)
	}
}

// handle owns one connection from accept to close: handshake first, then the
// message loop. Any protocol error terminates only this connection.
func (s *Server) handle(nc net.Conn) {
	conn := newConn(nc, s.cfg.QueueSize, s.lg)
	defer func() {
		s.reg.Remove(conn)
		// Let the writer flush any pending frame (a final error notice, say)
		// before the socket goes away.
		conn.CloseAfterDrain()
	}()

	sc := bufio.NewScanner(nc)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)

	if !s.handshake(conn, sc, nc) {
		return
	}

	id := conn.Identity()
	lg := s.lg.With(map[string]any{"company_id": id.CompanyID, "user_id": id.UserID})
	lg.Info("connection_admitted", map[string]any{"username": id.Username})

	for sc.Scan() {
		conn.Touch()
		msg, err := DecodeInbound(sc.Bytes())
		if err != nil {
			var unrec *UnrecognizedMessageError
			if errors.As(err, &unrec) {
				conn.Send(TypeError, ErrorPayload{Message: unrec.Error()})
				continue
			}
			// Broken framing: tell the client and drop the connection.
			conn.Send(TypeError, ErrorPayload{Message: err.Error()})
			lg.Debug("connection_dropped", map[string]any{"reason": err.Error()})
			return
		}

		switch m := msg.(type) {
		case Ping:
			conn.Send(TypePong, nil)
		case JoinChannel:
			if err := s.reg.Subscribe(conn, m.Channel); err != nil {
				conn.Send(TypeError, ErrorPayload{Message: err.Error()})
				continue
			}
			conn.Send(TypeChannelJoined, ChannelEvent{Channel: m.Channel})
		case LeaveChannel:
			if err := s.reg.Unsubscribe(conn, m.Channel); err != nil {
				conn.Send(TypeError, ErrorPayload{Message: err.Error()})
				continue
			}
			conn.Send(TypeChannelLeft, ChannelEvent{Channel: m.Channel})
		case AuthRequest:
			conn.Send(TypeError, ErrorPayload{Message: "already authenticated"})
		}
	}
	lg.Debug("connection_closed", nil)
}

// handshake enforces auth-first with a bounded wait: the first frame must
// arrive within the handshake timeout and must be an auth message carrying a
// valid token. On success the connection is admitted to the registry and any
// superseded connection for the same user is told and closed.
func (s *Server) handshake(conn *Conn, sc *bufio.Scanner, nc net.Conn) bool {
	_ = nc.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	defer func() { _ = nc.SetReadDeadline(time.Time{}) }()

	if !sc.Scan() {
		s.lg.Debug("handshake_timeout", map[string]any{"remote": nc.RemoteAddr().String()})
		return false
	}
	msg, err := DecodeInbound(sc.Bytes())
	if err != nil {
		conn.Send(TypeError, ErrorPayload{Message: err.Error()})
		return false
	}
	req, ok := msg.(AuthRequest)
	if !ok {
		conn.Send(TypeError, ErrorPayload{Message: "auth must be the first message"})
		return false
	}

	identity, err := s.verifier.Verify(req.Token)
	if err != nil {
		conn.Send(TypeError, ErrorPayload{Message: "authentication failed"})
		s.lg.Debug("handshake_rejected", map[string]any{"remote": nc.RemoteAddr().String()})
		return false
	}
	conn.identity = identity

	if prev := s.reg.Admit(conn); prev != nil {
		prev.Send(TypeError, ErrorPayload{Message: "superseded by a new connection"})
		prev.CloseAfterDrain()
	}

	conn.Send(TypeAuthSuccess, AuthSuccess{
		UserID:    identity.UserID,
		Username:  identity.Username,
		CompanyID: identity.CompanyID,
	})
	return true
}
