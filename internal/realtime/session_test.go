package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

type fakeVerifier map[string]domain.Identity

func (f fakeVerifier) Verify(token string) (domain.Identity, error) {
	id, ok := f[token]
	if !ok {
		return domain.Identity{}, errors.New("bad token")
	}
	return id, nil
}

func startGateway(t *testing.T, verifier TokenVerifier, handshakeTimeout time.Duration) (*Server, *Hub) {
	t.Helper()
	reg := NewRegistry()
	hub := NewHub(reg, logger.New("test"))
	srv := NewServer(ServerConfig{
		Addr:             "127.0.0.1:0",
		HandshakeTimeout: handshakeTimeout,
		QueueSize:        8,
	}, verifier, reg, hub, logger.New("test"))
	if err := srv.Listen(); err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Serve(ctx) }()
	return srv, hub
}

// testClient keeps one scanner for the life of the connection so buffered
// frames are never lost between reads.
type testClient struct {
	nc net.Conn
	sc *bufio.Scanner
}

func dialGateway(t *testing.T, addr string) *testClient {
	t.Helper()
	nc, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = nc.Close() })
	sc := bufio.NewScanner(nc)
	sc.Buffer(make([]byte, 0, 4096), maxFrameSize)
	return &testClient{nc: nc, sc: sc}
}

func (c *testClient) send(t *testing.T, typ string, data any) {
	t.Helper()
	b, err := EncodeFrame(typ, data)
	if err != nil {
		t.Fatalf("encode %s: %v", typ, err)
	}
	if _, err := c.nc.Write(b); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func (c *testClient) sendRaw(t *testing.T, line string) {
	t.Helper()
	if _, err := c.nc.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write raw: %v", err)
	}
}

func (c *testClient) read(t *testing.T, timeout time.Duration) (Frame, bool) {
	t.Helper()
	_ = c.nc.SetReadDeadline(time.Now().Add(timeout))
	if !c.sc.Scan() {
		return Frame{}, false
	}
	var f Frame
	if err := json.Unmarshal(c.sc.Bytes(), &f); err != nil {
		t.Fatalf("bad frame %q: %v", c.sc.Text(), err)
	}
	return f, true
}

func (c *testClient) authenticate(t *testing.T, token string) {
	t.Helper()
	c.send(t, TypeAuth, AuthRequest{Token: token})
	f, ok := c.read(t, time.Second)
	if !ok || f.Type != TypeAuthSuccess {
		t.Fatalf("auth response = %+v ok=%v, want auth_success", f, ok)
	}
}

var gatewayUsers = fakeVerifier{
	"tok-boss": identity("c1", "boss", domain.RoleManager),
	"tok-cook": identity("c1", "cook", domain.RoleKitchen),
}

func TestGatewayAuthFlow(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, time.Second)
	client := dialGateway(t, srv.Address())

	client.send(t, TypeAuth, AuthRequest{Token: "tok-boss"})
	f, ok := client.read(t, time.Second)
	if !ok {
		t.Fatal("no handshake response")
	}
	if f.Type != TypeAuthSuccess {
		t.Fatalf("type = %s, want auth_success", f.Type)
	}
	var payload AuthSuccess
	if err := json.Unmarshal(f.Data, &payload); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.UserID != "boss" || payload.CompanyID != "c1" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestGatewayJoinLeavePing(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, time.Second)
	client := dialGateway(t, srv.Address())
	client.authenticate(t, "tok-cook")

	client.send(t, TypeJoinChannel, JoinChannel{Channel: domain.ChannelKitchen})
	if f, ok := client.read(t, time.Second); !ok || f.Type != TypeChannelJoined {
		t.Fatalf("join response = %+v ok=%v", f, ok)
	}

	client.send(t, TypePing, nil)
	if f, ok := client.read(t, time.Second); !ok || f.Type != TypePong {
		t.Fatalf("ping response = %+v ok=%v", f, ok)
	}

	client.send(t, TypeLeaveChannel, LeaveChannel{Channel: domain.ChannelKitchen})
	if f, ok := client.read(t, time.Second); !ok || f.Type != TypeChannelLeft {
		t.Fatalf("leave response = %+v ok=%v", f, ok)
	}
}

func TestGatewayJoinDeniedByRole(t *testing.T) {
	srv, _ := startGateway(t, fakeVerifier{
		"tok-waiter": identity("c1", "waiter", domain.RoleAttendant),
	}, time.Second)
	client := dialGateway(t, srv.Address())
	client.authenticate(t, "tok-waiter")

	client.send(t, TypeJoinChannel, JoinChannel{Channel: domain.ChannelKitchen})
	f, ok := client.read(t, time.Second)
	if !ok || f.Type != TypeError {
		t.Fatalf("response = %+v ok=%v, want error frame", f, ok)
	}

	// The connection survives a denied join.
	client.send(t, TypePing, nil)
	if f, ok := client.read(t, time.Second); !ok || f.Type != TypePong {
		t.Fatalf("post-error ping = %+v ok=%v", f, ok)
	}
}

func TestGatewayRejectsBadToken(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, time.Second)
	client := dialGateway(t, srv.Address())

	client.send(t, TypeAuth, AuthRequest{Token: "forged"})
	f, ok := client.read(t, time.Second)
	if !ok || f.Type != TypeError {
		t.Fatalf("response = %+v ok=%v, want error frame", f, ok)
	}
	if _, ok := client.read(t, time.Second); ok {
		t.Error("connection stayed open after failed auth")
	}
}

func TestGatewayAuthMustBeFirst(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, time.Second)
	client := dialGateway(t, srv.Address())

	client.send(t, TypeJoinChannel, JoinChannel{Channel: domain.ChannelGeneral})
	f, ok := client.read(t, time.Second)
	if !ok || f.Type != TypeError {
		t.Fatalf("response = %+v ok=%v, want error frame", f, ok)
	}
	if _, ok := client.read(t, time.Second); ok {
		t.Error("connection stayed open without authentication")
	}
}

func TestGatewayUnknownTypeKeepsConnection(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, time.Second)
	client := dialGateway(t, srv.Address())
	client.authenticate(t, "tok-boss")

	client.sendRaw(t, `{"type":"subscribe","data":{}}`)
	f, ok := client.read(t, time.Second)
	if !ok || f.Type != TypeError {
		t.Fatalf("response = %+v ok=%v, want error frame", f, ok)
	}

	client.send(t, TypePing, nil)
	if f, ok := client.read(t, time.Second); !ok || f.Type != TypePong {
		t.Fatalf("post-error ping = %+v ok=%v", f, ok)
	}
}

func TestGatewayRepeatedAuth(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, time.Second)
	client := dialGateway(t, srv.Address())
	client.authenticate(t, "tok-boss")

	client.send(t, TypeAuth, AuthRequest{Token: "tok-boss"})
	f, ok := client.read(t, time.Second)
	if !ok || f.Type != TypeError {
		t.Fatalf("response = %+v ok=%v, want error frame", f, ok)
	}
}

func TestGatewaySupersededConnection(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, time.Second)

	first := dialGateway(t, srv.Address())
	first.authenticate(t, "tok-boss")

	second := dialGateway(t, srv.Address())
	second.authenticate(t, "tok-boss")

	f, ok := first.read(t, time.Second)
	if !ok || f.Type != TypeError {
		t.Fatalf("superseded notice = %+v ok=%v, want error frame", f, ok)
	}
	var payload ErrorPayload
	if err := json.Unmarshal(f.Data, &payload); err != nil || !strings.Contains(payload.Message, "superseded") {
		t.Errorf("payload = %s (err %v)", f.Data, err)
	}
	if _, ok := first.read(t, time.Second); ok {
		t.Error("superseded connection stayed open")
	}

	// The fresh connection is unaffected.
	second.send(t, TypePing, nil)
	if f, ok := second.read(t, time.Second); !ok || f.Type != TypePong {
		t.Fatalf("fresh connection ping = %+v ok=%v", f, ok)
	}
}

func TestGatewayHandshakeTimeout(t *testing.T) {
	srv, _ := startGateway(t, gatewayUsers, 100*time.Millisecond)
	client := dialGateway(t, srv.Address())

	// Say nothing; the gateway must hang up once the handshake window closes.
	if f, ok := client.read(t, time.Second); ok {
		t.Fatalf("unexpected frame before close: %+v", f)
	}
	if err := client.sc.Err(); err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			t.Fatal("client read timed out; gateway never closed the connection")
		}
	}
}

func TestGatewayDeliversEventsAfterJoin(t *testing.T) {
	srv, hub := startGateway(t, gatewayUsers, time.Second)

	cook := dialGateway(t, srv.Address())
	cook.authenticate(t, "tok-cook")
	cook.send(t, TypeJoinChannel, JoinChannel{Channel: domain.ChannelKitchen})
	if f, ok := cook.read(t, time.Second); !ok || f.Type != TypeChannelJoined {
		t.Fatalf("join response = %+v ok=%v", f, ok)
	}

	boss := dialGateway(t, srv.Address())
	boss.authenticate(t, "tok-boss")

	hub.Dispatch(domain.NewOrderCreated(testOrder("c1")))
	for _, client := range []*testClient{cook, boss} {
		f, ok := client.read(t, time.Second)
		if !ok || f.Type != TypeOrderUpdate {
			t.Fatalf("order frame = %+v ok=%v", f, ok)
		}
	}

	hub.Dispatch(domain.NewChatMessagePosted(domain.ChatMessage{
		ID: "m1", CompanyID: "c1", Channel: domain.ChannelKitchen,
		UserID: "cook", Username: "cook", Content: "86 anchovies",
	}))
	if f, ok := cook.read(t, time.Second); !ok || f.Type != TypeChatMessage {
		t.Fatalf("chat frame = %+v ok=%v", f, ok)
	}
	if f, ok := boss.read(t, 50*time.Millisecond); ok {
		t.Errorf("unsubscribed user received channel message: %+v", f)
	}
}
