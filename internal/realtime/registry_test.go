package realtime

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"restaurant-ops/internal/domain"
	"restaurant-ops/internal/logger"
)

// newTestConn builds an authenticated connection over an in-memory pipe and
// returns the client side for reading the frames it emits.
func newTestConn(t *testing.T, id domain.Identity, queueSize int) (*Conn, net.Conn) {
	t.Helper()
	server, client := net.Pipe()
	c := newConn(server, queueSize, logger.New("test"))
	c.identity = id
	t.Cleanup(func() {
		c.Close()
		_ = client.Close()
	})
	return c, client
}

func readFrame(t *testing.T, client net.Conn, timeout time.Duration) (Frame, bool) {
	t.Helper()
	_ = client.SetReadDeadline(time.Now().Add(timeout))
	sc := bufio.NewScanner(client)
	if !sc.Scan() {
		return Frame{}, false
	}
	var f Frame
	if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
		t.Fatalf("bad frame %q: %v", sc.Text(), err)
	}
	return f, true
}

func identity(company, user string, role domain.Role) domain.Identity {
	return domain.Identity{UserID: user, CompanyID: company, Role: role, Username: user}
}

func TestRegistryTenantIsolation(t *testing.T) {
	reg := NewRegistry()
	a1, _ := newTestConn(t, identity("c1", "u1", domain.RoleManager), 4)
	a2, _ := newTestConn(t, identity("c1", "u2", domain.RoleKitchen), 4)
	b1, _ := newTestConn(t, identity("c2", "u1", domain.RoleManager), 4)

	for _, c := range []*Conn{a1, a2, b1} {
		if prev := reg.Admit(c); prev != nil {
			t.Fatalf("unexpected superseded connection")
		}
	}

	if got := len(reg.ListByCompany("c1")); got != 2 {
		t.Errorf("c1 has %d connections, want 2", got)
	}
	for _, c := range reg.ListByCompany("c1") {
		if c == b1 {
			t.Error("tenant c2 connection listed under c1")
		}
	}
	if got := len(reg.ListByCompany("c3")); got != 0 {
		t.Errorf("unknown tenant has %d connections", got)
	}
	if reg.Len() != 3 {
		t.Errorf("len = %d, want 3", reg.Len())
	}
}

func TestRegistryAdmitSupersedes(t *testing.T) {
	reg := NewRegistry()
	old, _ := newTestConn(t, identity("c1", "u1", domain.RoleManager), 4)
	fresh, _ := newTestConn(t, identity("c1", "u1", domain.RoleManager), 4)

	if prev := reg.Admit(old); prev != nil {
		t.Fatalf("first admit superseded something")
	}
	prev := reg.Admit(fresh)
	if prev != old {
		t.Fatalf("superseded = %v, want the older connection", prev)
	}
	if reg.Len() != 1 {
		t.Errorf("len = %d, want 1", reg.Len())
	}

	// The replaced connection must no longer be removable.
	if reg.Remove(old) {
		t.Error("removing superseded connection evicted the fresh one")
	}
	if got := reg.ListByCompany("c1"); len(got) != 1 || got[0] != fresh {
		t.Errorf("registry entry = %v, want the fresh connection", got)
	}
}

func TestRegistryRemoveIdempotent(t *testing.T) {
	reg := NewRegistry()
	c, _ := newTestConn(t, identity("c1", "u1", domain.RoleManager), 4)

	reg.Admit(c)
	if !reg.Remove(c) {
		t.Fatal("first remove failed")
	}
	if reg.Remove(c) {
		t.Error("second remove reported success")
	}
	if reg.Len() != 0 {
		t.Errorf("len = %d, want 0", reg.Len())
	}
}

func TestRegistrySubscribeValidation(t *testing.T) {
	reg := NewRegistry()
	attendant, _ := newTestConn(t, identity("c1", "u1", domain.RoleAttendant), 4)
	cook, _ := newTestConn(t, identity("c1", "u2", domain.RoleKitchen), 4)
	reg.Admit(attendant)
	reg.Admit(cook)

	var unknown *domain.UnknownChannelError
	if err := reg.Subscribe(attendant, "lounge"); !errors.As(err, &unknown) {
		t.Errorf("unknown channel: got %v", err)
	}

	var unauthorized *domain.UnauthorizedChannelError
	if err := reg.Subscribe(attendant, domain.ChannelKitchen); !errors.As(err, &unauthorized) {
		t.Errorf("attendant in kitchen: got %v", err)
	}
	if attendant.Subscribed(domain.ChannelKitchen) {
		t.Error("rejected subscription recorded anyway")
	}

	if err := reg.Subscribe(cook, domain.ChannelKitchen); err != nil {
		t.Fatalf("cook in kitchen: %v", err)
	}
	if err := reg.Subscribe(attendant, domain.ChannelGeneral); err != nil {
		t.Fatalf("attendant in general: %v", err)
	}

	members := reg.ListByChannel("c1", domain.ChannelKitchen)
	if len(members) != 1 || members[0] != cook {
		t.Errorf("kitchen members = %v, want only the cook", members)
	}
}

func TestRegistryUnsubscribe(t *testing.T) {
	reg := NewRegistry()
	c, _ := newTestConn(t, identity("c1", "u1", domain.RoleManager), 4)
	reg.Admit(c)

	if err := reg.Subscribe(c, domain.ChannelGeneral); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := reg.Unsubscribe(c, domain.ChannelGeneral); err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if c.Subscribed(domain.ChannelGeneral) {
		t.Error("still subscribed after unsubscribe")
	}
	// Leaving a channel never joined is fine.
	if err := reg.Unsubscribe(c, domain.ChannelSupport); err != nil {
		t.Errorf("unsubscribe without join: %v", err)
	}
}
