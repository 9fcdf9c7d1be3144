package netconf

import (
	"context"
	"errors"
	"testing"

	"github.com/osiriscare/provision/internal/platform"
)

// memSnap is an in-memory Snapshotter.
type memSnap struct {
	state *platform.AddressState
}

func (m *memSnap) SaveSnapshot(s *platform.AddressState) error {
	copied := *s
	m.state = &copied
	return nil
}

func (m *memSnap) LoadSnapshot() (*platform.AddressState, error) {
	return m.state, nil
}

func (m *memSnap) ClearSnapshot() error {
	m.state = nil
	return nil
}

func fakeWithDHCPAddress() *platform.Fake {
	f := platform.NewFake()
	f.Adapters = []platform.Adapter{
		{Name: "Ethernet0", InterfaceID: "4", Up: true},
	}
	f.Addresses["4"] = &platform.AddressState{
		InterfaceID:  "4",
		IPAddress:    "10.0.0.5",
		PrefixLength: 24,
		Gateway:      "10.0.0.1",
		Origin:       platform.OriginDHCP,
	}
	return f
}

func TestEnsureStaticConvertsDHCPAddress(t *testing.T) {
	f := fakeWithDHCPAddress()
	c := New(f, &memSnap{})

	state, err := c.EnsureStatic(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.Origin != platform.OriginManual {
		t.Errorf("expected Manual origin, got %s", state.Origin)
	}
	if state.IPAddress != "10.0.0.5" || state.PrefixLength != 24 || state.Gateway != "10.0.0.1" {
		t.Errorf("address changed during conversion: %+v", state)
	}

	applied := f.Addresses["4"]
	if applied == nil {
		t.Fatal("interface lost its address")
	}
	if applied.Origin != platform.OriginManual {
		t.Errorf("expected applied origin Manual, got %s", applied.Origin)
	}
	if applied.IPAddress != "10.0.0.5" || applied.Gateway != "10.0.0.1" {
		t.Errorf("applied address differs from captured: %+v", applied)
	}

	dns := f.DNSServers["4"]
	if len(dns) != 1 || dns[0] != "10.0.0.5" {
		t.Errorf("expected DNS server [10.0.0.5], got %v", dns)
	}
}

func TestEnsureStaticManualIsNoOp(t *testing.T) {
	f := fakeWithDHCPAddress()
	f.Addresses["4"].Origin = platform.OriginManual
	c := New(f, &memSnap{})

	state, err := c.EnsureStatic(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.MutationCount() != 0 {
		t.Errorf("expected zero mutating calls, got %d: %v", f.MutationCount(), f.Mutations)
	}
	if state.IPAddress != "10.0.0.5" || state.Origin != platform.OriginManual {
		t.Errorf("expected existing state returned unchanged, got %+v", state)
	}
}

func TestEnsureStaticNoActiveAdapter(t *testing.T) {
	f := platform.NewFake()
	f.Adapters = []platform.Adapter{
		{Name: "Ethernet0", InterfaceID: "4", Up: false},
	}
	c := New(f, &memSnap{})

	_, err := c.EnsureStatic(context.Background())
	if !errors.Is(err, ErrNoActiveAdapter) {
		t.Fatalf("expected ErrNoActiveAdapter, got %v", err)
	}
	if f.MutationCount() != 0 {
		t.Errorf("expected zero mutating calls on abort, got %v", f.Mutations)
	}
}

func TestEnsureStaticPicksFirstUpAdapter(t *testing.T) {
	f := fakeWithDHCPAddress()
	f.Adapters = []platform.Adapter{
		{Name: "Ethernet1", InterfaceID: "7", Up: false},
		{Name: "Ethernet0", InterfaceID: "4", Up: true},
		{Name: "Ethernet2", InterfaceID: "9", Up: true},
	}
	c := New(f, &memSnap{})

	state, err := c.EnsureStatic(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.InterfaceID != "4" {
		t.Errorf("expected first up interface 4, got %s", state.InterfaceID)
	}
}

func TestEnsureStaticRestoresOnFailure(t *testing.T) {
	f := fakeWithDHCPAddress()
	f.FailOn["SetDNSServers"] = errors.New("dns write refused")
	snap := &memSnap{}
	c := New(f, snap)

	_, err := c.EnsureStatic(context.Background())
	if err == nil {
		t.Fatal("expected error from failed conversion")
	}

	restored := f.Addresses["4"]
	if restored == nil {
		t.Fatal("interface left addressless after failed conversion")
	}
	if restored.IPAddress != "10.0.0.5" || restored.Gateway != "10.0.0.1" {
		t.Errorf("restored address differs from snapshot: %+v", restored)
	}
	if snap.state != nil {
		t.Error("snapshot should be cleared after a successful restore")
	}
}

func TestEnsureStaticRestoreFailureKeepsSnapshot(t *testing.T) {
	f := fakeWithDHCPAddress()
	f.FailOn["AddAddress"] = errors.New("address store unavailable")
	snap := &memSnap{}
	c := New(f, snap)

	_, err := c.EnsureStatic(context.Background())
	if err == nil {
		t.Fatal("expected error from failed conversion")
	}

	if snap.state == nil {
		t.Fatal("snapshot must survive a failed restore for the next run")
	}
	if snap.state.IPAddress != "10.0.0.5" {
		t.Errorf("snapshot holds wrong address: %+v", snap.state)
	}
}

func TestEnsureStaticRecoversFromInterruptedRun(t *testing.T) {
	f := platform.NewFake()
	f.Adapters = []platform.Adapter{
		{Name: "Ethernet0", InterfaceID: "4", Up: true},
	}
	// No address on the interface: a previous run died mid-conversion,
	// leaving only the persisted snapshot behind.
	snap := &memSnap{state: &platform.AddressState{
		InterfaceID:  "4",
		IPAddress:    "10.0.0.5",
		PrefixLength: 24,
		Gateway:      "10.0.0.1",
		Origin:       platform.OriginDHCP,
	}}
	c := New(f, snap)

	state, err := c.EnsureStatic(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if state.Origin != platform.OriginManual || state.IPAddress != "10.0.0.5" {
		t.Errorf("expected recovered static 10.0.0.5, got %+v", state)
	}
	if f.Addresses["4"] == nil {
		t.Fatal("interface still addressless after recovery")
	}
	if snap.state != nil {
		t.Error("snapshot should be cleared after recovery completes")
	}
}
