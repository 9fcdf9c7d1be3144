// Package netconf converts the active adapter's dynamic address into a
// static assignment.
//
// The conversion is the riskiest step of a provisioning run: between
// removing the leased address and re-adding it statically the interface
// is unreachable, and a failure there used to strand the host with no
// address at all. The configurator therefore snapshots the current state
// (persisted through the journal when one is attached) before touching
// anything and restores it best-effort on failure.
package netconf

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/osiriscare/provision/internal/platform"
)

// ErrNoActiveAdapter is returned when no network interface is up. The run
// aborts immediately: nothing later can work without connectivity.
var ErrNoActiveAdapter = errors.New("no active network adapter found")

// Snapshotter persists the pre-change address state across a crash.
type Snapshotter interface {
	SaveSnapshot(*platform.AddressState) error
	LoadSnapshot() (*platform.AddressState, error)
	ClearSnapshot() error
}

// Configurator ensures the active adapter carries a static address.
type Configurator struct {
	surface platform.Surface
	snap    Snapshotter // may be nil when the journal is unavailable
}

// New creates a Configurator. snap may be nil.
func New(surface platform.Surface, snap Snapshotter) *Configurator {
	return &Configurator{surface: surface, snap: snap}
}

// EnsureStatic makes the first up adapter's IPv4 address a static
// assignment carrying the same address, prefix, and gateway it had, and
// points the interface's DNS resolution at the host itself.
//
// Idempotent: an adapter whose address origin is already Manual is
// returned unchanged with zero mutating calls.
func (c *Configurator) EnsureStatic(ctx context.Context) (*platform.AddressState, error) {
	adapters, err := c.surface.ListAdapters(ctx)
	if err != nil {
		return nil, fmt.Errorf("list adapters: %w", err)
	}

	var active *platform.Adapter
	for i := range adapters {
		if adapters[i].Up {
			active = &adapters[i]
			break
		}
	}
	if active == nil {
		return nil, ErrNoActiveAdapter
	}
	log.Printf("[netconf] Active adapter: %s (interface %s)", active.Name, active.InterfaceID)

	state, err := c.surface.GetAddress(ctx, active.InterfaceID)
	if err != nil {
		// A previous run may have died between removing the leased
		// address and re-adding it. If we hold a snapshot for this
		// interface, put it back and carry on.
		if recovered := c.recover(ctx, active.InterfaceID, err); recovered != nil {
			state = recovered
		} else {
			return nil, fmt.Errorf("read address on interface %s: %w", active.InterfaceID, err)
		}
	}

	if state.Origin == platform.OriginManual {
		log.Printf("[netconf] Address %s/%d already static, nothing to do",
			state.IPAddress, state.PrefixLength)
		c.clearSnapshot()
		return state, nil
	}

	log.Printf("[netconf] Converting %s/%d (origin %s, gw %s) to static",
		state.IPAddress, state.PrefixLength, state.Origin, state.Gateway)

	if c.snap != nil {
		if err := c.snap.SaveSnapshot(state); err != nil {
			log.Printf("[netconf] WARNING: failed to persist snapshot: %v", err)
		}
	}

	if err := c.apply(ctx, state); err != nil {
		c.restore(ctx, state)
		return nil, err
	}

	c.clearSnapshot()

	static := *state
	static.Origin = platform.OriginManual
	log.Printf("[netconf] Interface %s now static: %s/%d gw %s dns %s",
		static.InterfaceID, static.IPAddress, static.PrefixLength, static.Gateway, static.IPAddress)
	return &static, nil
}

// apply performs the remove/re-add/DNS sequence.
func (c *Configurator) apply(ctx context.Context, state *platform.AddressState) error {
	if err := c.surface.RemoveAddress(ctx, state.InterfaceID); err != nil {
		return fmt.Errorf("remove leased address: %w", err)
	}
	if err := c.surface.AddAddress(ctx, state.InterfaceID, state.IPAddress, state.PrefixLength, state.Gateway); err != nil {
		return fmt.Errorf("assign static address: %w", err)
	}
	if err := c.surface.SetDNSServers(ctx, state.InterfaceID, []string{state.IPAddress}); err != nil {
		return fmt.Errorf("set DNS server: %w", err)
	}
	return nil
}

// restore best-effort re-applies the snapshotted address after a failed
// conversion so the interface is not left addressless. Restore errors are
// reported but never mask the original failure.
func (c *Configurator) restore(ctx context.Context, state *platform.AddressState) {
	log.Printf("[netconf] Conversion failed, restoring %s/%d on interface %s",
		state.IPAddress, state.PrefixLength, state.InterfaceID)

	if err := c.surface.AddAddress(ctx, state.InterfaceID, state.IPAddress, state.PrefixLength, state.Gateway); err != nil {
		log.Printf("[netconf] WARNING: restore failed, interface %s may be addressless: %v",
			state.InterfaceID, err)
		return
	}
	c.clearSnapshot()
	log.Printf("[netconf] Restore complete")
}

// recover re-applies a persisted snapshot from a crashed earlier run.
// Returns the restored state, or nil when no usable snapshot exists.
func (c *Configurator) recover(ctx context.Context, ifaceID string, cause error) *platform.AddressState {
	if c.snap == nil {
		return nil
	}
	snap, err := c.snap.LoadSnapshot()
	if err != nil || snap == nil || snap.InterfaceID != ifaceID {
		return nil
	}

	log.Printf("[netconf] Interface %s unreadable (%v); restoring snapshot from interrupted run", ifaceID, cause)
	if err := c.surface.AddAddress(ctx, snap.InterfaceID, snap.IPAddress, snap.PrefixLength, snap.Gateway); err != nil {
		log.Printf("[netconf] WARNING: snapshot restore failed: %v", err)
		return nil
	}

	restored := *snap
	// Keep the snapshot's dynamic origin so the caller runs the full
	// conversion sequence over the restored address.
	restored.Origin = snap.Origin
	return &restored
}

func (c *Configurator) clearSnapshot() {
	if c.snap == nil {
		return
	}
	if err := c.snap.ClearSnapshot(); err != nil {
		log.Printf("[netconf] WARNING: failed to clear snapshot: %v", err)
	}
}
