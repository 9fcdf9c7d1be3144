package journal

import (
	"path/filepath"
	"testing"

	"github.com/osiriscare/provision/internal/platform"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "provision.db"))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndSteps(t *testing.T) {
	j := openTestJournal(t)

	if err := j.Record("network", true, "10.0.0.5/24 static"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := j.Record("install:DHCP", false, "component store corrupt"); err != nil {
		t.Fatalf("record: %v", err)
	}

	steps, err := j.Steps(10)
	if err != nil {
		t.Fatalf("steps: %v", err)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}

	if steps[0].Step != "network" || !steps[0].OK {
		t.Errorf("unexpected first step: %+v", steps[0])
	}
	if steps[1].Step != "install:DHCP" || steps[1].OK || steps[1].Detail != "component store corrupt" {
		t.Errorf("unexpected second step: %+v", steps[1])
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	j := openTestJournal(t)

	state := &platform.AddressState{
		InterfaceID:  "4",
		IPAddress:    "10.0.0.5",
		PrefixLength: 24,
		Gateway:      "10.0.0.1",
		Origin:       platform.OriginDHCP,
	}
	if err := j.SaveSnapshot(state); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := j.LoadSnapshot()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if *loaded != *state {
		t.Errorf("round trip mismatch: saved %+v, loaded %+v", state, loaded)
	}
}

func TestSnapshotOverwrite(t *testing.T) {
	j := openTestJournal(t)

	first := &platform.AddressState{InterfaceID: "4", IPAddress: "10.0.0.5", PrefixLength: 24, Origin: platform.OriginDHCP}
	second := &platform.AddressState{InterfaceID: "7", IPAddress: "10.0.0.9", PrefixLength: 16, Origin: platform.OriginDHCP}

	if err := j.SaveSnapshot(first); err != nil {
		t.Fatal(err)
	}
	if err := j.SaveSnapshot(second); err != nil {
		t.Fatal(err)
	}

	loaded, err := j.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if loaded.InterfaceID != "7" || loaded.IPAddress != "10.0.0.9" {
		t.Errorf("expected latest snapshot, got %+v", loaded)
	}
}

func TestLoadSnapshotEmpty(t *testing.T) {
	j := openTestJournal(t)

	loaded, err := j.LoadSnapshot()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil snapshot, got %+v", loaded)
	}
}

func TestClearSnapshot(t *testing.T) {
	j := openTestJournal(t)

	state := &platform.AddressState{InterfaceID: "4", IPAddress: "10.0.0.5", PrefixLength: 24, Origin: platform.OriginDHCP}
	if err := j.SaveSnapshot(state); err != nil {
		t.Fatal(err)
	}
	if err := j.ClearSnapshot(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	loaded, err := j.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Errorf("snapshot should be gone, got %+v", loaded)
	}
}
