package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/osiriscare/provision/internal/platform"
)

func TestRequestsOrderAndTools(t *testing.T) {
	reqs := Requests(true)

	want := []string{FeatureWeb, FeatureDNS, FeatureDHCP, FeatureRDS}
	if len(reqs) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(reqs))
	}
	for i, id := range want {
		if reqs[i].Identifier != id {
			t.Errorf("request %d: expected %s, got %s", i, id, reqs[i].Identifier)
		}
		if !reqs[i].IncludeTools {
			t.Errorf("request %d: expected IncludeTools", i)
		}
	}
}

func TestLabelsCoverAllIdentifiers(t *testing.T) {
	labels := Labels()
	for _, id := range Identifiers() {
		if labels[id] == "" {
			t.Errorf("missing label for %s", id)
		}
	}
	if len(labels) != len(Identifiers()) {
		t.Errorf("labels has %d entries, identifiers %d", len(labels), len(Identifiers()))
	}
}

func TestInstallAllFreshHost(t *testing.T) {
	f := platform.NewFake()
	results := NewInstaller(f).InstallAll(context.Background(), Requests(true))

	for _, r := range results {
		if !r.OK || r.Skipped {
			t.Errorf("%s: expected fresh install, got ok=%v skipped=%v err=%v",
				r.Identifier, r.OK, r.Skipped, r.Err)
		}
		if !f.Features[r.Identifier] {
			t.Errorf("%s not installed on host", r.Identifier)
		}
	}
}

func TestInstallAllAlreadyInstalledMakesNoMutations(t *testing.T) {
	f := platform.NewFake()
	for _, id := range Identifiers() {
		f.Features[id] = true
		f.KnownFeatures[id] = true
	}

	results := NewInstaller(f).InstallAll(context.Background(), Requests(false))

	for _, r := range results {
		if !r.OK || !r.Skipped {
			t.Errorf("%s: expected skipped success, got ok=%v skipped=%v", r.Identifier, r.OK, r.Skipped)
		}
	}
	if f.MutationCount() != 0 {
		t.Errorf("expected zero mutating calls, got %v", f.Mutations)
	}
}

func TestInstallAllFailureDoesNotAbortOthers(t *testing.T) {
	f := platform.NewFake()
	f.FailOn["InstallFeature:"+FeatureDHCP] = errors.New("component store corrupt")

	results := NewInstaller(f).InstallAll(context.Background(), Requests(true))

	byID := make(map[string]InstallResult)
	for _, r := range results {
		byID[r.Identifier] = r
	}

	if byID[FeatureDHCP].OK || byID[FeatureDHCP].Err == nil {
		t.Errorf("expected DHCP failure, got %+v", byID[FeatureDHCP])
	}
	for _, id := range []string{FeatureWeb, FeatureDNS, FeatureRDS} {
		if !byID[id].OK {
			t.Errorf("%s should still install after DHCP failure: %+v", id, byID[id])
		}
		if !f.Features[id] {
			t.Errorf("%s missing from host state", id)
		}
	}
}

func TestInstallAllQueryErrorFallsBackToInstall(t *testing.T) {
	f := platform.NewFake()
	f.FailOn["QueryFeature:"+FeatureWeb] = errors.New("probe unavailable")

	results := NewInstaller(f).InstallAll(context.Background(), Requests(true)[:1])

	if len(results) != 1 || !results[0].OK || results[0].Skipped {
		t.Fatalf("expected successful install despite probe error, got %+v", results)
	}
	if !f.Features[FeatureWeb] {
		t.Error("Web-Server not installed")
	}
}
