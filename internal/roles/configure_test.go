package roles

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/osiriscare/provision/internal/config"
	"github.com/osiriscare/provision/internal/platform"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	return &cfg
}

func staticAddr(ip string) *platform.AddressState {
	return &platform.AddressState{
		InterfaceID:  "4",
		IPAddress:    ip,
		PrefixLength: 24,
		Gateway:      "192.168.1.1",
		Origin:       platform.OriginManual,
	}
}

func allInstalled() map[string]bool {
	m := make(map[string]bool)
	for _, id := range Identifiers() {
		m[id] = true
	}
	return m
}

func TestConfigureAllAppliesEveryRole(t *testing.T) {
	f := platform.NewFake()
	cfg := testConfig()
	addr := staticAddr("192.168.1.10")

	results := ConfigureAll(context.Background(), Configurators(f, cfg, addr), allInstalled())

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.OK {
			t.Errorf("%s: unexpected failure: %v", r.Role, r.Err)
		}
	}

	if !f.AutostartSites["Default Web Site"] {
		t.Error("default site autostart not set")
	}
	if f.Zones["corp.local"] != "corp.local.dns" {
		t.Errorf("zone not created: %v", f.Zones)
	}
	if len(f.Forwarders) != 1 || f.Forwarders[0] != "8.8.8.8" {
		t.Errorf("forwarder not registered: %v", f.Forwarders)
	}
	if f.Scopes["LAN"] == "" {
		t.Error("scope not created")
	}
	if !f.Authorized {
		t.Error("DHCP server not authorized in directory")
	}
	if f.Registry[terminalServerKey+`\`+denyTSValue] != 0 {
		t.Error("deny-connections gate not cleared")
	}
	if !f.FirewallGroups[rdpFirewallGroup] {
		t.Error("remote desktop firewall group not enabled")
	}
}

func TestScopeOptionsUseStaticAddressFromThisRun(t *testing.T) {
	f := platform.NewFake()
	cfg := testConfig()
	// The host address deliberately differs from anything in the config:
	// the scope options must still point at it.
	addr := staticAddr("192.168.1.77")

	ConfigureAll(context.Background(), Configurators(f, cfg, addr), allInstalled())

	opts, ok := f.ScopeOptions["192.168.1.0"]
	if !ok {
		t.Fatalf("no options set for scope 192.168.1.0: %v", f.ScopeOptions)
	}
	if opts[0] != "192.168.1.77" || opts[1] != "192.168.1.77" {
		t.Errorf("router/dns options should equal the static address, got %v", opts)
	}
	if opts[2] != "corp.local" {
		t.Errorf("expected domain corp.local, got %s", opts[2])
	}
}

func TestConfigureAllSecondPassMakesNoMutations(t *testing.T) {
	f := platform.NewFake()
	cfg := testConfig()
	addr := staticAddr("192.168.1.10")

	first := ConfigureAll(context.Background(), Configurators(f, cfg, addr), allInstalled())
	for _, r := range first {
		if !r.OK {
			t.Fatalf("%s: first pass failed: %v", r.Role, r.Err)
		}
	}

	before := f.MutationCount()
	second := ConfigureAll(context.Background(), Configurators(f, cfg, addr), allInstalled())
	for _, r := range second {
		if !r.OK {
			t.Errorf("%s: second pass failed: %v", r.Role, r.Err)
		}
	}
	if got := f.MutationCount() - before; got != 0 {
		t.Errorf("expected zero mutations on a provisioned host, got %d: %v", got, f.Mutations[before:])
	}
}

func TestScopeOptionsRewrittenWhenDrifted(t *testing.T) {
	f := platform.NewFake()
	cfg := testConfig()
	// A previous run configured the options against a different address.
	f.ScopeOptions["192.168.1.0"] = [3]string{"192.168.1.5", "192.168.1.5", "corp.local"}

	ConfigureAll(context.Background(), Configurators(f, cfg, staticAddr("192.168.1.10")), allInstalled())

	opts := f.ScopeOptions["192.168.1.0"]
	if opts[0] != "192.168.1.10" || opts[1] != "192.168.1.10" {
		t.Errorf("drifted options should be rewritten to the current address, got %v", opts)
	}
}

func TestConfigureAllSkipsUninstalledRole(t *testing.T) {
	f := platform.NewFake()
	installed := allInstalled()
	installed[FeatureDHCP] = false

	results := ConfigureAll(context.Background(), Configurators(f, testConfig(), staticAddr("192.168.1.10")), installed)

	for _, r := range results {
		if r.Role == FeatureDHCP {
			t.Error("DHCP configuration ran despite failed install")
		}
	}
	if len(f.Scopes) != 0 || f.Authorized {
		t.Error("DHCP surface touched despite failed install")
	}
	// The independent roles still configured.
	if !f.AutostartSites["Default Web Site"] || len(f.Zones) != 1 || !f.FirewallGroups[rdpFirewallGroup] {
		t.Error("other roles should configure when DHCP install failed")
	}
}

func TestConfigureAllFailureDoesNotAbortOthers(t *testing.T) {
	f := platform.NewFake()
	f.FailOn["AddPrimaryZone"] = errors.New("dns service not responding")

	results := ConfigureAll(context.Background(), Configurators(f, testConfig(), staticAddr("192.168.1.10")), allInstalled())

	byRole := make(map[string]StepResult)
	for _, r := range results {
		byRole[r.Role] = r
	}
	if byRole[FeatureDNS].OK || byRole[FeatureDNS].Err == nil {
		t.Errorf("expected DNS failure, got %+v", byRole[FeatureDNS])
	}
	for _, id := range []string{FeatureWeb, FeatureDHCP, FeatureRDS} {
		if !byRole[id].OK {
			t.Errorf("%s should succeed after DNS failure: %+v", id, byRole[id])
		}
	}
}

func TestRDPSkipsRegistryWriteWhenGateAlreadyClear(t *testing.T) {
	f := platform.NewFake()
	f.Registry[terminalServerKey+`\`+denyTSValue] = 0

	c := &rdpConfig{surface: f}
	if err := c.Apply(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, m := range f.Mutations {
		if strings.HasPrefix(m, "SetRegistryDWORD") {
			t.Errorf("registry written although gate already clear: %s", m)
		}
	}
	if !f.FirewallGroups[rdpFirewallGroup] {
		t.Error("firewall group should still be enabled")
	}
}

func TestDNSConfigIdempotentOnExistingZone(t *testing.T) {
	f := platform.NewFake()
	f.Zones["corp.local"] = "corp.local.dns"
	f.Forwarders = []string{"8.8.8.8"}

	c := &dnsConfig{surface: f, zone: "corp.local", zoneFile: "corp.local.dns", forwarder: "8.8.8.8"}
	if err := c.Apply(context.Background()); err != nil {
		t.Fatalf("existing zone should be a no-op, got %v", err)
	}
	if f.MutationCount() != 0 {
		t.Errorf("expected zero mutations on already-configured DNS, got %v", f.Mutations)
	}
}

func TestNetworkID(t *testing.T) {
	tests := []struct {
		ip      string
		mask    string
		want    string
		wantErr bool
	}{
		{"192.168.1.100", "255.255.255.0", "192.168.1.0", false},
		{"10.0.0.5", "255.0.0.0", "10.0.0.0", false},
		{"172.16.37.200", "255.255.240.0", "172.16.32.0", false},
		{"not-an-ip", "255.255.255.0", "", true},
		{"192.168.1.100", "garbage", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ip+"/"+tt.mask, func(t *testing.T) {
			got, err := networkID(tt.ip, tt.mask)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
