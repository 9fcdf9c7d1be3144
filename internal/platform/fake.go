package platform

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory Surface for tests. It keeps a model of host state,
// records every call in an effect log, and can be told to fail specific
// operations. Mutating calls are additionally recorded in Mutations so
// tests can assert that idempotent paths touch nothing.
type Fake struct {
	mu sync.Mutex

	Features       map[string]bool
	KnownFeatures  map[string]bool // identifiers the platform recognizes
	Adapters       []Adapter
	Addresses      map[string]*AddressState
	DNSServers     map[string][]string
	Zones          map[string]string
	Forwarders     []string
	Scopes         map[string]string // scope name -> "start-end/mask"
	ScopeOptions   map[string][3]string
	Authorized     bool
	AutostartSites map[string]bool
	Registry       map[string]uint32
	FirewallGroups map[string]bool

	Calls     []string
	Mutations []string

	// FailOn maps an operation name (e.g. "InstallFeature:DHCP",
	// "RemoveAddress") to an error returned instead of applying it.
	FailOn map[string]error
}

// NewFake returns an empty fake host with no adapters and no features.
func NewFake() *Fake {
	return &Fake{
		Features:       make(map[string]bool),
		KnownFeatures:  make(map[string]bool),
		Addresses:      make(map[string]*AddressState),
		DNSServers:     make(map[string][]string),
		Zones:          make(map[string]string),
		Scopes:         make(map[string]string),
		ScopeOptions:   make(map[string][3]string),
		AutostartSites: make(map[string]bool),
		Registry:       make(map[string]uint32),
		FirewallGroups: make(map[string]bool),
		FailOn:         make(map[string]error),
	}
}

func (f *Fake) record(call string) {
	f.Calls = append(f.Calls, call)
}

func (f *Fake) mutate(call string) {
	f.Calls = append(f.Calls, call)
	f.Mutations = append(f.Mutations, call)
}

// fail checks the injection table for the op itself and for op:qualifier.
func (f *Fake) fail(op, qualifier string) error {
	if err, ok := f.FailOn[op+":"+qualifier]; ok {
		return err
	}
	if err, ok := f.FailOn[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) InstallFeature(ctx context.Context, id string, includeTools bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("InstallFeature", id); err != nil {
		f.record(fmt.Sprintf("InstallFeature(%s) -> error", id))
		return err
	}
	f.mutate(fmt.Sprintf("InstallFeature(%s, tools=%v)", id, includeTools))
	f.Features[id] = true
	f.KnownFeatures[id] = true
	return nil
}

func (f *Fake) QueryFeature(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("QueryFeature", id); err != nil {
		return false, err
	}
	f.record(fmt.Sprintf("QueryFeature(%s)", id))
	if len(f.KnownFeatures) > 0 && !f.KnownFeatures[id] {
		return false, fmt.Errorf("%w: %s", ErrFeatureNotFound, id)
	}
	return f.Features[id], nil
}

func (f *Fake) ListAdapters(ctx context.Context) ([]Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListAdapters", ""); err != nil {
		return nil, err
	}
	f.record("ListAdapters()")
	return append([]Adapter(nil), f.Adapters...), nil
}

func (f *Fake) GetAddress(ctx context.Context, ifaceID string) (*AddressState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetAddress", ifaceID); err != nil {
		return nil, err
	}
	f.record(fmt.Sprintf("GetAddress(%s)", ifaceID))
	state, ok := f.Addresses[ifaceID]
	if !ok {
		return nil, fmt.Errorf("interface %s has no IPv4 address", ifaceID)
	}
	copied := *state
	return &copied, nil
}

func (f *Fake) RemoveAddress(ctx context.Context, ifaceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RemoveAddress", ifaceID); err != nil {
		f.record(fmt.Sprintf("RemoveAddress(%s) -> error", ifaceID))
		return err
	}
	f.mutate(fmt.Sprintf("RemoveAddress(%s)", ifaceID))
	delete(f.Addresses, ifaceID)
	return nil
}

func (f *Fake) AddAddress(ctx context.Context, ifaceID, ip string, prefix int, gateway string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddAddress", ifaceID); err != nil {
		f.record(fmt.Sprintf("AddAddress(%s) -> error", ifaceID))
		return err
	}
	f.mutate(fmt.Sprintf("AddAddress(%s, %s/%d, gw=%s)", ifaceID, ip, prefix, gateway))
	f.Addresses[ifaceID] = &AddressState{
		InterfaceID:  ifaceID,
		IPAddress:    ip,
		PrefixLength: prefix,
		Gateway:      gateway,
		Origin:       OriginManual,
	}
	return nil
}

func (f *Fake) SetDNSServers(ctx context.Context, ifaceID string, servers []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetDNSServers", ifaceID); err != nil {
		return err
	}
	f.mutate(fmt.Sprintf("SetDNSServers(%s, %v)", ifaceID, servers))
	f.DNSServers[ifaceID] = append([]string(nil), servers...)
	return nil
}

func (f *Fake) AddPrimaryZone(ctx context.Context, name, file string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddPrimaryZone", name); err != nil {
		return err
	}
	if _, exists := f.Zones[name]; exists {
		f.record(fmt.Sprintf("AddPrimaryZone(%s) -> exists", name))
		return nil
	}
	f.mutate(fmt.Sprintf("AddPrimaryZone(%s, %s)", name, file))
	f.Zones[name] = file
	return nil
}

func (f *Fake) AddForwarder(ctx context.Context, addr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddForwarder", addr); err != nil {
		return err
	}
	for _, existing := range f.Forwarders {
		if existing == addr {
			f.record(fmt.Sprintf("AddForwarder(%s) -> exists", addr))
			return nil
		}
	}
	f.mutate(fmt.Sprintf("AddForwarder(%s)", addr))
	f.Forwarders = append(f.Forwarders, addr)
	return nil
}

func (f *Fake) AddScope(ctx context.Context, name, start, end, mask string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AddScope", name); err != nil {
		return err
	}
	if _, exists := f.Scopes[name]; exists {
		f.record(fmt.Sprintf("AddScope(%s) -> exists", name))
		return nil
	}
	f.mutate(fmt.Sprintf("AddScope(%s, %s-%s/%s)", name, start, end, mask))
	f.Scopes[name] = fmt.Sprintf("%s-%s/%s", start, end, mask)
	return nil
}

func (f *Fake) GetScopeOptions(ctx context.Context, scopeID string) (string, string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetScopeOptions", scopeID); err != nil {
		return "", "", "", err
	}
	f.record(fmt.Sprintf("GetScopeOptions(%s)", scopeID))
	opts := f.ScopeOptions[scopeID]
	return opts[0], opts[1], opts[2], nil
}

func (f *Fake) SetScopeOptions(ctx context.Context, scopeID, router, dns, domain string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetScopeOptions", scopeID); err != nil {
		return err
	}
	f.mutate(fmt.Sprintf("SetScopeOptions(%s, router=%s, dns=%s, domain=%s)", scopeID, router, dns, domain))
	f.ScopeOptions[scopeID] = [3]string{router, dns, domain}
	return nil
}

func (f *Fake) AuthorizeInDirectory(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("AuthorizeInDirectory", ""); err != nil {
		return err
	}
	if f.Authorized {
		f.record("AuthorizeInDirectory() -> already")
		return nil
	}
	f.mutate("AuthorizeInDirectory()")
	f.Authorized = true
	return nil
}

func (f *Fake) GetWebsiteAutostart(ctx context.Context, site string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetWebsiteAutostart", site); err != nil {
		return false, err
	}
	f.record(fmt.Sprintf("GetWebsiteAutostart(%s)", site))
	return f.AutostartSites[site], nil
}

func (f *Fake) SetWebsiteAutostart(ctx context.Context, site string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetWebsiteAutostart", site); err != nil {
		return err
	}
	f.mutate(fmt.Sprintf("SetWebsiteAutostart(%s)", site))
	f.AutostartSites[site] = true
	return nil
}

func (f *Fake) SetRegistryDWORD(ctx context.Context, path, name string, value uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetRegistryDWORD", name); err != nil {
		return err
	}
	f.mutate(fmt.Sprintf("SetRegistryDWORD(%s\\%s, %d)", path, name, value))
	f.Registry[path+`\`+name] = value
	return nil
}

func (f *Fake) GetRegistryDWORD(ctx context.Context, path, name string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GetRegistryDWORD", name); err != nil {
		return 0, err
	}
	f.record(fmt.Sprintf("GetRegistryDWORD(%s\\%s)", path, name))
	value, ok := f.Registry[path+`\`+name]
	if !ok {
		return 0, fmt.Errorf("registry value %s\\%s not found", path, name)
	}
	return value, nil
}

func (f *Fake) FirewallGroupEnabled(ctx context.Context, group string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("FirewallGroupEnabled", group); err != nil {
		return false, err
	}
	f.record(fmt.Sprintf("FirewallGroupEnabled(%s)", group))
	return f.FirewallGroups[group], nil
}

func (f *Fake) EnableFirewallGroup(ctx context.Context, group string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("EnableFirewallGroup", group); err != nil {
		return err
	}
	f.mutate(fmt.Sprintf("EnableFirewallGroup(%s)", group))
	f.FirewallGroups[group] = true
	return nil
}

// MutationCount returns how many mutating calls the fake has seen.
func (f *Fake) MutationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Mutations)
}
