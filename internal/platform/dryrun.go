package platform

import (
	"context"
	"log"
)

// NewDryRun wraps a Surface so mutating calls are logged and skipped while
// read operations pass through. Used by the -dry-run flag to show what a
// run would change.
func NewDryRun(s Surface) Surface {
	return &dryRun{real: s}
}

type dryRun struct {
	real Surface
}

func (d *dryRun) skip(format string, args ...interface{}) error {
	log.Printf("[dry-run] would "+format, args...)
	return nil
}

func (d *dryRun) InstallFeature(ctx context.Context, id string, includeTools bool) error {
	return d.skip("install feature %s (tools=%v)", id, includeTools)
}

func (d *dryRun) QueryFeature(ctx context.Context, id string) (bool, error) {
	return d.real.QueryFeature(ctx, id)
}

func (d *dryRun) ListAdapters(ctx context.Context) ([]Adapter, error) {
	return d.real.ListAdapters(ctx)
}

func (d *dryRun) GetAddress(ctx context.Context, ifaceID string) (*AddressState, error) {
	return d.real.GetAddress(ctx, ifaceID)
}

func (d *dryRun) RemoveAddress(ctx context.Context, ifaceID string) error {
	return d.skip("remove address on interface %s", ifaceID)
}

func (d *dryRun) AddAddress(ctx context.Context, ifaceID, ip string, prefix int, gateway string) error {
	return d.skip("add address %s/%d (gw %s) on interface %s", ip, prefix, gateway, ifaceID)
}

func (d *dryRun) SetDNSServers(ctx context.Context, ifaceID string, servers []string) error {
	return d.skip("set DNS servers %v on interface %s", servers, ifaceID)
}

func (d *dryRun) AddPrimaryZone(ctx context.Context, name, file string) error {
	return d.skip("create primary zone %s (file %s)", name, file)
}

func (d *dryRun) AddForwarder(ctx context.Context, addr string) error {
	return d.skip("add DNS forwarder %s", addr)
}

func (d *dryRun) AddScope(ctx context.Context, name, start, end, mask string) error {
	return d.skip("create DHCP scope %s (%s-%s mask %s)", name, start, end, mask)
}

func (d *dryRun) GetScopeOptions(ctx context.Context, scopeID string) (string, string, string, error) {
	return d.real.GetScopeOptions(ctx, scopeID)
}

func (d *dryRun) SetScopeOptions(ctx context.Context, scopeID, router, dns, domain string) error {
	return d.skip("set scope %s options router=%s dns=%s domain=%s", scopeID, router, dns, domain)
}

func (d *dryRun) AuthorizeInDirectory(ctx context.Context) error {
	return d.skip("authorize DHCP server in Active Directory")
}

func (d *dryRun) GetWebsiteAutostart(ctx context.Context, site string) (bool, error) {
	return d.real.GetWebsiteAutostart(ctx, site)
}

func (d *dryRun) SetWebsiteAutostart(ctx context.Context, site string) error {
	return d.skip("enable autostart for site %q", site)
}

func (d *dryRun) SetRegistryDWORD(ctx context.Context, path, name string, value uint32) error {
	return d.skip("set registry %s\\%s = %d", path, name, value)
}

func (d *dryRun) GetRegistryDWORD(ctx context.Context, path, name string) (uint32, error) {
	return d.real.GetRegistryDWORD(ctx, path, name)
}

func (d *dryRun) FirewallGroupEnabled(ctx context.Context, group string) (bool, error) {
	return d.real.FirewallGroupEnabled(ctx, group)
}

func (d *dryRun) EnableFirewallGroup(ctx context.Context, group string) error {
	return d.skip("enable firewall rule group %q", group)
}
