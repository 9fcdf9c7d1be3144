package roles

import (
	"context"
	"fmt"
	"log"
	"net"

	"github.com/osiriscare/provision/internal/config"
	"github.com/osiriscare/provision/internal/platform"
)

// Remote Desktop connection gate and its firewall rule group.
const (
	terminalServerKey = `SYSTEM\CurrentControlSet\Control\Terminal Server`
	denyTSValue       = "fDenyTSConnections"
	rdpFirewallGroup  = "Remote Desktop"
)

// Configurator is one role's post-install configuration step.
type Configurator interface {
	Role() string
	Apply(ctx context.Context) error
}

// StepResult is the outcome of one role's configuration.
type StepResult struct {
	Role string
	OK   bool
	Err  error
}

// Configurators builds the fixed ordered configuration steps. addr must
// be the static address established by this run: the DHCP scope's router
// and DNS options point at it, never at a configured or stale value.
func Configurators(s platform.Surface, cfg *config.Config, addr *platform.AddressState) []Configurator {
	return []Configurator{
		&webConfig{surface: s, site: cfg.DefaultSite},
		&dnsConfig{surface: s, zone: cfg.DomainName, zoneFile: cfg.ZoneFile, forwarder: cfg.Forwarder},
		&dhcpConfig{surface: s, cfg: cfg, hostAddr: addr.IPAddress},
		&rdpConfig{surface: s},
	}
}

// ConfigureAll applies each configurator whose role installed OK. A step
// failure is recorded and the remaining independent steps still run.
func ConfigureAll(ctx context.Context, configurators []Configurator, installed map[string]bool) []StepResult {
	results := make([]StepResult, 0, len(configurators))

	for _, c := range configurators {
		if !installed[c.Role()] {
			log.Printf("[roles] Skipping %s configuration: role not installed", c.Role())
			continue
		}

		if err := c.Apply(ctx); err != nil {
			log.Printf("[roles] Configure FAILED for %s: %v", c.Role(), err)
			results = append(results, StepResult{Role: c.Role(), Err: err})
			continue
		}

		log.Printf("[roles] Configured %s", c.Role())
		results = append(results, StepResult{Role: c.Role(), OK: true})
	}

	return results
}

// webConfig flips the default site to start with the server. The write is
// skipped when autostart is already on.
type webConfig struct {
	surface platform.Surface
	site    string
}

func (c *webConfig) Role() string { return FeatureWeb }

func (c *webConfig) Apply(ctx context.Context) error {
	on, err := c.surface.GetWebsiteAutostart(ctx, c.site)
	if err == nil && on {
		return nil
	}
	return c.surface.SetWebsiteAutostart(ctx, c.site)
}

// dnsConfig creates the primary zone and registers the upstream forwarder.
// Both operations treat an existing zone/forwarder as a no-op.
type dnsConfig struct {
	surface   platform.Surface
	zone      string
	zoneFile  string
	forwarder string
}

func (c *dnsConfig) Role() string { return FeatureDNS }

func (c *dnsConfig) Apply(ctx context.Context) error {
	if err := c.surface.AddPrimaryZone(ctx, c.zone, c.zoneFile); err != nil {
		return err
	}
	return c.surface.AddForwarder(ctx, c.forwarder)
}

// dhcpConfig creates the lease scope, points its router/DNS options at
// the host's own static address, and authorizes the DHCP server in the
// directory. Options already matching are left untouched; repeated
// authorization is a no-op, not an error.
type dhcpConfig struct {
	surface  platform.Surface
	cfg      *config.Config
	hostAddr string
}

func (c *dhcpConfig) Role() string { return FeatureDHCP }

func (c *dhcpConfig) Apply(ctx context.Context) error {
	if err := c.surface.AddScope(ctx, c.cfg.ScopeName, c.cfg.ScopeStart, c.cfg.ScopeEnd, c.cfg.SubnetMask); err != nil {
		return err
	}

	scopeID, err := networkID(c.cfg.ScopeStart, c.cfg.SubnetMask)
	if err != nil {
		return err
	}
	router, dns, domain, err := c.surface.GetScopeOptions(ctx, scopeID)
	if err != nil || router != c.hostAddr || dns != c.hostAddr || domain != c.cfg.DomainName {
		if err := c.surface.SetScopeOptions(ctx, scopeID, c.hostAddr, c.hostAddr, c.cfg.DomainName); err != nil {
			return err
		}
	}

	return c.surface.AuthorizeInDirectory(ctx)
}

// rdpConfig clears the deny-connections gate and opens the firewall rule
// group for remote desktop traffic. Both writes are skipped when the host
// is already in the target state.
type rdpConfig struct {
	surface platform.Surface
}

func (c *rdpConfig) Role() string { return FeatureRDS }

func (c *rdpConfig) Apply(ctx context.Context) error {
	current, err := c.surface.GetRegistryDWORD(ctx, terminalServerKey, denyTSValue)
	if err != nil || current != 0 {
		if err := c.surface.SetRegistryDWORD(ctx, terminalServerKey, denyTSValue, 0); err != nil {
			return err
		}
	}

	enabled, err := c.surface.FirewallGroupEnabled(ctx, rdpFirewallGroup)
	if err == nil && enabled {
		return nil
	}
	return c.surface.EnableFirewallGroup(ctx, rdpFirewallGroup)
}

// networkID computes the network address a DHCP scope is identified by.
func networkID(ip, mask string) (string, error) {
	addr := net.ParseIP(ip)
	maskAddr := net.ParseIP(mask)
	if addr == nil || addr.To4() == nil {
		return "", fmt.Errorf("invalid IPv4 address %q", ip)
	}
	if maskAddr == nil || maskAddr.To4() == nil {
		return "", fmt.Errorf("invalid subnet mask %q", mask)
	}
	network := addr.To4().Mask(net.IPMask(maskAddr.To4()))
	return network.String(), nil
}
