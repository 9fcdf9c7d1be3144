package platform

import (
	"context"
	"fmt"
)

// runner executes a PowerShell script on the target host and returns its
// trimmed combined output. The local surface runs powershell.exe directly;
// the remote surface goes through WinRM.
type runner interface {
	Run(ctx context.Context, script string) (string, error)
}

// regReadFunc optionally overrides registry reads. The local surface on
// Windows reads via WMI StdRegProv instead of spawning PowerShell.
type regReadFunc func(ctx context.Context, path, name string) (uint32, error)

// psSurface implements Surface in terms of PowerShell fragments.
type psSurface struct {
	run     runner
	regRead regReadFunc
}

func (s *psSurface) InstallFeature(ctx context.Context, id string, includeTools bool) error {
	if _, err := s.run.Run(ctx, scriptInstallFeature(id, includeTools)); err != nil {
		return fmt.Errorf("install %s: %w", id, err)
	}
	return nil
}

func (s *psSurface) QueryFeature(ctx context.Context, id string) (bool, error) {
	out, err := s.run.Run(ctx, scriptQueryFeature(id))
	if err != nil {
		return false, fmt.Errorf("query %s: %w", id, err)
	}
	return parseFeatureInstalled(id, out)
}

func (s *psSurface) ListAdapters(ctx context.Context) ([]Adapter, error) {
	out, err := s.run.Run(ctx, scriptListAdapters())
	if err != nil {
		return nil, fmt.Errorf("list adapters: %w", err)
	}
	return parseAdapters(out)
}

func (s *psSurface) GetAddress(ctx context.Context, ifaceID string) (*AddressState, error) {
	out, err := s.run.Run(ctx, scriptGetAddress(ifaceID))
	if err != nil {
		return nil, fmt.Errorf("get address for interface %s: %w", ifaceID, err)
	}
	return parseAddress(ifaceID, out)
}

func (s *psSurface) RemoveAddress(ctx context.Context, ifaceID string) error {
	if _, err := s.run.Run(ctx, scriptRemoveAddress(ifaceID)); err != nil {
		return fmt.Errorf("remove address on interface %s: %w", ifaceID, err)
	}
	return nil
}

func (s *psSurface) AddAddress(ctx context.Context, ifaceID, ip string, prefix int, gateway string) error {
	if _, err := s.run.Run(ctx, scriptAddAddress(ifaceID, ip, prefix, gateway)); err != nil {
		return fmt.Errorf("add address %s/%d on interface %s: %w", ip, prefix, ifaceID, err)
	}
	return nil
}

func (s *psSurface) SetDNSServers(ctx context.Context, ifaceID string, servers []string) error {
	if _, err := s.run.Run(ctx, scriptSetDNSServers(ifaceID, servers)); err != nil {
		return fmt.Errorf("set DNS servers on interface %s: %w", ifaceID, err)
	}
	return nil
}

func (s *psSurface) AddPrimaryZone(ctx context.Context, name, file string) error {
	if _, err := s.run.Run(ctx, scriptAddPrimaryZone(name, file)); err != nil {
		return fmt.Errorf("add primary zone %s: %w", name, err)
	}
	return nil
}

func (s *psSurface) AddForwarder(ctx context.Context, addr string) error {
	if _, err := s.run.Run(ctx, scriptAddForwarder(addr)); err != nil {
		return fmt.Errorf("add forwarder %s: %w", addr, err)
	}
	return nil
}

func (s *psSurface) AddScope(ctx context.Context, name, start, end, mask string) error {
	if _, err := s.run.Run(ctx, scriptAddScope(name, start, end, mask)); err != nil {
		return fmt.Errorf("add scope %s (%s-%s): %w", name, start, end, err)
	}
	return nil
}

func (s *psSurface) GetScopeOptions(ctx context.Context, scopeID string) (string, string, string, error) {
	out, err := s.run.Run(ctx, scriptGetScopeOptions(scopeID))
	if err != nil {
		return "", "", "", fmt.Errorf("query options for scope %s: %w", scopeID, err)
	}
	return parseScopeOptions(out)
}

func (s *psSurface) SetScopeOptions(ctx context.Context, scopeID, router, dns, domain string) error {
	if _, err := s.run.Run(ctx, scriptSetScopeOptions(scopeID, router, dns, domain)); err != nil {
		return fmt.Errorf("set options for scope %s: %w", scopeID, err)
	}
	return nil
}

func (s *psSurface) AuthorizeInDirectory(ctx context.Context) error {
	if _, err := s.run.Run(ctx, scriptAuthorizeInDirectory()); err != nil {
		return fmt.Errorf("authorize DHCP server in directory: %w", err)
	}
	return nil
}

func (s *psSurface) GetWebsiteAutostart(ctx context.Context, site string) (bool, error) {
	out, err := s.run.Run(ctx, scriptGetWebsiteAutostart(site))
	if err != nil {
		return false, fmt.Errorf("query autostart for site %q: %w", site, err)
	}
	return parseBool(out)
}

func (s *psSurface) SetWebsiteAutostart(ctx context.Context, site string) error {
	if _, err := s.run.Run(ctx, scriptSetWebsiteAutostart(site)); err != nil {
		return fmt.Errorf("enable autostart for site %q: %w", site, err)
	}
	return nil
}

func (s *psSurface) SetRegistryDWORD(ctx context.Context, path, name string, value uint32) error {
	if _, err := s.run.Run(ctx, scriptSetRegistryDWORD(path, name, value)); err != nil {
		return fmt.Errorf("set registry %s\\%s: %w", path, name, err)
	}
	return nil
}

func (s *psSurface) GetRegistryDWORD(ctx context.Context, path, name string) (uint32, error) {
	if s.regRead != nil {
		return s.regRead(ctx, path, name)
	}
	out, err := s.run.Run(ctx, scriptGetRegistryDWORD(path, name))
	if err != nil {
		return 0, fmt.Errorf("read registry %s\\%s: %w", path, name, err)
	}
	return parseDWORD(out)
}

func (s *psSurface) FirewallGroupEnabled(ctx context.Context, group string) (bool, error) {
	out, err := s.run.Run(ctx, scriptFirewallGroupEnabled(group))
	if err != nil {
		return false, fmt.Errorf("query firewall group %q: %w", group, err)
	}
	return parseBool(out)
}

func (s *psSurface) EnableFirewallGroup(ctx context.Context, group string) error {
	if _, err := s.run.Run(ctx, scriptEnableFirewallGroup(group)); err != nil {
		return fmt.Errorf("enable firewall group %q: %w", group, err)
	}
	return nil
}
