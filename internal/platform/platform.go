// Package platform defines the management surface of a Windows Server host
// and its implementations.
//
// Every provisioning step in this tool is a call into one of the host's
// administrative surfaces: the role/feature installer, the network stack,
// the DNS and DHCP server modules, and the registry/firewall stores. The
// Surface interface gathers those calls so the rest of the tool can be
// driven against a local host (powershell.exe + WMI), a remote host
// (WinRM), or an in-memory fake in tests.
package platform

import (
	"context"
	"errors"
)

// ErrFeatureNotFound is returned by QueryFeature for identifiers the
// platform does not know about.
var ErrFeatureNotFound = errors.New("feature not found")

// Origin describes how an IPv4 address was assigned to an interface.
// Values mirror the NetIPAddress PrefixOrigin enumeration.
type Origin string

const (
	OriginManual    Origin = "Manual"
	OriginDHCP      Origin = "Dhcp"
	OriginWellKnown Origin = "WellKnown"
	OriginRouterAdv Origin = "RouterAdvertisement"
)

// Adapter is a network interface as reported by the host.
type Adapter struct {
	Name        string
	InterfaceID string
	Up          bool
}

// AddressState captures the IPv4 configuration of one interface.
type AddressState struct {
	InterfaceID  string `json:"interface_id"`
	IPAddress    string `json:"ip_address"`
	PrefixLength int    `json:"prefix_length"`
	Gateway      string `json:"gateway"`
	Origin       Origin `json:"origin"`
}

// Surface is the injected handle to the host's management surfaces.
// All mutating operations are idempotent: applying a state the host is
// already in succeeds without error.
type Surface interface {
	// Role/feature surface.
	InstallFeature(ctx context.Context, id string, includeTools bool) error
	QueryFeature(ctx context.Context, id string) (bool, error)

	// Network surface.
	ListAdapters(ctx context.Context) ([]Adapter, error)
	GetAddress(ctx context.Context, ifaceID string) (*AddressState, error)
	RemoveAddress(ctx context.Context, ifaceID string) error
	AddAddress(ctx context.Context, ifaceID, ip string, prefix int, gateway string) error
	SetDNSServers(ctx context.Context, ifaceID string, servers []string) error

	// DNS server administration.
	AddPrimaryZone(ctx context.Context, name, file string) error
	AddForwarder(ctx context.Context, addr string) error

	// DHCP server administration.
	AddScope(ctx context.Context, name, start, end, mask string) error
	GetScopeOptions(ctx context.Context, scopeID string) (router, dns, domain string, err error)
	SetScopeOptions(ctx context.Context, scopeID, router, dns, domain string) error
	AuthorizeInDirectory(ctx context.Context) error

	// Web server administration.
	GetWebsiteAutostart(ctx context.Context, site string) (bool, error)
	SetWebsiteAutostart(ctx context.Context, site string) error

	// Registry and firewall stores.
	SetRegistryDWORD(ctx context.Context, path, name string, value uint32) error
	GetRegistryDWORD(ctx context.Context, path, name string) (uint32, error)
	FirewallGroupEnabled(ctx context.Context, group string) (bool, error)
	EnableFirewallGroup(ctx context.Context, group string) error
}
