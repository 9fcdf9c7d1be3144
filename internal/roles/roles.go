// Package roles installs and configures the four server roles this tool
// provisions: web hosting (IIS), name resolution (DNS), address leasing
// (DHCP), and remote sessions (Remote Desktop).
package roles

import (
	"context"
	"fmt"
	"log"

	"github.com/osiriscare/provision/internal/platform"
)

// Well-known Windows feature identifiers.
const (
	FeatureWeb  = "Web-Server"
	FeatureDNS  = "DNS"
	FeatureDHCP = "DHCP"
	FeatureRDS  = "Remote-Desktop-Services"
)

// Request asks for one feature, optionally with its management tooling.
type Request struct {
	Identifier   string
	IncludeTools bool
}

// Requests returns the fixed ordered list of roles to install. The order
// only matters for deterministic log and report output.
func Requests(includeTools bool) []Request {
	return []Request{
		{Identifier: FeatureWeb, IncludeTools: includeTools},
		{Identifier: FeatureDNS, IncludeTools: includeTools},
		{Identifier: FeatureDHCP, IncludeTools: includeTools},
		{Identifier: FeatureRDS, IncludeTools: includeTools},
	}
}

// Identifiers returns the role identifiers in report order.
func Identifiers() []string {
	return []string{FeatureWeb, FeatureDNS, FeatureDHCP, FeatureRDS}
}

// Labels maps role identifiers to the display labels used in the final
// report.
func Labels() map[string]string {
	return map[string]string{
		FeatureWeb:  "Web Server (IIS)",
		FeatureDNS:  "DNS Server",
		FeatureDHCP: "DHCP Server",
		FeatureRDS:  "Remote Desktop Services",
	}
}

// InstallResult is the per-role outcome of the install pass.
type InstallResult struct {
	Identifier string
	OK         bool
	Skipped    bool // already installed, nothing done
	Err        error
}

// Installer installs requested roles through the platform surface.
type Installer struct {
	surface platform.Surface
}

// NewInstaller creates an Installer.
func NewInstaller(surface platform.Surface) *Installer {
	return &Installer{surface: surface}
}

// InstallAll installs each requested role in order. A role that is
// already installed is a recorded no-op; a failed install is recorded and
// the remaining roles are still attempted so a partial success report is
// possible.
func (i *Installer) InstallAll(ctx context.Context, reqs []Request) []InstallResult {
	results := make([]InstallResult, 0, len(reqs))

	for _, req := range reqs {
		installed, err := i.surface.QueryFeature(ctx, req.Identifier)
		if err != nil {
			// The probe is an optimization; the install itself is
			// idempotent, so try it anyway.
			log.Printf("[roles] Query for %s failed (%v), attempting install", req.Identifier, err)
		} else if installed {
			log.Printf("[roles] %s already installed", req.Identifier)
			results = append(results, InstallResult{Identifier: req.Identifier, OK: true, Skipped: true})
			continue
		}

		if err := i.surface.InstallFeature(ctx, req.Identifier, req.IncludeTools); err != nil {
			log.Printf("[roles] Install FAILED for %s: %v", req.Identifier, err)
			results = append(results, InstallResult{
				Identifier: req.Identifier,
				Err:        fmt.Errorf("install %s: %w", req.Identifier, err),
			})
			continue
		}

		log.Printf("[roles] Installed %s (tools=%v)", req.Identifier, req.IncludeTools)
		results = append(results, InstallResult{Identifier: req.Identifier, OK: true})
	}

	return results
}
