// Package verify re-probes the provisioned roles and renders the final
// operator report.
package verify

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/osiriscare/provision/internal/roles"
)

// Prober is the capability probe the reporter needs.
type Prober interface {
	QueryFeature(ctx context.Context, id string) (bool, error)
}

// RoleStatus is one line of the verification report.
type RoleStatus struct {
	Identifier string
	Label      string
	OK         bool
}

// manualChecklist holds the follow-ups no probe can confirm.
var manualChecklist = []string{
	"Join client machines to the domain and confirm DNS registration",
	"Lease an address from a client and check the handed-out options",
	"Browse to the default web site from another host",
	"Open a Remote Desktop session as a non-admin user",
	"Point the DNS forwarder at your real upstream resolver if 8.8.8.8 is blocked",
}

// Reporter verifies role installation through the capability probe.
type Reporter struct {
	probe Prober
}

// NewReporter creates a Reporter.
func NewReporter(probe Prober) *Reporter {
	return &Reporter{probe: probe}
}

// Run queries each of the fixed role identifiers, in report order, and
// never anything else. A probe error counts as not installed.
func (r *Reporter) Run(ctx context.Context) []RoleStatus {
	labels := roles.Labels()
	statuses := make([]RoleStatus, 0, len(labels))

	for _, id := range roles.Identifiers() {
		installed, err := r.probe.QueryFeature(ctx, id)
		if err != nil {
			log.Printf("[verify] Probe failed for %s: %v", id, err)
			installed = false
		}
		statuses = append(statuses, RoleStatus{
			Identifier: id,
			Label:      labels[id],
			OK:         installed,
		})
	}

	return statuses
}

// AllOK reports whether every role verified successfully.
func AllOK(statuses []RoleStatus) bool {
	for _, s := range statuses {
		if !s.OK {
			return false
		}
	}
	return true
}

// Print writes the per-role status lines and the manual follow-up
// checklist. The report states that a role failed, not why; the log
// carries the detail.
func Print(w io.Writer, statuses []RoleStatus) {
	fmt.Fprintln(w, "\n=== Provisioning Verification ===")
	for _, s := range statuses {
		mark := "[ OK ]"
		if !s.OK {
			mark = "[FAIL]"
		}
		fmt.Fprintf(w, "%s %s\n", mark, s.Label)
	}

	fmt.Fprintln(w, "\nManual follow-ups:")
	for i, item := range manualChecklist {
		fmt.Fprintf(w, "  %d. %s\n", i+1, item)
	}
}
