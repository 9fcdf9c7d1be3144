// OsirisCare Server Provisioner - one-shot Windows Server role setup
//
// Provisions a Windows Server host in a fixed linear sequence:
//
//  1. Convert the active adapter's leased address to a static assignment
//  2. Install the Web (IIS), DNS, DHCP, and Remote Desktop roles
//  3. Apply each role's minimal post-install configuration
//  4. Re-probe every role and print a verification report
//
// Every step tolerates re-invocation (already-static, already-installed,
// already-created are no-ops), so the recovery model for a partial
// failure is simply: fix the cause and re-run.
//
// Runs against the local host by default (requires an elevated prompt),
// or against a remote host over WinRM when target.host is configured.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/osiriscare/provision/internal/config"
	"github.com/osiriscare/provision/internal/journal"
	"github.com/osiriscare/provision/internal/netconf"
	"github.com/osiriscare/provision/internal/platform"
	"github.com/osiriscare/provision/internal/privilege"
	"github.com/osiriscare/provision/internal/roles"
	"github.com/osiriscare/provision/internal/verify"
)

var (
	Version   = "0.2.0"
	BuildTime = "unknown"
)

var (
	flagConfig     = flag.String("config", "", "Config file path (optional)")
	flagTarget     = flag.String("target", "", "Remote host to provision over WinRM (host[:port] settings come from config)")
	flagUser       = flag.String("user", "", "WinRM username (DOMAIN\\user) for -target")
	flagDryRun     = flag.Bool("dry-run", false, "Log mutations without applying them")
	flagVerifyOnly = flag.Bool("verify-only", false, "Skip provisioning, only run the verification report")
	flagVersion    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *flagVersion {
		fmt.Printf("osiris-provision %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("OsirisCare Provisioner v%s starting...", Version)

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *flagTarget != "" {
		cfg.Target.Host = *flagTarget
	}
	if *flagUser != "" {
		cfg.Target.Username = *flagUser
	}
	if *flagDryRun {
		cfg.DryRun = true
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Shutdown signal received: %v", sig)
		cancel()
	}()

	os.Exit(run(ctx, cfg))
}

// run executes the provisioning sequence and returns the process exit
// code: 0 when every role verifies OK, 1 otherwise.
func run(ctx context.Context, cfg *config.Config) int {
	surface, err := newSurface(cfg)
	if err != nil {
		log.Printf("FATAL: %v", err)
		return 1
	}

	jrnl, err := journal.Open(cfg.JournalPath())
	if err != nil {
		log.Printf("[journal] Unavailable, proceeding without durability: %v", err)
		jrnl = nil
	}
	if jrnl != nil {
		defer jrnl.Close()
	}

	reporter := verify.NewReporter(surface)

	if *flagVerifyOnly {
		statuses := reporter.Run(ctx)
		verify.Print(os.Stdout, statuses)
		if verify.AllOK(statuses) {
			return 0
		}
		return 1
	}

	// 1. Static address. Adapter and privilege failures are fatal:
	// nothing later can work without them.
	var snap netconf.Snapshotter
	if jrnl != nil {
		snap = jrnl
	}
	addr, err := netconf.New(surface, snap).EnsureStatic(ctx)
	if err != nil {
		record(jrnl, "network", false, err.Error())
		log.Printf("FATAL: network configuration failed: %v", err)
		return 1
	}
	record(jrnl, "network", true, fmt.Sprintf("%s/%d static", addr.IPAddress, addr.PrefixLength))

	// 2. Role installation. Failures are recorded, not fatal.
	installer := roles.NewInstaller(surface)
	installResults := installer.InstallAll(ctx, roles.Requests(cfg.IncludeManagementTools))

	installed := make(map[string]bool, len(installResults))
	for _, r := range installResults {
		installed[r.Identifier] = r.OK
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		} else if r.Skipped {
			detail = "already installed"
		}
		record(jrnl, "install:"+r.Identifier, r.OK, detail)
	}

	// 3. Per-role configuration for the roles that installed.
	configurators := roles.Configurators(surface, cfg, addr)
	for _, r := range roles.ConfigureAll(ctx, configurators, installed) {
		detail := ""
		if r.Err != nil {
			detail = r.Err.Error()
		}
		record(jrnl, "configure:"+r.Role, r.OK, detail)
	}

	// 4. Verification report.
	statuses := reporter.Run(ctx)
	verify.Print(os.Stdout, statuses)
	for _, s := range statuses {
		record(jrnl, "verify:"+s.Identifier, s.OK, "")
	}

	if verify.AllOK(statuses) {
		log.Println("Provisioning complete: all roles verified")
		return 0
	}
	log.Println("Provisioning finished with failures — fix the cause and re-run")
	return 1
}

// newSurface selects the platform surface: WinRM when a target host is
// configured, the local host otherwise. Local provisioning fails fast
// without an elevated token.
func newSurface(cfg *config.Config) (platform.Surface, error) {
	var surface platform.Surface

	if cfg.Target.Host != "" {
		log.Printf("Provisioning remote host %s over WinRM", cfg.Target.Host)
		surface = platform.NewRemote(platform.Target{
			Hostname:  cfg.Target.Host,
			Port:      cfg.Target.Port,
			Username:  cfg.Target.Username,
			Password:  cfg.Target.Password,
			UseSSL:    cfg.Target.UseSSL,
			VerifySSL: cfg.Target.VerifySSL,
		})
	} else {
		if err := privilege.RequireElevation(); err != nil {
			if errors.Is(err, privilege.ErrNotElevated) {
				return nil, err
			}
			return nil, fmt.Errorf("privilege check: %w", err)
		}
		log.Println("Provisioning local host")
		surface = platform.NewLocal()
	}

	if cfg.DryRun {
		log.Println("Dry-run mode: mutations will be logged, not applied")
		surface = platform.NewDryRun(surface)
	}
	return surface, nil
}

// record journals a step outcome when the journal is available.
func record(jrnl *journal.Journal, step string, ok bool, detail string) {
	if jrnl == nil {
		return
	}
	if err := jrnl.Record(step, ok, detail); err != nil {
		log.Printf("[journal] Failed to record %s: %v", step, err)
	}
}
