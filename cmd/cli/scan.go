package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/anstrom/surfacesync/internal/ingest"
	"github.com/anstrom/surfacesync/internal/logging"
	"github.com/anstrom/surfacesync/internal/metrics"
	"github.com/anstrom/surfacesync/internal/report"
	"github.com/anstrom/surfacesync/internal/scanning"
)

var (
	scanTargets       string
	scanPorts         string
	scanType          string
	scanTimeout       time.Duration
	scanSkipDiscovery bool
	scanNmapPath      string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run nmap against targets and ingest the result",
	Long: `Run nmap with service detection against the given targets and feed the
result through the same reconcile and bulk write pipeline as 'ingest'.
nmap must be installed; SYN scans require root privileges.`,
	Example: `  surfacesync scan --targets 192.168.1.0/24
  surfacesync scan --targets "10.0.0.5,10.0.0.6" --ports "22,80,443"
  surfacesync scan --targets localhost --type version --dry-run`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanTargets, "targets", "", "Comma-separated list of targets to scan")
	scanCmd.Flags().StringVar(&scanPorts, "ports", "22,80,443,8080,8443", "Ports to scan (comma-separated)")
	scanCmd.Flags().StringVar(&scanType, "type", scanning.TypeConnect, "Scan type: connect, syn, version, aggressive")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 5*time.Minute, "Maximum time to wait for scan completion")
	scanCmd.Flags().BoolVar(&scanSkipDiscovery, "skip-host-discovery", false, "Treat all targets as up (nmap -Pn)")
	scanCmd.Flags().StringVar(&scanNmapPath, "nmap", "", "Path of the nmap binary (default: looked up in PATH)")

	_ = scanCmd.MarkFlagRequired("targets")

	// Add detailed flag descriptions
	scanCmd.Flags().Lookup("targets").Usage = "Specific targets to scan (e.g., '192.168.1.1,192.168.1.10' or '192.168.1.0/24')"
	scanCmd.Flags().Lookup("ports").Usage = "Port specification: '80,443' or '1-1000'"
}

func runScan(cmd *cobra.Command, args []string) error {
	targets := parseTargets(scanTargets)
	if len(targets) == 0 {
		return fmt.Errorf("no valid targets found in '%s'", scanTargets)
	}

	cfg, err := setup()
	if err != nil {
		return err
	}

	scanConfig := &scanning.ScanConfig{
		Targets:           targets,
		Ports:             scanPorts,
		ScanType:          scanType,
		Timeout:           scanTimeout,
		SkipHostDiscovery: scanSkipDiscovery,
	}

	opts := []scanning.Option{scanning.WithLogger(logging.Default())}
	if scanNmapPath != "" {
		opts = append(opts, scanning.WithBinaryPath(scanNmapPath))
	}

	out := cmd.OutOrStdout()
	if isVerbose() {
		fmt.Fprintf(out, "Scanning %d targets: %v\n", len(targets), targets)
	}

	run, err := scanning.NewScanner(opts...).Run(cmd.Context(), scanConfig)
	if err != nil {
		return err
	}

	res, err := report.FromRun(run, report.Options{
		SkipInvalidHosts: cfg.Ingest.SkipInvalidHosts,
		Logger:           logging.Default(),
	})
	if err != nil {
		return err
	}

	pm := metrics.NewPrometheusMetrics()
	client := newStoreClient(cfg, pm)
	summary, err := ingest.NewPipeline(cfg, client, ingest.WithMetrics(pm)).RunResult(cmd.Context(), res)
	printOutcome(out, summary, err)
	writeMetrics(cfg, pm)
	return err
}

// parseTargets splits a comma-separated target list, dropping blanks.
func parseTargets(targets string) []string {
	var result []string
	for _, target := range strings.Split(targets, ",") {
		if target = strings.TrimSpace(target); target != "" {
			result = append(result, target)
		}
	}
	return result
}
