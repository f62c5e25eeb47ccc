package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/anstrom/surfacesync/internal/api"
	"github.com/anstrom/surfacesync/internal/config"
	"github.com/anstrom/surfacesync/internal/ingest"
	"github.com/anstrom/surfacesync/internal/logging"
	"github.com/anstrom/surfacesync/internal/metrics"
	"github.com/anstrom/surfacesync/internal/scheduler"
	"github.com/anstrom/surfacesync/internal/store"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest an nmap XML report into the document store",
	Long: `Read an nmap XML report, build one record per host and upsert the records
into the configured index. Existing documents are matched by exact hostname
and get their address and ports overwritten; new hosts are created with the
configured subsidiary tag. All operations go out in a single bulk request.`,
	Example: `  surfacesync ingest --input nmap.xml
  surfacesync ingest --input scan.xml --host http://es:9200 --index attack-surface
  surfacesync ingest --input scan.xml --dry-run
  surfacesync ingest --input scan.xml --schedule "0 * * * *" --metrics-file /var/lib/node_exporter/surfacesync.prom
  surfacesync ingest --input scan.xml --schedule "*/15 * * * *" --listen :9464`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	defaults := config.Default()

	flags := ingestCmd.Flags()
	flags.StringP("input", "i", defaults.Input.Path, "Path of the nmap XML report")
	flags.Bool("skip-invalid-hosts", false, "Skip host entries without an address instead of aborting")
	flags.String("schedule", "", "Cron expression; run repeatedly until interrupted")
	flags.String("metrics-file", "", "Write Prometheus metrics to this textfile after each run")
	flags.String("listen", "", "Serve metrics and run status on this address while scheduled (e.g. :9464)")

	bindFlags(flags.Lookup, map[string]string{
		"input.path":                "input",
		"ingest.skip_invalid_hosts": "skip-invalid-hosts",
		"ingest.schedule":           "schedule",
		"metrics.textfile":          "metrics-file",
		"metrics.listen":            "listen",
	})
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	pm := metrics.NewPrometheusMetrics()

	if cfg.Ingest.Schedule != "" {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runScheduled(ctx, cfg, out, pm)
	}

	return ingestOnce(cmd.Context(), cfg, out, pm)
}

// ingestOnce runs the pipeline once and prints its outcome.
func ingestOnce(ctx context.Context, cfg *config.Config, out io.Writer, pm *metrics.PrometheusMetrics) error {
	_, err := runPipeline(ctx, cfg, out, pm)
	return err
}

func runPipeline(
	ctx context.Context, cfg *config.Config, out io.Writer, pm *metrics.PrometheusMetrics,
) (*ingest.Summary, error) {
	client := newStoreClient(cfg, pm)
	summary, err := ingest.NewPipeline(cfg, client, ingest.WithMetrics(pm)).Run(ctx)
	printOutcome(out, summary, err)
	writeMetrics(cfg, pm)
	return summary, err
}

// runScheduled runs the pipeline immediately and then on every tick of the
// configured schedule until ctx is cancelled. With metrics.listen set, a
// status server runs alongside.
func runScheduled(ctx context.Context, cfg *config.Config, out io.Writer, pm *metrics.PrometheusMetrics) error {
	status := api.NewRunStatus()
	run := func(runCtx context.Context) error {
		summary, err := runPipeline(runCtx, cfg, out, pm)
		status.Record(summary, err)
		return err
	}

	sched := scheduler.NewScheduler(logging.Default())
	var jobID uuid.UUID
	jobID, err := sched.AddJob("ingest", cfg.Ingest.Schedule, func(jobCtx context.Context) error {
		err := run(jobCtx)
		recordNextRun(sched, jobID, status)
		return err
	})
	if err != nil {
		return err
	}

	var serverDone chan error
	if cfg.Metrics.Listen != "" {
		srv := api.New(cfg.Metrics.Listen, pm.GetRegistry(), status,
			api.WithLogger(logging.Default()), api.WithVersion(version))
		serverDone = make(chan error, 1)
		go func() { serverDone <- srv.Start(ctx) }()
	}

	// The first run reports its error but does not stop the schedule.
	_ = run(ctx)

	if err := sched.Start(); err != nil {
		return err
	}
	recordNextRun(sched, jobID, status)

	// A nil serverDone never fires.
	var serverErr error
	select {
	case <-ctx.Done():
		if serverDone != nil {
			serverErr = <-serverDone
		}
	case serverErr = <-serverDone:
	}
	sched.Stop()

	for _, job := range sched.GetJobs() {
		logging.Info("Scheduled ingest stopped", "job", job.Name, "scheduled_runs", job.Runs)
	}
	return serverErr
}

// recordNextRun publishes the next activation of the ingest job.
func recordNextRun(sched *scheduler.Scheduler, id uuid.UUID, status *api.RunStatus) {
	next := sched.NextRun(id)
	status.SetNextRun(next)
	if !next.IsZero() {
		logging.Info("Waiting for next scheduled run", "next_run", next)
	}
}

func newStoreClient(cfg *config.Config, m metrics.Recorder) *store.Client {
	return store.NewClient(store.Config{
		Host:    cfg.Store.Host,
		Timeout: cfg.Store.Timeout,
	}, store.WithMetrics(m), store.WithLogger(logging.Default()))
}

// printOutcome prints the plan when asked for, then the single result line.
func printOutcome(out io.Writer, summary *ingest.Summary, err error) {
	if summary != nil && (summary.DryRun || isVerbose()) && len(summary.Operations) > 0 {
		displayPlan(out, summary.Operations)
	}
	if summary != nil && summary.DryRun && err == nil && len(summary.Payload) > 0 {
		fmt.Fprintln(out)
		_, _ = out.Write(summary.Payload)
	}
	fmt.Fprintln(out, ingest.OutcomeMessage(summary, err))
}

// displayPlan displays the reconciled operations in a table format
func displayPlan(out io.Writer, ops []ingest.Operation) {
	table := tablewriter.NewWriter(out)
	table.Header("Action", "Hostname", "IP Address", "Open Ports", "Document ID")

	for i := range ops {
		op := &ops[i]

		var ip string
		var ports []string
		switch {
		case op.Document != nil:
			ip = op.Document.IPAddress
			for _, p := range op.Document.Ports {
				ports = append(ports, p.Port+"/"+p.ServiceName)
			}
		case op.Script != nil:
			ip = op.Script.Params.IPAddress
			for _, p := range op.Script.Params.Ports {
				ports = append(ports, p.Port+"/"+p.ServiceName)
			}
		}

		id := op.ID
		if id == "" {
			id = "-"
		}
		portList := strings.Join(ports, ", ")
		if portList == "" {
			portList = "-"
		}

		_ = table.Append([]string{string(op.Action), op.Hostname, ip, portList, id})
	}

	_ = table.Render()
}

func writeMetrics(cfg *config.Config, pm *metrics.PrometheusMetrics) {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := pm.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.Warn("Failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
	}
}
