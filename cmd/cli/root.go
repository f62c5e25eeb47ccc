// Package cli provides the command-line interface for surfacesync.
// It implements the Cobra-based commands that ingest nmap reports or live
// scans into the document store and inspect the effective configuration.
package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/surfacesync/internal/config"
	"github.com/anstrom/surfacesync/internal/logging"
)

const (
	envPrefix         = "SURFACESYNC"
	defaultConfigFile = "config.yaml"
	dotEnvFile        = ".env"
)

var cfgFile string

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "surfacesync",
	Short: "Sync nmap scan results into a search index",
	Long: `surfacesync reads nmap XML reports (or runs nmap itself), derives one
record per host with its open ports and services, and upserts those records
into an Elasticsearch-compatible index matched by hostname.`,
	Version:      getVersion(),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	defaults := config.Default()

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output")
	flags.String("host", defaults.Store.Host, "Document store base URL")
	flags.String("index", defaults.Store.Index, "Target index name")
	flags.String("subsidiary", defaults.Store.Subsidiary, "Tag written to newly created documents")
	flags.String("mode", defaults.Ingest.Mode, "Ingest mode: reconcile or create")
	flags.String("on-duplicate", defaults.Ingest.OnDuplicate, "Hostname matching several documents: first or error")
	flags.Bool("dry-run", false, "Reconcile and print the plan without submitting it")

	bindFlags(flags.Lookup, map[string]string{
		"verbose":             "verbose",
		"store.host":          "host",
		"store.index":         "index",
		"store.subsidiary":    "subsidiary",
		"ingest.mode":         "mode",
		"ingest.on_duplicate": "on-duplicate",
		"ingest.dry_run":      "dry-run",
	})
}

// initConfig loads .env and wires environment variables into viper.
func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load(dotEnvFile)

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// configPath returns the config file to read: the --config flag, then
// SURFACESYNC_CONFIG, then ./config.yaml.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if path := viper.GetString("config"); path != "" {
		return path
	}
	return defaultConfigFile
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then environment variables, then flags given on the command line.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, err
	}

	applyOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyOverrides copies every key set through the environment or a changed
// flag onto cfg.
func applyOverrides(cfg *config.Config) {
	stringKeys := map[string]*string{
		"store.host":          &cfg.Store.Host,
		"store.index":         &cfg.Store.Index,
		"store.subsidiary":    &cfg.Store.Subsidiary,
		"input.path":          &cfg.Input.Path,
		"ingest.mode":         &cfg.Ingest.Mode,
		"ingest.on_duplicate": &cfg.Ingest.OnDuplicate,
		"ingest.schedule":     &cfg.Ingest.Schedule,
		"logging.level":       &cfg.Logging.Level,
		"logging.format":      &cfg.Logging.Format,
		"logging.output":      &cfg.Logging.Output,
		"metrics.textfile":    &cfg.Metrics.Textfile,
		"metrics.listen":      &cfg.Metrics.Listen,
	}
	for key, target := range stringKeys {
		if viper.IsSet(key) {
			*target = viper.GetString(key)
		}
	}

	boolKeys := map[string]*bool{
		"ingest.skip_invalid_hosts": &cfg.Ingest.SkipInvalidHosts,
		"ingest.dry_run":            &cfg.Ingest.DryRun,
		"logging.rotation.enabled":  &cfg.Logging.Rotation.Enabled,
	}
	for key, target := range boolKeys {
		if viper.IsSet(key) {
			*target = viper.GetBool(key)
		}
	}

	durationKeys := map[string]*time.Duration{
		"store.timeout": &cfg.Store.Timeout,
	}
	for key, target := range durationKeys {
		if viper.IsSet(key) {
			*target = viper.GetDuration(key)
		}
	}

	if isVerbose() && !viper.IsSet("logging.level") {
		cfg.Logging.Level = string(logging.LevelDebug)
	}
}

// bindFlags binds viper keys to the named flags.
func bindFlags(lookup func(string) *pflag.Flag, bindings map[string]string) {
	for key, name := range bindings {
		if err := viper.BindPFlag(key, lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", name, err)
		}
	}
}

// isVerbose reports verbose mode from --verbose or SURFACESYNC_VERBOSE.
func isVerbose() bool {
	return viper.GetBool("verbose")
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}

// initLogging initializes structured logging from the effective configuration.
func initLogging(cfg *config.Config) {
	logger, err := logging.New(cfg.LoggingSettings())
	if err != nil {
		// Fall back to default if creation fails
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}

	logging.SetDefault(logger)

	if isVerbose() {
		logging.Info("Structured logging initialized", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	}
}

// setup loads the configuration and initializes logging for a command.
func setup() (*config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	initLogging(cfg)
	return cfg, nil
}
