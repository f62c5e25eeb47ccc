// Package scanning runs nmap against live targets and hands the decoded
// run to the report parser, as an alternative to reading a saved report.
package scanning

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/logging"
)

// Scanner executes nmap scans.
type Scanner struct {
	binaryPath string
	logger     *logging.Logger
}

// Option customises a Scanner.
type Option func(*Scanner)

// WithBinaryPath runs the given nmap binary instead of looking it up in PATH.
func WithBinaryPath(path string) Option {
	return func(s *Scanner) {
		s.binaryPath = path
	}
}

// WithLogger sets the scanner logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Scanner) {
		s.logger = l
	}
}

// NewScanner creates a scanner.
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{logger: logging.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("scanner")
	return s
}

// Run validates cfg, runs nmap and returns the decoded run.
func (s *Scanner) Run(ctx context.Context, cfg *ScanConfig) (*nmap.Run, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapIngestError(errors.CodeValidation, "invalid scan configuration", err)
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	s.logger.Info("Starting scan",
		"scan_type", cfg.ScanType,
		"targets", strings.Join(cfg.Targets, ","),
		"ports", cfg.Ports)

	scanner, err := s.newNmapScanner(ctx, cfg)
	if err != nil {
		return nil, errors.WrapIngestError(errors.CodeScanFailed, "cannot create scanner", &ScanError{Op: "create scanner", Err: err})
	}

	result, warnings, err := scanner.Run()
	if warnings != nil && len(*warnings) > 0 {
		s.logger.Warn("Scan completed with warnings", "warnings", *warnings)
	}
	if err != nil {
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.WrapIngestError(errors.CodeScanFailed, "scan timed out", &ScanError{Op: "run scan", Err: err})
		}
		return nil, errors.WrapIngestError(errors.CodeScanFailed, "scanner execution failed", &ScanError{Op: "run scan", Err: err})
	}

	s.logger.Info("Scan completed", "hosts", len(result.Hosts))
	return result, nil
}

func (s *Scanner) newNmapScanner(ctx context.Context, cfg *ScanConfig) (*nmap.Scanner, error) {
	options := buildScanOptions(cfg)
	if s.binaryPath != "" {
		options = append(options, nmap.WithBinaryPath(s.binaryPath))
	}
	return nmap.NewScanner(ctx, options...)
}

// buildScanOptions creates nmap options based on scan configuration.
// Service detection is always on since documents carry service names.
func buildScanOptions(cfg *ScanConfig) []nmap.Option {
	options := []nmap.Option{
		nmap.WithTargets(cfg.Targets...),
		nmap.WithPorts(cfg.Ports),
	}

	switch cfg.ScanType {
	case TypeConnect:
		options = append(options, nmap.WithConnectScan(), nmap.WithServiceInfo())
	case TypeSYN:
		options = append(options, nmap.WithSYNScan(), nmap.WithServiceInfo())
	case TypeVersion:
		options = append(options,
			nmap.WithServiceInfo(),
			nmap.WithVersionAll(),
		)
	case TypeAggressive:
		options = append(options,
			nmap.WithConnectScan(),
			nmap.WithServiceInfo(),
			nmap.WithVersionAll(),
			nmap.WithAggressiveScan(),
		)
	}

	if cfg.SkipHostDiscovery {
		options = append(options, nmap.WithSkipHostDiscovery())
	}

	return options
}
