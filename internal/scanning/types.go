package scanning

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// Port validation constants.
	expectedPortRangeParts = 2
	maxPort                = 65535
)

// Scan types understood by the scanner.
const (
	TypeConnect    = "connect"
	TypeSYN        = "syn"
	TypeVersion    = "version"
	TypeAggressive = "aggressive"
)

var validScanTypes = map[string]bool{
	TypeConnect:    true,
	TypeSYN:        true,
	TypeVersion:    true,
	TypeAggressive: true,
}

// ScanError represents error types for scan operations.
type ScanError struct {
	Op  string // Operation that failed
	Err error  // Original error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ScanConfig represents the configuration for a live nmap scan.
type ScanConfig struct {
	// Targets is a list of targets to scan (IPs, hostnames, CIDR ranges)
	Targets []string
	// Ports specifies which ports to scan (e.g., "80,443" or "1-1000")
	Ports string
	// ScanType is one of connect, syn, version or aggressive
	ScanType string
	// Timeout bounds the whole scan (0 = no limit)
	Timeout time.Duration
	// SkipHostDiscovery treats every target as up
	SkipHostDiscovery bool
}

// Validate checks if the scan configuration is valid.
func (c *ScanConfig) Validate() error {
	if len(c.Targets) == 0 {
		return &ScanError{Op: "validate config", Err: fmt.Errorf("no targets specified")}
	}
	for _, target := range c.Targets {
		if strings.TrimSpace(target) == "" {
			return &ScanError{Op: "validate config", Err: fmt.Errorf("empty target")}
		}
	}
	if c.Ports == "" {
		return &ScanError{Op: "validate config", Err: fmt.Errorf("no ports specified")}
	}
	if !validScanTypes[c.ScanType] {
		return &ScanError{Op: "validate config", Err: fmt.Errorf("invalid scan type: %s", c.ScanType)}
	}
	if c.Timeout < 0 {
		return &ScanError{Op: "validate config", Err: fmt.Errorf("negative timeout: %s", c.Timeout)}
	}

	return c.validatePorts()
}

// validatePorts validates the port specification.
func (c *ScanConfig) validatePorts() error {
	for _, part := range strings.Split(c.Ports, ",") {
		if strings.Contains(part, "-") {
			if err := validatePortRange(part); err != nil {
				return err
			}
			continue
		}
		if _, err := parsePort(part); err != nil {
			return err
		}
	}
	return nil
}

// validatePortRange validates a port range (e.g., "80-100").
func validatePortRange(part string) error {
	bounds := strings.Split(part, "-")
	if len(bounds) != expectedPortRangeParts {
		return &ScanError{Op: "validate config", Err: fmt.Errorf("invalid port range format: %s", part)}
	}

	start, err := parsePort(bounds[0])
	if err != nil {
		return err
	}
	end, err := parsePort(bounds[1])
	if err != nil {
		return err
	}
	if start > end {
		return &ScanError{
			Op:  "validate config",
			Err: fmt.Errorf("invalid port range %s: start port must not exceed end port", part),
		}
	}
	return nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, &ScanError{Op: "validate config", Err: fmt.Errorf("invalid port: %q", s)}
	}
	if port < 0 || port > maxPort {
		return 0, &ScanError{Op: "validate config", Err: fmt.Errorf("invalid port: %d (must be 0-65535)", port)}
	}
	return port, nil
}
