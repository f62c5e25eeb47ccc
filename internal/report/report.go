// Package report turns nmap XML scan reports into per-host records.
//
// Parsing is delegated to github.com/Ullaakut/nmap/v3. Each host element
// becomes one HostRecord holding its first hostname, its first address and
// the ports nmap reported as open, all in document order.
package report

import (
	"os"
	"strconv"

	"github.com/Ullaakut/nmap/v3"

	"github.com/anstrom/surfacesync/internal/errors"
	"github.com/anstrom/surfacesync/internal/logging"
)

// NotAvailable is recorded when the report does not name a value.
const NotAvailable = "N/A"

const stateOpen = "open"

// PortEntry is one open port of a host.
type PortEntry struct {
	Port        string `json:"port"`
	ServiceName string `json:"service_name"`
}

// HostRecord is the per-host view of a scan report.
type HostRecord struct {
	Hostname  string      `json:"hostname"`
	IPAddress string      `json:"ip_address"`
	Ports     []PortEntry `json:"ports"`
}

// Options tunes how hosts are extracted.
type Options struct {
	// SkipInvalidHosts drops hosts without an address instead of failing.
	SkipInvalidHosts bool
	Logger           *logging.Logger
}

// Result holds the parsed records and the number of host entries skipped.
type Result struct {
	Hosts   []HostRecord
	Skipped int
}

// ParseFile reads and parses the report at path.
func ParseFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path) //nolint:gosec // report path comes from configuration
	if err != nil {
		return nil, errors.ErrReportUnreadable(path, err)
	}

	run := &nmap.Run{}
	if err := nmap.Parse(data, run); err != nil {
		return nil, errors.ErrMalformedReport(path, err)
	}

	return FromRun(run, opts)
}

// Parse parses report content held in memory.
func Parse(data []byte, opts Options) (*Result, error) {
	run := &nmap.Run{}
	if err := nmap.Parse(data, run); err != nil {
		return nil, errors.ErrMalformedReport("", err)
	}
	return FromRun(run, opts)
}

// FromRun extracts host records from an already decoded nmap run.
func FromRun(run *nmap.Run, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("report")

	result := &Result{Hosts: make([]HostRecord, 0, len(run.Hosts))}
	for i := range run.Hosts {
		record, err := convertHost(&run.Hosts[i], i)
		if err != nil {
			if opts.SkipInvalidHosts && errors.IsCode(err, errors.CodeMissingAddress) {
				logger.WarnHost("Skipping host entry without address", record.Hostname, "position", i)
				result.Skipped++
				continue
			}
			return nil, err
		}
		result.Hosts = append(result.Hosts, record)
	}

	logger.Debug("Parsed scan report", "hosts", len(result.Hosts), "skipped", result.Skipped)
	return result, nil
}

// convertHost builds the record for one host element. The returned record
// carries the hostname even when the address is missing so callers can log it.
func convertHost(h *nmap.Host, position int) (HostRecord, error) {
	record := HostRecord{
		Hostname: NotAvailable,
		Ports:    make([]PortEntry, 0, len(h.Ports)),
	}

	if len(h.Hostnames) > 0 && h.Hostnames[0].Name != "" {
		record.Hostname = h.Hostnames[0].Name
	}

	if len(h.Addresses) == 0 || h.Addresses[0].Addr == "" {
		return record, errors.ErrMissingAddress(record.Hostname, position)
	}
	record.IPAddress = h.Addresses[0].Addr

	for j := range h.Ports {
		p := &h.Ports[j]
		if p.State.State != stateOpen {
			continue
		}
		record.Ports = append(record.Ports, PortEntry{
			Port:        strconv.Itoa(int(p.ID)),
			ServiceName: serviceName(p.Service),
		})
	}

	return record, nil
}

// serviceName prefers the detected product, then the service name.
func serviceName(s nmap.Service) string {
	if s.Product != "" {
		return s.Product
	}
	if s.Name != "" {
		return s.Name
	}
	return NotAvailable
}
