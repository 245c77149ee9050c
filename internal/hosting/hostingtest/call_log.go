package hostingtest

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CallLogEntry is the YAML form of a Call.
type CallLogEntry struct {
	Method    string   `yaml:"method"`
	Args      []string `yaml:"args,omitempty"`
	Timestamp string   `yaml:"timestamp"`
	Error     string   `yaml:"error,omitempty"`
}

// HasError returns true if the entry has a non-empty error string.
func (e CallLogEntry) HasError() bool {
	return e.Error != ""
}

// CallLog wraps []CallLogEntry for YAML serialization.
type CallLog struct {
	Entries []CallLogEntry `yaml:"entries"`
}

// Methods returns the method of every entry in order.
func (log *CallLog) Methods() []string {
	out := make([]string, 0, len(log.Entries))
	for _, e := range log.Entries {
		out = append(out, e.Method)
	}
	return out
}

// WriteCallLog writes the fake's recorded calls to a YAML file, so a failing
// pipeline test can be inspected after the fact.
func (f *Fake) WriteCallLog(path string) error {
	calls := f.Calls()
	log := CallLog{Entries: make([]CallLogEntry, 0, len(calls))}
	for _, c := range calls {
		entry := CallLogEntry{
			Method:    c.Method,
			Args:      c.Args,
			Timestamp: c.Timestamp.Format(time.RFC3339Nano),
		}
		if c.Error != nil {
			entry.Error = c.Error.Error()
		}
		log.Entries = append(log.Entries, entry)
	}

	data, err := yaml.Marshal(log)
	if err != nil {
		return fmt.Errorf("marshaling call log to YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing call log to %s: %w", path, err)
	}
	return nil
}

// ReadCallLog reads a YAML call log file.
// Errors come back as strings; the original error values are not kept.
func ReadCallLog(path string) (*CallLog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading call log from %s: %w", path, err)
	}

	var log CallLog
	if err := yaml.Unmarshal(data, &log); err != nil {
		return nil, fmt.Errorf("unmarshaling call log YAML: %w", err)
	}
	return &log, nil
}
