package config

import "fmt"

// IssueSeverity classifies a configuration finding.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue is a single validation finding. Path is a dotted path into the
// configuration (e.g. "legacy.name").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements error so an Issue can be returned where one is expected.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// Validate performs static checks over a loaded Config and returns the list
// of findings. It does not mutate the config; callers decide whether
// warnings are fatal.
func Validate(c *Config) []Issue {
	var issues []Issue

	errf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityError, path, fmt.Sprintf(format, a...)})
	}
	warnf := func(path, format string, a ...any) {
		issues = append(issues, Issue{SeverityWarning, path, fmt.Sprintf(format, a...)})
	}

	if c.Legacy.Name == "" {
		errf("legacy.name", "OLD_DB_NAME is required")
	}
	if c.Target.Name == "" {
		errf("target.name", "NEW_DB_NAME is required")
	}
	if c.Legacy.Name != "" && c.Legacy.Name == c.Target.Name &&
		c.Legacy.Host == c.Target.Host && c.Legacy.Port == c.Target.Port {
		errf("target.name", "legacy and target databases are the same (%s)", c.Legacy.Name)
	}

	if c.BatchSize <= 0 {
		errf("batch_size", "MIGRATE_BATCH_SIZE must be > 0, got %d", c.BatchSize)
	} else if c.BatchSize > 10000 {
		warnf("batch_size", "MIGRATE_BATCH_SIZE %d is unusually large; commits will be infrequent", c.BatchSize)
	}
	if c.PageSize <= 0 {
		errf("page_size", "MIGRATE_PAGE_SIZE must be > 0, got %d", c.PageSize)
	}

	switch c.MetricsBackend {
	case "", "none", "pushgateway":
	default:
		warnf("metrics_backend", "unknown metrics backend %q; metrics will be disabled", c.MetricsBackend)
	}
	if c.MetricsBackend == "pushgateway" && c.PushgatewayURL == "" {
		errf("pushgateway_url", "PUSHGATEWAY_URL is required when METRICS_BACKEND=pushgateway")
	}

	return issues
}

// HasErrors reports whether any issue is severity error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
