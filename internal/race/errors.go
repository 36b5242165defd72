package race

import "fmt"

// ConfigError reports a malformed or out-of-range configuration field.
// Scenarios cannot be constructed from a configuration that fails
// validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// StrategyError reports a strategy that violates a construction
// invariant or a race rule. It is raised at construction or at
// simulation entry, never mid-run.
type StrategyError struct {
	Strategy string
	Reason   string
}

func (e *StrategyError) Error() string {
	if e.Strategy == "" {
		return fmt.Sprintf("invalid strategy: %s", e.Reason)
	}
	return fmt.Sprintf("invalid strategy %s: %s", e.Strategy, e.Reason)
}
