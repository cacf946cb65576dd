package exceptional

import "fmt"

// ConfigurationError indicates the dataset layout cannot be analyzed,
// e.g. no dimension columns to group by.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

// NumericError indicates a degenerate statistic, such as a zero or undefined
// standard deviation.
type NumericError struct {
	Op     string
	Reason string
}

func (e *NumericError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("numeric error in %s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("numeric error: %s", e.Reason)
}

// KeyMappingError indicates a row whose grouping key has no group mean.
// Group tables are built from the same rows they are read with, so this is an
// internal invariant violation.
type KeyMappingError struct {
	Stage string
	Row   int // 0-based source row index
	Key   string
}

func (e *KeyMappingError) Error() string {
	return fmt.Sprintf("%s: no group mean for key %s (row %d)", e.Stage, e.Key, e.Row+1)
}
