package domain

import "fmt"

// ConfigurationError reports a bad or missing report declaration.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// DataError reports a record that could not be read or coerced.
type DataError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("data error: %s: %s", e.Field, e.Reason)
}

func (e *DataError) Unwrap() error { return e.Err }

// CalculationError reports a calculator or tracker failure for one row.
type CalculationError struct {
	Name string
	Key  string
	Err  error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation error: %s at row %q: %v", e.Name, e.Key, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }
