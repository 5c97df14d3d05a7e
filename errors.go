package dbmigrator

import "fmt"

// ConfigurationError reports a problem with how the tool was invoked: a
// missing connection string, an unknown engine or a target script which does
// not exist. It is always raised before any database work is done.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// Configurationf builds a ConfigurationError from a format string.
func Configurationf(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// MalformedScriptError is returned when a script file does not contain the
// "-- Down" marker line exactly once.
type MalformedScriptError struct {
	File    string
	Markers int
}

func (e *MalformedScriptError) Error() string {
	if e.Markers == 0 {
		return fmt.Sprintf("malformed script '%s': missing '%s' marker", e.File, DownMarker)
	}
	return fmt.Sprintf("malformed script '%s': '%s' marker appears %d times, expected once", e.File, DownMarker, e.Markers)
}

// ExecutionError wraps a failure while running a script's SQL or its
// bookkeeping statement. The script's transaction has been rolled back by the
// time the caller sees it.
type ExecutionError struct {
	Script    string
	Direction Direction
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("error executing script %s (%s): %s", e.Script, e.Direction, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// ConnectivityError wraps a failure to open or reach the database.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("database connection failed: %s", e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}
