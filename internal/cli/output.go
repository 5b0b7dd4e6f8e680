package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/jetpackmatt/dashboard-sub019/internal/syncer"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Run-level failure (run did not execute)
	ExitCommandError = 2 // Command error (bad flags, config, database)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Report renders a run report in the configured format.
func (f *OutputFormatter) Report(rep *syncer.Report) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	fmt.Fprintf(f.Writer, "run %s (%s): success=%v tenants=%d duration=%s\n",
		rep.RunID, rep.Mode, rep.Success, len(rep.Tenants), rep.Duration)
	if rep.Window != nil {
		fmt.Fprintf(f.Writer, "  window: %s .. %s\n",
			rep.Window.Start.Format("2006-01-02 15:04:05"),
			rep.Window.End.Format("2006-01-02 15:04:05"))
	}

	entities := make([]string, 0, len(rep.Counts))
	for entity := range rep.Counts {
		entities = append(entities, entity)
	}
	sort.Strings(entities)
	for _, entity := range entities {
		fmt.Fprintf(f.Writer, "  %s: %d\n", entity, rep.Counts[entity])
	}

	for _, tr := range rep.Tenants {
		for _, warn := range tr.Warnings {
			fmt.Fprintf(f.Writer, "  tenant %d WARN: %s\n", tr.ClientID, warn)
		}
		for _, msg := range tr.Errors {
			fmt.Fprintf(f.Writer, "  tenant %d ERROR: %s\n", tr.ClientID, msg)
		}
	}
	for _, msg := range rep.Errors {
		fmt.Fprintf(f.Writer, "  RUN ERROR: %s\n", msg)
	}
	return nil
}
