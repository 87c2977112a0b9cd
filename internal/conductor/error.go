package conductor

import (
	"fmt"
	"strings"

	"brokerage-conductor/internal/types"
)

// AccountFailure pairs one account with the error that defeated it.
type AccountFailure struct {
	Account types.Account
	Err     error
}

// ConductorError is the immutable failure report of one operation after all
// retry passes. The zero value reports success; callers must inspect
// HasErrors rather than expect the operation itself to fail.
type ConductorError struct {
	failures []AccountFailure
}

// NewReport builds a report from a failure list. The input is copied, so the
// report stays immutable even if the caller reuses the slice.
func NewReport(failures []AccountFailure) ConductorError {
	return newConductorError(failures)
}

func newConductorError(failures []AccountFailure) ConductorError {
	if len(failures) == 0 {
		return ConductorError{}
	}
	copied := make([]AccountFailure, len(failures))
	copy(copied, failures)
	return ConductorError{failures: copied}
}

func (e ConductorError) HasErrors() bool {
	return len(e.failures) > 0
}

// FormatFailures renders a per-account, human-readable summary: a count line
// plus one line per failed account. Empty string when nothing failed; callers
// surface the text verbatim.
func (e ConductorError) FormatFailures() string {
	if len(e.failures) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d account(s) failed to sync:\n", len(e.failures))
	for _, f := range e.failures {
		fmt.Fprintf(&b, "  %s/%s: %v\n", f.Account.Broker, f.Account.ID, f.Err)
	}
	return strings.TrimRight(b.String(), "\n")
}
