// Package errs holds the qualifier's fatal error kinds. It has no
// dependencies on the rest of the module so both the public facade and the
// internal subsystems can return and classify these without an import cycle.
//
// Domain discrepancies against RID expectations (premature/lingering/missing/
// duplicate/area-too-large) are findings, not errors — see package findings.
// These are reserved for conditions the harness itself cannot recover from.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTracksAvailable means the configured locale's track directory held
	// no regular files. Fatal at startup.
	ErrNoTracksAvailable = errors.New("ridqualifier: no tracks available for locale")

	// ErrTestDataExpired means t_end, computed at evaluation start, is
	// already in the past: the configured tracks end before the evaluator
	// could ever observe them.
	ErrTestDataExpired = errors.New("ridqualifier: test data already expired before evaluation could start")

	// ErrDegenerateGeometry means the query-rectangle expansion loop failed
	// to converge within its iteration cap.
	ErrDegenerateGeometry = errors.New("ridqualifier: query rectangle expansion did not converge")
)

// InjectionReason enumerates the classified outcomes of a failed injection
// attempt (spec §4.D).
type InjectionReason string

const (
	ReasonTestAlreadyExists InjectionReason = "TEST_ALREADY_EXISTS"
	ReasonEndpointNotFound  InjectionReason = "ENDPOINT_NOT_FOUND"
	ReasonUnauthenticated   InjectionReason = "UNAUTHENTICATED"
	ReasonInsufficientScope InjectionReason = "INSUFFICIENT_SCOPE"
	ReasonPayloadTooLarge   InjectionReason = "PAYLOAD_TOO_LARGE"
	ReasonOther             InjectionReason = "OTHER"
)

// InjectionFailedError reports why a PUT to a USS injection endpoint failed.
// One bad USS aborts the submission loop: a test-orchestration tool where
// partial injection invalidates the experiment.
type InjectionFailedError struct {
	USSName    string
	Reason     InjectionReason
	StatusCode int
}

func (e *InjectionFailedError) Error() string {
	if e.Reason == ReasonOther {
		return fmt.Sprintf("ridqualifier: injection to %s failed: unexpected status %d", e.USSName, e.StatusCode)
	}
	return fmt.Sprintf("ridqualifier: injection to %s failed: %s (status %d)", e.USSName, e.Reason, e.StatusCode)
}

// ClassifyInjectionStatus maps an HTTP status code to an injection outcome
// per spec §4.D. ok is true only for 200.
func ClassifyInjectionStatus(ussName string, status int) (ok bool, err error) {
	switch status {
	case 200:
		return true, nil
	case 409:
		return false, &InjectionFailedError{USSName: ussName, Reason: ReasonTestAlreadyExists, StatusCode: status}
	case 404:
		return false, &InjectionFailedError{USSName: ussName, Reason: ReasonEndpointNotFound, StatusCode: status}
	case 401:
		return false, &InjectionFailedError{USSName: ussName, Reason: ReasonUnauthenticated, StatusCode: status}
	case 403:
		return false, &InjectionFailedError{USSName: ussName, Reason: ReasonInsufficientScope, StatusCode: status}
	case 413:
		return false, &InjectionFailedError{USSName: ussName, Reason: ReasonPayloadTooLarge, StatusCode: status}
	default:
		return false, &InjectionFailedError{USSName: ussName, Reason: ReasonOther, StatusCode: status}
	}
}

// InvalidRecordError reports a FullFlightRecord invariant violation at a
// specific telemetry sample index. Kept here (rather than models) so the
// loader can return it without models depending on fmt-heavy error plumbing.
type InvalidRecordError struct {
	Reason string
	Index  int
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid flight record at telemetry index %d: %s", e.Index, e.Reason)
}
