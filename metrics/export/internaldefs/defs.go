package internaldefs

import (
	goIdentity "github.com/identium/goIdentity"
)

// CounterDef defines a public type used by goIdentity APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

// HistogramDef defines a public type used by goIdentity APIs.
//
// HistogramDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type HistogramDef struct {
	ID   goIdentity.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the identity engine.
var CounterDefs = []CounterDef{
	{ID: goIdentity.MetricRegisterSuccess, Name: "goidentity_register_success_total", Help: "Successful account registrations."},
	{ID: goIdentity.MetricRegisterDuplicate, Name: "goidentity_register_duplicate_total", Help: "Registrations rejected as duplicate email."},
	{ID: goIdentity.MetricRegisterFailure, Name: "goidentity_register_failure_total", Help: "Failed registrations."},
	{ID: goIdentity.MetricConfirmationIssued, Name: "goidentity_confirmation_issued_total", Help: "Issued email confirmation tokens."},
	{ID: goIdentity.MetricConfirmationSuccess, Name: "goidentity_confirmation_success_total", Help: "Successful email confirmations."},
	{ID: goIdentity.MetricConfirmationFailure, Name: "goidentity_confirmation_failure_total", Help: "Failed email confirmations."},
	{ID: goIdentity.MetricConfirmationReplay, Name: "goidentity_confirmation_replay_total", Help: "Replayed confirmation tokens."},
	{ID: goIdentity.MetricLoginSuccess, Name: "goidentity_login_success_total", Help: "Successful login attempts."},
	{ID: goIdentity.MetricLoginFailure, Name: "goidentity_login_failure_total", Help: "Failed login attempts."},
	{ID: goIdentity.MetricLoginLockedOut, Name: "goidentity_login_locked_out_total", Help: "Sign-in attempts refused by an active lockout."},
	{ID: goIdentity.MetricTwoFactorRequired, Name: "goidentity_two_factor_required_total", Help: "Login flows requiring two-factor step-up."},
	{ID: goIdentity.MetricTwoFactorSuccess, Name: "goidentity_two_factor_success_total", Help: "Successful two-factor confirmations."},
	{ID: goIdentity.MetricTwoFactorFailure, Name: "goidentity_two_factor_failure_total", Help: "Failed two-factor confirmations."},
	{ID: goIdentity.MetricLockoutTriggered, Name: "goidentity_lockout_triggered_total", Help: "Lockouts triggered by failure accumulation."},
	{ID: goIdentity.MetricDeliveryFailure, Name: "goidentity_delivery_failure_total", Help: "Failed notifier deliveries."},
	{ID: goIdentity.MetricSessionCreated, Name: "goidentity_session_created_total", Help: "Created sessions."},
	{ID: goIdentity.MetricSessionInvalidated, Name: "goidentity_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: goIdentity.MetricLogout, Name: "goidentity_logout_total", Help: "Single-session logout operations."},
	{ID: goIdentity.MetricLogoutAll, Name: "goidentity_logout_all_total", Help: "Logout-all operations."},
}

// HistogramDefs is an exported constant or variable used by the identity engine.
var HistogramDefs = []HistogramDef{
	{ID: goIdentity.MetricLoginLatency, Name: "goidentity_login_latency_seconds", Help: "Login latency histogram."},
}

// HistogramBounds is an exported constant or variable used by the identity engine.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is an exported constant or variable used by the identity engine.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets describes the normalizebuckets operation and its observable behavior.
//
// NormalizeBuckets may return an error when input validation, dependency calls, or security checks fail.
// NormalizeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets describes the cumulativebuckets operation and its observable behavior.
//
// CumulativeBuckets may return an error when input validation, dependency calls, or security checks fail.
// CumulativeBuckets does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
