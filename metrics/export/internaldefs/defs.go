package internaldefs

import (
	"github.com/MrEthical07/ffauth"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   ffauth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine histogram to its exported name.
type HistogramDef struct {
	ID   ffauth.MetricID
	Name string
	Help string
}

// AuditDroppedName is the exported name of the audit drop counter.
const AuditDroppedName = "ffauth_audit_dropped_total"

// CounterDefs lists every exported counter.
var CounterDefs = []CounterDef{
	{ID: ffauth.MetricRegisterSuccess, Name: "ffauth_register_success_total", Help: "Successful registrations."},
	{ID: ffauth.MetricRegisterDuplicate, Name: "ffauth_register_duplicate_total", Help: "Registrations rejected because the email is taken."},
	{ID: ffauth.MetricRegisterFailure, Name: "ffauth_register_failure_total", Help: "Registrations rejected for invalid input or internal failure."},
	{ID: ffauth.MetricLoginSuccess, Name: "ffauth_login_success_total", Help: "Successful login attempts."},
	{ID: ffauth.MetricLoginFailure, Name: "ffauth_login_failure_total", Help: "Failed login attempts."},
	{ID: ffauth.MetricRefreshSuccess, Name: "ffauth_refresh_success_total", Help: "Successful refresh operations."},
	{ID: ffauth.MetricRefreshFailure, Name: "ffauth_refresh_failure_total", Help: "Failed refresh operations."},
	{ID: ffauth.MetricRefreshRotated, Name: "ffauth_refresh_rotated_total", Help: "Refreshes that rotated the session."},
	{ID: ffauth.MetricRefreshRevoked, Name: "ffauth_refresh_revoked_total", Help: "Refreshes presenting a revoked or rotated-away session."},
	{ID: ffauth.MetricRefreshRaceLost, Name: "ffauth_refresh_race_lost_total", Help: "Refreshes that lost a concurrent rotation."},
	{ID: ffauth.MetricLogout, Name: "ffauth_logout_total", Help: "Logout calls."},
	{ID: ffauth.MetricSessionCreated, Name: "ffauth_session_created_total", Help: "Created sessions."},
	{ID: ffauth.MetricSessionRemoved, Name: "ffauth_session_removed_total", Help: "Sessions removed by logout or rotation."},
	{ID: ffauth.MetricSessionPruned, Name: "ffauth_session_pruned_total", Help: "Expired sessions pruned at login."},
	{ID: ffauth.MetricPasswordRehashed, Name: "ffauth_password_rehashed_total", Help: "Password hashes upgraded at login."},
	{ID: ffauth.MetricAuthorizeSuccess, Name: "ffauth_authorize_success_total", Help: "Accepted access tokens."},
	{ID: ffauth.MetricAuthorizeFailure, Name: "ffauth_authorize_failure_total", Help: "Rejected or missing access tokens."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: ffauth.MetricAuthorizeLatency, Name: "ffauth_authorize_latency_seconds", Help: "Authorize latency histogram."},
}

// HistogramUpperBounds are the finite bucket upper bounds in seconds. The
// engine keeps one extra overflow bucket.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBucketLabels are the "le" label values for the eight engine
// buckets, in Prometheus notation.
var HistogramBucketLabels = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// NormalizeBuckets pads or truncates raw to the eight engine buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
