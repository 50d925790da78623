package internaldefs

import (
	"strconv"

	"github.com/authgate/authgate"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported engine counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricRegisterSuccess, Name: "authgate_register_success_total", Help: "Accounts created, across all providers."},
	{ID: authgate.MetricRegisterDuplicate, Name: "authgate_register_duplicate_total", Help: "Registrations rejected because the email is taken."},
	{ID: authgate.MetricLoginSuccess, Name: "authgate_login_success_total", Help: "Successful logins, across all methods."},
	{ID: authgate.MetricLoginFailure, Name: "authgate_login_failure_total", Help: "Failed email/password logins."},
	{ID: authgate.MetricMFALoginRequired, Name: "authgate_mfa_login_required_total", Help: "Password logins answered with an MFA challenge."},
	{ID: authgate.MetricMFALoginSuccess, Name: "authgate_mfa_login_success_total", Help: "Successful MFA login completions."},
	{ID: authgate.MetricMFALoginFailure, Name: "authgate_mfa_login_failure_total", Help: "Failed MFA login completions."},
	{ID: authgate.MetricMFAReplayAttempt, Name: "authgate_mfa_replay_attempt_total", Help: "Replayed MFA pending tokens."},
	{ID: authgate.MetricGoogleLoginSuccess, Name: "authgate_google_login_success_total", Help: "Successful Google sign-ins."},
	{ID: authgate.MetricGoogleLoginFailure, Name: "authgate_google_login_failure_total", Help: "Rejected Google sign-ins."},
	{ID: authgate.MetricPhoneOTPIssued, Name: "authgate_phone_otp_issued_total", Help: "Phone one-time codes issued."},
	{ID: authgate.MetricPhoneOTPRateLimited, Name: "authgate_phone_otp_rate_limited_total", Help: "Phone code requests over the issuance quota."},
	{ID: authgate.MetricPhoneOTPVerifySuccess, Name: "authgate_phone_otp_verify_success_total", Help: "Phone codes redeemed."},
	{ID: authgate.MetricPhoneOTPVerifyFailure, Name: "authgate_phone_otp_verify_failure_total", Help: "Phone codes rejected."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Rejected refresh attempts."},
	{ID: authgate.MetricSessionCreated, Name: "authgate_session_created_total", Help: "Sessions minted."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Single-session logouts that removed a session."},
	{ID: authgate.MetricLogoutAll, Name: "authgate_logout_all_total", Help: "Revoke-all operations."},
	{ID: authgate.MetricPasswordResetRequest, Name: "authgate_password_reset_request_total", Help: "Password reset requests."},
	{ID: authgate.MetricPasswordResetSuccess, Name: "authgate_password_reset_success_total", Help: "Completed password resets."},
	{ID: authgate.MetricPasswordResetFailure, Name: "authgate_password_reset_failure_total", Help: "Rejected password reset tokens."},
	{ID: authgate.MetricTOTPSetup, Name: "authgate_totp_setup_total", Help: "TOTP secrets staged."},
	{ID: authgate.MetricTOTPEnabled, Name: "authgate_totp_enabled_total", Help: "TOTP enrolments confirmed."},
	{ID: authgate.MetricTOTPDisabled, Name: "authgate_totp_disabled_total", Help: "TOTP enrolments removed."},
	{ID: authgate.MetricTOTPFailure, Name: "authgate_totp_failure_total", Help: "Rejected TOTP codes."},
	{ID: authgate.MetricTOTPRateLimited, Name: "authgate_totp_rate_limited_total", Help: "TOTP attempts refused by the failure limiter."},
	{ID: authgate.MetricAccountStatusChanged, Name: "authgate_account_status_changed_total", Help: "Account status transitions."},
	{ID: authgate.MetricNotificationEnqueueFailure, Name: "authgate_notification_enqueue_failure_total", Help: "Notifications that could not be queued."},
}

// HistogramDefs lists the exported latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricLoginLatency, Name: "authgate_login_latency_seconds", Help: "Login latency across all methods."},
	{ID: authgate.MetricRefreshLatency, Name: "authgate_refresh_latency_seconds", Help: "Refresh rotation latency."},
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the last
// engine bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// BucketLabel is the Prometheus-style "le" value of bucket i; the last
// bucket is "+Inf".
func BucketLabel(i int) string {
	if i >= len(HistogramUpperBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(HistogramUpperBounds[i], 'g', -1, 64)
}

// EventsDroppedName is the counter for events discarded on a full dispatcher.
const EventsDroppedName = "authgate_events_dropped_total"

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [authgate.HistogramBucketCount]uint64 {
	var out [authgate.HistogramBucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [authgate.HistogramBucketCount]uint64) [authgate.HistogramBucketCount]uint64 {
	var out [authgate.HistogramBucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
