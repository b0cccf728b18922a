package internaldefs

import (
	goaccount "github.com/halryd/goaccount"
)

// CounterDef defines a public type used by goaccount APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   goaccount.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the account engine.
var CounterDefs = []CounterDef{
	{ID: goaccount.MetricSignUpSuccess, Name: "goaccount_signup_success_total", Help: "Successful sign-ups."},
	{ID: goaccount.MetricSignUpFailure, Name: "goaccount_signup_failure_total", Help: "Failed sign-ups."},
	{ID: goaccount.MetricOnboardingSuccess, Name: "goaccount_onboarding_success_total", Help: "Completed onboarding flows."},
	{ID: goaccount.MetricOnboardingFailure, Name: "goaccount_onboarding_failure_total", Help: "Failed onboarding flows."},
	{ID: goaccount.MetricLoginSuccess, Name: "goaccount_login_success_total", Help: "Successful login attempts."},
	{ID: goaccount.MetricLoginFailure, Name: "goaccount_login_failure_total", Help: "Failed login attempts."},
	{ID: goaccount.MetricLogout, Name: "goaccount_logout_total", Help: "Logout operations."},
	{ID: goaccount.MetricAccountDeleted, Name: "goaccount_account_deleted_total", Help: "Completed account deletions."},
	{ID: goaccount.MetricAccountDeleteFailure, Name: "goaccount_account_delete_failure_total", Help: "Failed account deletions."},
	{ID: goaccount.MetricProfileUpdateSuccess, Name: "goaccount_profile_update_success_total", Help: "Successful profile updates."},
	{ID: goaccount.MetricProfileUpdateFailure, Name: "goaccount_profile_update_failure_total", Help: "Failed profile updates."},
	{ID: goaccount.MetricPasswordChangeSuccess, Name: "goaccount_password_change_success_total", Help: "Successful password changes."},
	{ID: goaccount.MetricPasswordChangeFailure, Name: "goaccount_password_change_failure_total", Help: "Failed password changes."},
	{ID: goaccount.MetricPasswordResetRequest, Name: "goaccount_password_reset_request_total", Help: "Password reset requests."},
	{ID: goaccount.MetricReauthSuccess, Name: "goaccount_reauth_success_total", Help: "Successful reauthentications."},
	{ID: goaccount.MetricReauthFailure, Name: "goaccount_reauth_failure_total", Help: "Failed reauthentications."},
	{ID: goaccount.MetricReauthRequired, Name: "goaccount_reauth_required_total", Help: "Operations denied pending reauthentication."},
	{ID: goaccount.MetricUsernameConflict, Name: "goaccount_username_conflict_total", Help: "Username claims lost to an existing owner."},
	{ID: goaccount.MetricIdentityNotification, Name: "goaccount_identity_notification_total", Help: "Identity-change notifications received."},
	{ID: goaccount.MetricOperationRejectedBusy, Name: "goaccount_operation_rejected_busy_total", Help: "Operations rejected because another flow was in flight."},
}
