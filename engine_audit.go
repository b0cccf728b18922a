package goaccount

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventSignUpSuccess        = "signup_success"
	auditEventSignUpFailure        = "signup_failure"
	auditEventOnboardingSuccess    = "onboarding_success"
	auditEventOnboardingFailure    = "onboarding_failure"
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLogout               = "logout"
	auditEventAccountDeleted       = "account_deleted"
	auditEventAccountDeleteFailure = "account_delete_failure"
	auditEventProfileUpdated       = "profile_updated"
	auditEventProfileUpdateFailure = "profile_update_failure"
	auditEventPasswordChanged      = "password_changed"
	auditEventPasswordChangeFailed = "password_change_failure"
	auditEventPasswordResetRequest = "password_reset_request"
	auditEventPasswordResetConfirm = "password_reset_confirm"
	auditEventReauthSuccess        = "reauth_success"
	auditEventReauthFailure        = "reauth_failure"
	auditEventUsernameConflict     = "username_conflict"
	auditEventIdentityNotification = "identity_notification"
)

// AuditErrorCode defines a public type used by goaccount APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrValidation       AuditErrorCode = "validation_failed"
	auditErrInvalidCreds     AuditErrorCode = "invalid_credentials"
	auditErrEmailInUse       AuditErrorCode = "email_in_use"
	auditErrUsernameTaken    AuditErrorCode = "username_taken"
	auditErrUnresolved       AuditErrorCode = "identifier_unresolved"
	auditErrNoIdentity       AuditErrorCode = "no_current_identity"
	auditErrReauthRequired   AuditErrorCode = "reauth_required"
	auditErrResetToken       AuditErrorCode = "reset_token_invalid"
	auditErrBusy             AuditErrorCode = "operation_in_flight"
	auditErrEngineLifecycle  AuditErrorCode = "engine_unavailable"
	auditErrProviderBackend  AuditErrorCode = "provider_unavailable"
	auditErrDirectoryBackend AuditErrorCode = "directory_unavailable"
	auditErrBlobBackend      AuditErrorCode = "blob_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	accountID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if label := deviceLabelFromContext(ctx); label != "" {
		metadata = ensureMetadata(metadata)
		metadata["device"] = label
	}
	if ip := clientIPFromContext(ctx); ip != "" {
		metadata = ensureMetadata(metadata)
		metadata["client_ip"] = ip
	}

	event := AuditEvent{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		AccountID: accountID,
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func ensureMetadata(m map[string]string) map[string]string {
	if m == nil {
		return make(map[string]string, 2)
	}
	return m
}

// stepMetadata builds the conventional metadata payload for flows that fail
// partway through a multi-step sequence. The step name identifies the last
// remote call that was attempted.
func stepMetadata(step string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"step": step}
	}
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrEmailEmpty),
		errors.Is(err, ErrEmailInvalid),
		errors.Is(err, ErrPasswordEmpty),
		errors.Is(err, ErrPasswordWeak),
		errors.Is(err, ErrUsernameEmpty),
		errors.Is(err, ErrUsernameInvalid):
		return auditErrValidation
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCreds
	case errors.Is(err, ErrEmailInUse):
		return auditErrEmailInUse
	case errors.Is(err, ErrUsernameTaken):
		return auditErrUsernameTaken
	case errors.Is(err, ErrIdentifierUnresolved):
		return auditErrUnresolved
	case errors.Is(err, ErrNoCurrentIdentity):
		return auditErrNoIdentity
	case errors.Is(err, ErrReauthenticationRequired):
		return auditErrReauthRequired
	case errors.Is(err, ErrResetTokenInvalid):
		return auditErrResetToken
	case errors.Is(err, ErrOperationInFlight):
		return auditErrBusy
	case errors.Is(err, ErrEngineNotReady),
		errors.Is(err, ErrEngineClosed):
		return auditErrEngineLifecycle
	case errors.Is(err, ErrProviderUnavailable):
		return auditErrProviderBackend
	case errors.Is(err, ErrDirectoryUnavailable):
		return auditErrDirectoryBackend
	case errors.Is(err, ErrBlobUnavailable),
		errors.Is(err, ErrBlobStoreNotConfigured):
		return auditErrBlobBackend
	default:
		return auditErrInternal
	}
}
