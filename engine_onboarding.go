package goaccount

import (
	"context"
	"errors"
)

// FinishOnboarding describes the finishonboarding operation and its observable behavior.
//
// FinishOnboarding claims the chosen username, optionally uploads a profile
// photo, pushes the profile to the identity provider, writes the directory
// record, and moves the aggregate to the valid state. The username claim is a
// conditional create: when two accounts race for the same name exactly one
// wins and the other receives ErrUsernameTaken.
//
// FinishOnboarding may return an error when input validation, dependency calls, or security checks fail.
// FinishOnboarding does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) FinishOnboarding(ctx context.Context, username string, photo []byte) (Account, error) {
	if err := e.beginOp(); err != nil {
		return Account{}, err
	}
	defer e.opMu.Unlock()

	if err := ValidateUsername(username); err != nil {
		return e.onboardingFailed(ctx, err, "validate_username")
	}

	current := e.CurrentAccount()
	if current.ID == "" {
		return e.onboardingFailed(ctx, ErrNoCurrentIdentity, "current_identity")
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()

	// Advisory pre-check; the claim below is the authoritative gate. A claim
	// already held by this account is an interrupted earlier attempt, not a
	// conflict: the claim script overwrites self-owned entries, so the retry
	// falls through to it.
	owner, err := e.directory.OwnerOf(rctx, username)
	if err != nil {
		return e.onboardingFailed(ctx, directoryErr(err), "username_unique")
	}
	if owner != "" && owner != current.ID {
		e.metricInc(MetricUsernameConflict)
		e.emitAudit(ctx, auditEventUsernameConflict, false, current.ID, ErrUsernameTaken, stepMetadata("username_unique"))
		return e.onboardingFailed(ctx, ErrUsernameTaken, "username_unique")
	}

	photoURL := ""
	if len(photo) > 0 {
		photoURL, err = e.uploadPhoto(ctx, current.ID, photo)
		if err != nil {
			e.metricInc(MetricOnboardingFailure)
			e.emitAudit(ctx, auditEventOnboardingFailure, false, current.ID, err, stepMetadata("upload_photo"))
			return Account{}, flowError(TitleUploadingPhoto, err)
		}
	}

	identity, err := e.provider.UpdateProfile(rctx, ProfileUpdate{
		DisplayName: username,
		PhotoURL:    photoURL,
	})
	if err != nil {
		return e.onboardingFailed(ctx, err, "update_profile")
	}

	e.stateMu.Lock()
	e.account.MergeIdentity(identity)
	e.account.Username = username
	if photoURL != "" {
		e.account.PhotoURL = photoURL
	}
	claim := e.account
	e.stateMu.Unlock()

	if err := e.directory.ClaimUsername(rctx, claim.ID, username, claim.Email); err != nil {
		mapped := directoryErr(err)
		if errors.Is(mapped, ErrUsernameTaken) {
			e.metricInc(MetricUsernameConflict)
			e.emitAudit(ctx, auditEventUsernameConflict, false, claim.ID, mapped, stepMetadata("claim_username"))
		}
		return e.onboardingFailed(ctx, mapped, "claim_username")
	}

	e.stateMu.Lock()
	record := e.account.record()
	e.stateMu.Unlock()
	record.Status = AccountValid.String()

	if err := e.directory.SetRecord(rctx, claim.ID, record); err != nil {
		return e.onboardingFailed(ctx, directoryErr(err), "set_record")
	}

	e.stateMu.Lock()
	e.account.Status = AccountValid
	persistErr := e.persistLocked(ctx)
	acct := e.account
	e.stateMu.Unlock()
	if persistErr != nil {
		return e.onboardingFailed(ctx, persistErr, "persist_snapshot")
	}

	e.metricInc(MetricOnboardingSuccess)
	e.emitAudit(ctx, auditEventOnboardingSuccess, true, acct.ID, nil, nil)
	return acct, nil
}

func (e *Engine) onboardingFailed(ctx context.Context, err error, step string) (Account, error) {
	e.metricInc(MetricOnboardingFailure)
	e.emitAudit(ctx, auditEventOnboardingFailure, false, e.CurrentAccount().ID, err, stepMetadata(step))
	return Account{}, flowError(TitleOnboard, err)
}
