package goaccount

import (
	"context"
	"errors"
	"strings"
)

// EditProfile describes the editprofile operation and its observable behavior.
//
// EditProfile applies any combination of username, email, and photo changes.
// The flow is gated on recent authentication; a stale session can pass the
// current password for an inline reauthentication. A rename releases the old
// claim before taking the new one, so the account never holds two index rows;
// a crash between the two is repaired by retrying the rename.
//
// EditProfile may return an error when input validation, dependency calls, or security checks fail.
// EditProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) EditProfile(ctx context.Context, req EditProfileRequest) (Account, error) {
	if err := e.beginOp(); err != nil {
		return Account{}, err
	}
	defer e.opMu.Unlock()

	current := e.CurrentAccount()
	if current.ID == "" {
		return e.profileFailed(ctx, ErrNoCurrentIdentity, "current_identity")
	}

	if err := e.requireRecentAuth(ctx, req.CurrentPassword); err != nil {
		e.metricInc(MetricProfileUpdateFailure)
		return Account{}, err
	}

	// A case-only rename is still a rename: the claim key folds case, so the
	// old claim stays valid and only the record casing changes.
	usernameChanged := req.Username != "" && req.Username != current.Username
	emailChanged := req.Email != "" && !strings.EqualFold(req.Email, current.Email)

	if usernameChanged {
		if err := ValidateUsername(req.Username); err != nil {
			return e.profileFailed(ctx, err, "validate_username")
		}
	}
	if emailChanged {
		if err := ValidateEmail(req.Email); err != nil {
			return e.profileFailed(ctx, err, "validate_email")
		}
	}

	rctx, cancel := e.remoteCtx(ctx)
	defer cancel()

	renamed := usernameChanged && !strings.EqualFold(req.Username, current.Username)
	if renamed {
		// Ownership-aware pre-check: a claim this account already holds is a
		// leftover from an interrupted rename and must not block the retry.
		owner, err := e.directory.OwnerOf(rctx, req.Username)
		if err != nil {
			return e.profileFailed(ctx, directoryErr(err), "username_unique")
		}
		if owner != "" && owner != current.ID {
			e.metricInc(MetricUsernameConflict)
			e.emitAudit(ctx, auditEventUsernameConflict, false, current.ID, ErrUsernameTaken, stepMetadata("username_unique"))
			return e.profileFailed(ctx, ErrUsernameTaken, "username_unique")
		}
	}

	photoURL := ""
	if len(req.Photo) > 0 {
		url, err := e.uploadPhoto(ctx, current.ID, req.Photo)
		if err != nil {
			e.metricInc(MetricProfileUpdateFailure)
			e.emitAudit(ctx, auditEventProfileUpdateFailure, false, current.ID, err, stepMetadata("upload_photo"))
			return Account{}, flowError(TitleUploadingPhoto, err)
		}
		photoURL = url
	}

	if usernameChanged || photoURL != "" {
		identity, err := e.provider.UpdateProfile(rctx, ProfileUpdate{
			DisplayName: req.Username,
			PhotoURL:    photoURL,
		})
		if err != nil {
			return e.profileFailed(ctx, err, "update_profile")
		}
		e.stateMu.Lock()
		e.account.MergeIdentity(identity)
		if usernameChanged {
			e.account.Username = req.Username
		}
		e.stateMu.Unlock()
	}

	if emailChanged {
		identity, err := e.provider.UpdateEmail(rctx, req.Email)
		if err != nil {
			return e.profileFailed(ctx, err, "update_email")
		}
		e.stateMu.Lock()
		e.account.MergeIdentity(identity)
		e.account.Email = req.Email
		e.stateMu.Unlock()
	}

	acct := e.CurrentAccount()

	if renamed {
		// Release-old before claim-new: the account never holds two index
		// rows at once. A crash between the two leaves it briefly nameless;
		// retrying the rename claims the new name and repairs that.
		if current.Username != "" {
			if err := e.directory.ReleaseUsername(rctx, acct.ID, current.Username); err != nil {
				return e.profileFailed(ctx, directoryErr(err), "release_username")
			}
		}
		if err := e.directory.ClaimUsername(rctx, acct.ID, req.Username, acct.Email); err != nil {
			mapped := directoryErr(err)
			if errors.Is(mapped, ErrUsernameTaken) {
				e.metricInc(MetricUsernameConflict)
				e.emitAudit(ctx, auditEventUsernameConflict, false, acct.ID, mapped, stepMetadata("claim_username"))
			}
			return e.profileFailed(ctx, mapped, "claim_username")
		}
	} else if (usernameChanged || emailChanged) && acct.Username != "" {
		// The index entry carries casing and email, so both kinds of change
		// refresh the existing claim.
		if err := e.directory.ClaimUsername(rctx, acct.ID, acct.Username, acct.Email); err != nil {
			return e.profileFailed(ctx, directoryErr(err), "claim_username")
		}
	}

	if err := e.directory.SetRecord(rctx, acct.ID, acct.record()); err != nil {
		return e.profileFailed(ctx, directoryErr(err), "set_record")
	}

	if err := e.persist(ctx); err != nil {
		return e.profileFailed(ctx, err, "persist_snapshot")
	}

	e.metricInc(MetricProfileUpdateSuccess)
	e.emitAudit(ctx, auditEventProfileUpdated, true, acct.ID, nil, nil)
	return acct, nil
}

func (e *Engine) profileFailed(ctx context.Context, err error, step string) (Account, error) {
	e.metricInc(MetricProfileUpdateFailure)
	e.emitAudit(ctx, auditEventProfileUpdateFailure, false, e.CurrentAccount().ID, err, stepMetadata(step))
	return Account{}, flowError(TitleUpdatingAccount, err)
}
