package goaccount

import (
	"context"
)

// AccountStatus represents the lifecycle state of the cached account.
type AccountStatus uint8

const (
	// AccountUnfinished is an exported constant or variable used by the account engine.
	// A provider identity exists but onboarding has not completed.
	AccountUnfinished AccountStatus = iota
	// AccountValid is an exported constant or variable used by the account engine.
	AccountValid
	// AccountLoggedOut is an exported constant or variable used by the account engine.
	AccountLoggedOut
)

// String describes the string operation and its observable behavior.
func (s AccountStatus) String() string {
	switch s {
	case AccountValid:
		return "valid"
	case AccountLoggedOut:
		return "loggedOut"
	default:
		return "unfinished"
	}
}

func parseAccountStatus(s string) AccountStatus {
	switch s {
	case "valid":
		return AccountValid
	case "loggedOut":
		return AccountLoggedOut
	default:
		return AccountUnfinished
	}
}

// ProviderIdentity is the remote identity record returned by an
// [IdentityProvider]. Zero-valued fields mean the provider holds no value.
type ProviderIdentity struct {
	ID          string
	Email       string
	PhoneNumber string
	DisplayName string
	PhotoURL    string
	IDToken     string
	CreatedAt   int64
}

// ProfileUpdate is the input for [IdentityProvider.UpdateProfile]. Empty
// fields leave the corresponding provider value untouched.
type ProfileUpdate struct {
	DisplayName string
	PhotoURL    string
}

// IdentityProvider is the primary interface that callers must implement to
// integrate goaccount with their identity backend. The provider owns the
// notion of a current signed-in identity; the engine never stores provider
// credentials itself.
//
// A reference Redis-backed implementation lives in the idp subpackage.
type IdentityProvider interface {
	CreateAccount(ctx context.Context, email, password string) (*ProviderIdentity, error)
	SignIn(ctx context.Context, email, password string) (*ProviderIdentity, error)
	SignOut(ctx context.Context) error
	Reauthenticate(ctx context.Context, password string) error
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*ProviderIdentity, error)
	UpdateEmail(ctx context.Context, newEmail string) (*ProviderIdentity, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	DeleteCurrentIdentity(ctx context.Context) error
	SendPasswordReset(ctx context.Context, email string) error
	Subscribe(fn func(*ProviderIdentity)) (cancel func())
}

// CredentialStore persists the serialized account snapshot between process
// runs. Implementations treat the payload as opaque bytes; credstore provides
// memory, file, and encrypted-file stores.
type CredentialStore interface {
	Save(ctx context.Context, data []byte) error
	Load(ctx context.Context) ([]byte, error)
	Clear(ctx context.Context) error
}

// BlobStore stores profile photos. Store overwrites, Delete of a missing key
// succeeds. The blob subpackage provides an S3-backed implementation.
type BlobStore interface {
	Store(ctx context.Context, key string, data []byte, contentType string) (url string, err error)
	Delete(ctx context.Context, key string) error
}

// LoginResult is returned by [Engine.LogIn]. OnboardingRequired reports that
// the identity exists but no directory record does, so the caller should route
// the user back into onboarding.
type LoginResult struct {
	Account            Account
	OnboardingRequired bool
}

// EditProfileRequest is the input for [Engine.EditProfile]. Empty fields are
// left unchanged. CurrentPassword is only consulted when the reauthentication
// stamp is stale.
type EditProfileRequest struct {
	CurrentPassword string
	Username        string
	Email           string
	Photo           []byte
}
