package goaccount

import "errors"

var (
	// ErrEmailEmpty is an exported constant or variable used by the account engine.
	ErrEmailEmpty = errors.New("email is empty")
	// ErrEmailInvalid is an exported constant or variable used by the account engine.
	ErrEmailInvalid = errors.New("invalid email")
	// ErrPasswordEmpty is an exported constant or variable used by the account engine.
	ErrPasswordEmpty = errors.New("password is empty")
	// ErrPasswordWeak is an exported constant or variable used by the account engine.
	ErrPasswordWeak = errors.New("password does not meet strength requirements")
	// ErrUsernameEmpty is an exported constant or variable used by the account engine.
	ErrUsernameEmpty = errors.New("username is empty")
	// ErrUsernameInvalid is an exported constant or variable used by the account engine.
	ErrUsernameInvalid = errors.New("invalid username")
	// ErrUsernameTaken is an exported constant or variable used by the account engine.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrIdentifierUnresolved is an exported constant or variable used by the account engine.
	ErrIdentifierUnresolved = errors.New("no email found for username")
	// ErrInvalidCredentials is an exported constant or variable used by the account engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailInUse is an exported constant or variable used by the account engine.
	ErrEmailInUse = errors.New("email already in use")
	// ErrNoCurrentIdentity is an exported constant or variable used by the account engine.
	ErrNoCurrentIdentity = errors.New("no current identity")
	// ErrProviderUnavailable is an exported constant or variable used by the account engine.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrDirectoryUnavailable is an exported constant or variable used by the account engine.
	ErrDirectoryUnavailable = errors.New("account directory unavailable")
	// ErrBlobUnavailable is an exported constant or variable used by the account engine.
	ErrBlobUnavailable = errors.New("blob store unavailable")
	// ErrBlobStoreNotConfigured is an exported constant or variable used by the account engine.
	ErrBlobStoreNotConfigured = errors.New("blob store not configured")
	// ErrReauthenticationRequired is an exported constant or variable used by the account engine.
	ErrReauthenticationRequired = errors.New("recent authentication required")
	// ErrOperationInFlight is an exported constant or variable used by the account engine.
	ErrOperationInFlight = errors.New("another account operation is in flight")
	// ErrResetTokenInvalid is an exported constant or variable used by the account engine.
	ErrResetTokenInvalid = errors.New("invalid or expired password reset token")
	// ErrEngineNotReady is an exported constant or variable used by the account engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrEngineClosed is an exported constant or variable used by the account engine.
	ErrEngineClosed = errors.New("engine closed")
)

// Flow titles surfaced to end users through [Describe] and [FlowError].
const (
	TitleLogOut           = "Error logging out"
	TitleLogIn            = "Error logging in"
	TitleSignUp           = "Error signing up"
	TitleOnboard          = "Error onboarding"
	TitleUploadingPhoto   = "Error uploading image"
	TitleCreatingAccount  = "Error creating user"
	TitleGettingAccount   = "Error getting user"
	TitleUpdatingAccount  = "Error updating user"
	TitleDeletingAccount  = "Error deleting user"
	TitlePasswordReset    = "Error sending reset password link"
	TitleReauthenticating = "Error reauthenticating user"
)

// FlowError defines a public type used by goaccount APIs.
//
// FlowError pairs an engine error with the title and message a user interface
// should present. The underlying sentinel stays reachable through errors.Is.
type FlowError struct {
	Title   string
	Message string
	Err     error
}

// Error describes the error operation and its observable behavior.
func (e *FlowError) Error() string {
	if e.Message == "" {
		return e.Title
	}
	return e.Title + ": " + e.Message
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *FlowError) Unwrap() error {
	return e.Err
}

// Describe maps any engine error to the title and message a user interface
// should present. Unknown errors get a generic title with the error text as
// the message.
func Describe(err error) *FlowError {
	if err == nil {
		return nil
	}

	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr
	}

	title := ""
	switch {
	case errors.Is(err, ErrEmailEmpty):
		title = "Email is empty"
	case errors.Is(err, ErrEmailInvalid), errors.Is(err, ErrEmailInUse):
		title = "Invalid email"
	case errors.Is(err, ErrPasswordEmpty):
		title = "Password is empty"
	case errors.Is(err, ErrPasswordWeak), errors.Is(err, ErrInvalidCredentials):
		title = "Invalid password"
	case errors.Is(err, ErrUsernameEmpty):
		title = "Username is empty"
	case errors.Is(err, ErrUsernameInvalid):
		title = "Invalid username"
	case errors.Is(err, ErrUsernameTaken):
		title = "Username is already taken"
	case errors.Is(err, ErrIdentifierUnresolved):
		title = "Could not fetch email from username provided"
	case errors.Is(err, ErrReauthenticationRequired):
		title = TitleReauthenticating
	default:
		return &FlowError{Title: "Something went wrong", Message: err.Error(), Err: err}
	}

	return &FlowError{Title: title, Err: err}
}

func flowError(title string, err error) *FlowError {
	var flowErr *FlowError
	if errors.As(err, &flowErr) {
		return flowErr
	}
	return &FlowError{Title: title, Message: err.Error(), Err: err}
}
