package test

import (
	"context"
	"errors"
	"testing"

	goaccount "github.com/halryd/goaccount"
)

func TestFullLifecycle(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()

	acct, err := s.engine.SignUp(ctx, "amy@example.com", "Abc12345!")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if acct.Status != goaccount.AccountUnfinished {
		t.Fatalf("status = %v, want unfinished", acct.Status)
	}

	acct, err = s.engine.FinishOnboarding(ctx, "amy", []byte("jpeg-bytes"))
	if err != nil {
		t.Fatalf("FinishOnboarding: %v", err)
	}
	if acct.Status != goaccount.AccountValid || acct.Username != "amy" {
		t.Fatalf("onboarded account: %+v", acct)
	}
	if acct.PhotoURL == "" {
		t.Fatal("photo url not set")
	}

	// The provider minted an ID token for the session.
	if s.provider.CurrentIdentity() == nil {
		t.Fatal("no current identity after onboarding")
	}

	if err := s.engine.LogOut(ctx); err != nil {
		t.Fatalf("LogOut: %v", err)
	}
	if s.provider.CurrentIdentity() != nil {
		t.Fatal("provider identity survives logout")
	}

	// Log back in by username.
	result, err := s.engine.LogIn(ctx, "AMY", "Abc12345!")
	if err != nil {
		t.Fatalf("LogIn: %v", err)
	}
	if result.OnboardingRequired {
		t.Fatal("onboarding required after completed onboarding")
	}
	if result.Account.Username != "amy" || result.Account.Status != goaccount.AccountValid {
		t.Fatalf("login result: %+v", result.Account)
	}
}

func TestAbandonedSignUpResumesOnboarding(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()

	if _, err := s.engine.SignUp(ctx, "bob@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if err := s.engine.LogOut(ctx); err != nil {
		t.Fatalf("LogOut: %v", err)
	}

	// Username login cannot work yet: no directory claim exists.
	if _, err := s.engine.LogIn(ctx, "bob", "Abc12345!"); !errors.Is(err, goaccount.ErrIdentifierUnresolved) {
		t.Fatalf("got %v, want ErrIdentifierUnresolved", err)
	}

	result, err := s.engine.LogIn(ctx, "bob@example.com", "Abc12345!")
	if err != nil {
		t.Fatalf("LogIn: %v", err)
	}
	if !result.OnboardingRequired {
		t.Fatal("expected onboarding to be required")
	}

	if _, err := s.engine.FinishOnboarding(ctx, "bob", nil); err != nil {
		t.Fatalf("FinishOnboarding: %v", err)
	}

	if err := s.engine.LogOut(ctx); err != nil {
		t.Fatalf("LogOut: %v", err)
	}
	if _, err := s.engine.LogIn(ctx, "bob", "Abc12345!"); err != nil {
		t.Fatalf("username login after onboarding: %v", err)
	}
}

func TestDeleteAccountFreesIdentifiers(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()

	if _, err := s.engine.SignUp(ctx, "carol@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := s.engine.FinishOnboarding(ctx, "carol", []byte("jpeg")); err != nil {
		t.Fatalf("FinishOnboarding: %v", err)
	}

	if err := s.engine.DeleteAccount(ctx, ""); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if len(s.blob.objects) != 0 {
		t.Fatal("photo survives delete")
	}

	// Both the email and the username are free again.
	if _, err := s.engine.SignUp(ctx, "carol@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp after delete: %v", err)
	}
	if _, err := s.engine.FinishOnboarding(ctx, "carol", nil); err != nil {
		t.Fatalf("FinishOnboarding after delete: %v", err)
	}
}

func TestPasswordResetRoundTrip(t *testing.T) {
	var resetToken string
	s := newStack(t, func(_, tok string) { resetToken = tok })
	ctx := context.Background()

	if _, err := s.engine.SignUp(ctx, "dora@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := s.engine.FinishOnboarding(ctx, "dora", nil); err != nil {
		t.Fatalf("FinishOnboarding: %v", err)
	}
	if err := s.engine.LogOut(ctx); err != nil {
		t.Fatalf("LogOut: %v", err)
	}

	if err := s.engine.SendPasswordReset(ctx, "dora@example.com"); err != nil {
		t.Fatalf("SendPasswordReset: %v", err)
	}
	if resetToken == "" {
		t.Fatal("no reset token delivered")
	}

	// The reset path sets the password without the sign-up strength policy;
	// login must still accept whatever the provider now holds.
	if err := s.provider.ConfirmPasswordReset(ctx, resetToken, "simplepass"); err != nil {
		t.Fatalf("ConfirmPasswordReset: %v", err)
	}

	if _, err := s.engine.LogIn(ctx, "dora", "Abc12345!"); !errors.Is(err, goaccount.ErrInvalidCredentials) {
		t.Fatalf("old password: got %v, want ErrInvalidCredentials", err)
	}
	if _, err := s.engine.LogIn(ctx, "dora", "simplepass"); err != nil {
		t.Fatalf("LogIn with new password: %v", err)
	}
}

func TestProfileEditAcrossStack(t *testing.T) {
	s := newStack(t, nil)
	ctx := context.Background()

	if _, err := s.engine.SignUp(ctx, "eve@example.com", "Abc12345!"); err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if _, err := s.engine.FinishOnboarding(ctx, "eve", nil); err != nil {
		t.Fatalf("FinishOnboarding: %v", err)
	}

	acct, err := s.engine.EditProfile(ctx, goaccount.EditProfileRequest{
		Username: "evelyn",
		Email:    "evelyn@example.com",
		Photo:    []byte("new-photo"),
	})
	if err != nil {
		t.Fatalf("EditProfile: %v", err)
	}
	if acct.Username != "evelyn" || acct.Email != "evelyn@example.com" {
		t.Fatalf("edited account: %+v", acct)
	}

	// The provider record followed the email change.
	if err := s.engine.LogOut(ctx); err != nil {
		t.Fatalf("LogOut: %v", err)
	}
	if _, err := s.engine.LogIn(ctx, "evelyn", "Abc12345!"); err != nil {
		t.Fatalf("login by new username: %v", err)
	}
	if got := s.engine.CurrentAccount().Email; got != "evelyn@example.com" {
		t.Fatalf("email = %q", got)
	}
}
