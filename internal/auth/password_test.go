package auth

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	repo := NewInMemoryRepository()
	resolver := NewResolver(repo)
	ctx := context.Background()

	user, err := resolver.Register(ctx, "Ada@Example.com", "correct horse", "Ada", "Lovelace")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.Email != "ada@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.IsVerified {
		t.Error("password registrations should start unverified")
	}
	if user.PasswordHash == "" || user.PasswordHash == "correct horse" {
		t.Error("password not hashed")
	}
	if _, ok := repo.NotificationPreferencesFor(user.ID); !ok {
		t.Error("expected a notification preferences row")
	}

	got, err := resolver.Login(ctx, "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("logged in as %s, want %s", got.ID, user.ID)
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	resolver := NewResolver(NewInMemoryRepository())

	if _, err := resolver.Register(context.Background(), "ada@example.com", "short", "", ""); err == nil {
		t.Error("expected an error for a short password")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	resolver := NewResolver(NewInMemoryRepository())
	ctx := context.Background()

	if _, err := resolver.Register(ctx, "ada@example.com", "correct horse", "", ""); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	_, err := resolver.Register(ctx, "ADA@example.com", "battery staple", "", "")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Errorf("second Register returned %v, want ErrDuplicateEmail", err)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	resolver := NewResolver(NewInMemoryRepository())
	ctx := context.Background()

	if _, err := resolver.Register(ctx, "ada@example.com", "correct horse", "", ""); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	_, wrongPassword := resolver.Login(ctx, "ada@example.com", "wrong")
	_, unknownEmail := resolver.Login(ctx, "nobody@example.com", "correct horse")

	if !errors.Is(wrongPassword, ErrInvalidCredentials) {
		t.Errorf("wrong password returned %v", wrongPassword)
	}
	if !errors.Is(unknownEmail, ErrInvalidCredentials) {
		t.Errorf("unknown email returned %v", unknownEmail)
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Error("failure messages must not reveal whether the email exists")
	}
}

func TestLoginRejectsSocialOnlyAccount(t *testing.T) {
	repo := NewInMemoryRepository()
	resolver := NewResolver(repo)
	ctx := context.Background()

	if _, _, err := resolver.Resolve(ctx, Identity{Provider: ProviderGoogle, ExternalID: "g-1", Email: "ada@example.com"}); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	_, err := resolver.Login(ctx, "ada@example.com", "anything at all")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("login against a social-only account returned %v, want ErrInvalidCredentials", err)
	}
}

func TestDemoIsIdempotent(t *testing.T) {
	resolver := NewResolver(NewInMemoryRepository())
	ctx := context.Background()

	first, err := resolver.Demo(ctx)
	if err != nil {
		t.Fatalf("first Demo returned error: %v", err)
	}
	second, err := resolver.Demo(ctx)
	if err != nil {
		t.Fatalf("second Demo returned error: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("demo login created two accounts: %s vs %s", first.ID, second.ID)
	}
}
