package services_test

import (
	"testing"
	"time"

	"github.com/mek0124/momentum/internal/apperror"
	"github.com/mek0124/momentum/internal/services"

	"github.com/gofrs/uuid"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	svc := services.NewTokenService("test-secret", "momentum-api", time.Hour)
	userID := uuid.Must(uuid.NewV4())

	token, err := svc.Issue(userID)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	subject, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if subject != userID {
		t.Errorf("Expected subject %s, got %s", userID, subject)
	}
}

func TestTokenService_RejectsExpired(t *testing.T) {
	svc := services.NewTokenService("test-secret", "momentum-api", -time.Minute)

	token, err := svc.Issue(uuid.Must(uuid.NewV4()))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := svc.Verify(token); !apperror.IsKind(err, apperror.Unauthenticated) {
		t.Errorf("Expected Unauthenticated for expired token, got %v", err)
	}
}

func TestTokenService_RejectsTamperedAndMalformed(t *testing.T) {
	svc := services.NewTokenService("test-secret", "momentum-api", time.Hour)
	other := services.NewTokenService("other-secret", "momentum-api", time.Hour)

	token, err := other.Issue(uuid.Must(uuid.NewV4()))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Wrong signature, garbage, and empty string all collapse into the
	// same failure; nothing reveals which check tripped.
	for _, bad := range []string{token, "not.a.token", ""} {
		if _, err := svc.Verify(bad); !apperror.IsKind(err, apperror.Unauthenticated) {
			t.Errorf("Expected Unauthenticated for %q, got %v", bad, err)
		}
	}
}

func TestTokenService_RejectsWrongIssuer(t *testing.T) {
	svc := services.NewTokenService("test-secret", "momentum-api", time.Hour)
	impostor := services.NewTokenService("test-secret", "someone-else", time.Hour)

	token, err := impostor.Issue(uuid.Must(uuid.NewV4()))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := svc.Verify(token); !apperror.IsKind(err, apperror.Unauthenticated) {
		t.Errorf("Expected Unauthenticated for foreign issuer, got %v", err)
	}
}

func TestAuthService_Login(t *testing.T) {
	db := setupDB(t)
	svc := services.NewAuthService(4)
	mustUser(t, db, "alice", false)

	user, err := svc.Login(db, "alice", "password123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Expected alice, got %s", user.Username)
	}
}

func TestAuthService_LoginFailuresIndistinguishable(t *testing.T) {
	db := setupDB(t)
	svc := services.NewAuthService(4)
	mustUser(t, db, "alice", false)

	_, wrongPassword := svc.Login(db, "alice", "wrong")
	_, unknownUser := svc.Login(db, "nobody", "password123")

	if !apperror.IsKind(wrongPassword, apperror.Unauthenticated) {
		t.Errorf("Expected Unauthenticated for wrong password, got %v", wrongPassword)
	}
	if !apperror.IsKind(unknownUser, apperror.Unauthenticated) {
		t.Errorf("Expected Unauthenticated for unknown user, got %v", unknownUser)
	}
	if wrongPassword.Error() != unknownUser.Error() {
		t.Error("Wrong-password and unknown-user must produce identical errors")
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	svc := services.NewAuthService(4)

	hash, err := svc.HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("Hash must not equal the plaintext")
	}

	if !services.VerifyPassword(hash, "hunter2") {
		t.Error("Expected matching password to verify")
	}
	if services.VerifyPassword(hash, "hunter3") {
		t.Error("Expected non-matching password to fail")
	}
}
