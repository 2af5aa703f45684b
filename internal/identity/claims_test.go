package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSignAndParsePrincipal(t *testing.T) {
	u := User{
		ID:       uuid.New(),
		Username: "pat@example.com",
		Role:     RolePatient,
		Approved: true,
	}

	token, err := SignToken(u, "test-secret", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	p, err := ParsePrincipal(token, "test-secret")
	if err != nil {
		t.Fatalf("ParsePrincipal: %v", err)
	}
	if p != u.Principal() {
		t.Fatalf("principal = %+v, want %+v", p, u.Principal())
	}
}

func TestParsePrincipalWrongSecret(t *testing.T) {
	u := User{ID: uuid.New(), Role: RoleDoctor, Approved: true}
	token, err := SignToken(u, "secret-a", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	if _, err := ParsePrincipal(token, "secret-b"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParsePrincipalExpired(t *testing.T) {
	u := User{ID: uuid.New(), Role: RolePatient, Approved: true}
	token, err := SignToken(u, "test-secret", -time.Minute)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}

	if _, err := ParsePrincipal(token, "test-secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
