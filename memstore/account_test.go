package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/academix-io/authcore"
)

func TestAccountStoreSaveAndFind(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	account := &authcore.Account{
		ID:       1,
		Email:    "alice@academix.io",
		FullName: "Alice Adams",
		Role:     authcore.RoleStudent,
		Active:   true,
	}
	if err := store.Save(ctx, account); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	found, err := store.FindByEmail(ctx, "alice@academix.io")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if found.FullName != "Alice Adams" || found.Role != authcore.RoleStudent {
		t.Fatalf("unexpected account: %+v", found)
	}
}

func TestAccountStoreUnknownEmail(t *testing.T) {
	store := NewAccountStore()

	if _, err := store.FindByEmail(context.Background(), "nobody@academix.io"); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}

func TestAccountStoreReturnsCopies(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	if err := store.Save(ctx, &authcore.Account{Email: "alice@academix.io", Active: true}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first, err := store.FindByEmail(ctx, "alice@academix.io")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	first.Active = false

	second, err := store.FindByEmail(ctx, "alice@academix.io")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if !second.Active {
		t.Fatal("mutating a returned account leaked into the store")
	}
}

func TestAccountStoreTokenLookups(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	if err := store.Save(ctx, &authcore.Account{
		Email:             "alice@academix.io",
		VerificationToken: "verify-123",
		ResetToken:        "reset-456",
	}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if found, err := store.FindByVerificationToken(ctx, "verify-123"); err != nil || found.Email != "alice@academix.io" {
		t.Fatalf("FindByVerificationToken = (%v, %v)", found, err)
	}
	if found, err := store.FindByResetToken(ctx, "reset-456"); err != nil || found.Email != "alice@academix.io" {
		t.Fatalf("FindByResetToken = (%v, %v)", found, err)
	}

	if _, err := store.FindByVerificationToken(ctx, "unknown"); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
	if _, err := store.FindByResetToken(ctx, "unknown"); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}

func TestAccountStoreEmptyTokenNeverMatches(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	// Accounts with no pending token have empty token fields; an empty
	// lookup must not match them.
	if err := store.Save(ctx, &authcore.Account{Email: "alice@academix.io"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.FindByVerificationToken(ctx, ""); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
	if _, err := store.FindByResetToken(ctx, ""); !errors.Is(err, authcore.ErrAccountNotFound) {
		t.Fatalf("got %v, want ErrAccountNotFound", err)
	}
}

func TestAccountStoreNextID(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	first, err := store.NextID(ctx)
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	second, err := store.NextID(ctx)
	if err != nil {
		t.Fatalf("NextID failed: %v", err)
	}
	if first != 1 || second != 2 {
		t.Fatalf("NextID sequence = %d, %d, want 1, 2", first, second)
	}
}

func TestMFAStoreRoundTrip(t *testing.T) {
	store := NewMFAStore()
	ctx := context.Background()

	if _, err := store.GetEnrollment(ctx, "alice@academix.io"); !errors.Is(err, authcore.ErrEnrollmentNotFound) {
		t.Fatalf("got %v, want ErrEnrollmentNotFound", err)
	}

	enrollment := &authcore.Enrollment{
		Enabled:       true,
		PrimaryMethod: authcore.MethodTOTP,
		TOTPSecret:    "SECRET",
		BackupCodes:   []string{"1111-2222", "3333-4444"},
	}
	if err := store.SaveEnrollment(ctx, "alice@academix.io", enrollment); err != nil {
		t.Fatalf("SaveEnrollment failed: %v", err)
	}

	found, err := store.GetEnrollment(ctx, "alice@academix.io")
	if err != nil {
		t.Fatalf("GetEnrollment failed: %v", err)
	}
	if !found.Enabled || found.PrimaryMethod != authcore.MethodTOTP || len(found.BackupCodes) != 2 {
		t.Fatalf("unexpected enrollment: %+v", found)
	}

	// The returned slice is a copy.
	found.BackupCodes[0] = "mutated"
	again, err := store.GetEnrollment(ctx, "alice@academix.io")
	if err != nil {
		t.Fatalf("GetEnrollment failed: %v", err)
	}
	if again.BackupCodes[0] != "1111-2222" {
		t.Fatal("mutating returned backup codes leaked into the store")
	}
}
