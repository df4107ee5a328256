package identity

import (
	"context"
	"testing"
)

func TestMemoryStore_LookupIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	if err := st.Put(Account{UserID: "u-1", Username: "Bob", PasswordHash: "h", Role: "Teacher"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := st.LookupForLogin(context.Background(), "  bOB ")
	if err != nil {
		t.Fatalf("LookupForLogin: %v", err)
	}
	if got.UserID != "u-1" || got.Role != "Teacher" {
		t.Fatalf("unexpected account: %+v", got)
	}

	if _, err := st.LookupForLogin(context.Background(), "alice"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_CredentialLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := NewMemoryStore()
	if err := st.Put(Account{UserID: "u-1", Username: "carol", PasswordHash: "old", Role: RoleStudent}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if err := st.UpdateCredentialHash(ctx, "u-1", "new"); err != nil {
		t.Fatalf("UpdateCredentialHash: %v", err)
	}
	h, err := st.CredentialHash(ctx, "u-1")
	if err != nil || h != "new" {
		t.Fatalf("CredentialHash=%q err=%v", h, err)
	}

	if err := st.UpdateCredentialHash(ctx, "nope", "x"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := st.CredentialHash(ctx, "nope"); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := st.SetOverdueFees("u-1", true); err != nil {
		t.Fatalf("SetOverdueFees: %v", err)
	}
	a, err := st.LookupForLogin(ctx, "carol")
	if err != nil || !a.HasOverdueFees || !a.IsStudent() {
		t.Fatalf("expected overdue student, got %+v err=%v", a, err)
	}

	ok, err := st.Exists(ctx, "u-1")
	if err != nil || !ok {
		t.Fatalf("Exists=%v err=%v", ok, err)
	}
}

func TestMemoryStore_PutRenamesUser(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	_ = st.Put(Account{UserID: "u-1", Username: "dave"})
	_ = st.Put(Account{UserID: "u-1", Username: "david"})

	if _, err := st.LookupForLogin(context.Background(), "dave"); !IsNotFound(err) {
		t.Fatalf("old username must no longer resolve, got %v", err)
	}
	if _, err := st.LookupForLogin(context.Background(), "david"); err != nil {
		t.Fatalf("new username must resolve: %v", err)
	}
}

func TestMemoryStore_PutValidates(t *testing.T) {
	t.Parallel()

	st := NewMemoryStore()
	if err := st.Put(Account{Username: "x"}); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if err := st.Put(Account{UserID: "u"}); !IsInvalidInput(err) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
