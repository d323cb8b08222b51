package directory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(Config{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "skjera.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndLookupEmployee(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	dob := NewDate(1990, time.March, 14)
	alice, err := s.InsertEmployee(ctx, "alice@example.com", "Alice", &dob)
	if err != nil {
		t.Fatalf("InsertEmployee failed: %v", err)
	}
	if alice.ID == "" {
		t.Fatal("InsertEmployee returned empty ID")
	}

	byName, err := s.EmployeeByName(ctx, "Alice")
	if err != nil {
		t.Fatalf("EmployeeByName failed: %v", err)
	}
	if byName.ID != alice.ID || byName.Email != "alice@example.com" {
		t.Errorf("EmployeeByName = %+v", byName)
	}
	if byName.DOB == nil || byName.DOB.String() != "1990-03-14" {
		t.Errorf("DOB did not round-trip: %v", byName.DOB)
	}

	byEmail, err := s.EmployeeByEmail(ctx, "alice@example.com")
	if err != nil || byEmail.ID != alice.ID {
		t.Errorf("EmployeeByEmail = %+v, %v", byEmail, err)
	}

	byID, err := s.EmployeeByID(ctx, alice.ID)
	if err != nil || byID.Name != "Alice" {
		t.Errorf("EmployeeByID = %+v, %v", byID, err)
	}
}

func TestEmployeeNotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.EmployeeByName(context.Background(), "Nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEmployeeWithoutDOB(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.InsertEmployee(ctx, "bob@example.com", "Bob", nil); err != nil {
		t.Fatalf("InsertEmployee failed: %v", err)
	}

	bob, err := s.EmployeeByName(ctx, "Bob")
	if err != nil {
		t.Fatalf("EmployeeByName failed: %v", err)
	}
	if bob.DOB != nil {
		t.Errorf("DOB = %v, want nil", bob.DOB)
	}
}

func TestUpdateEmployee(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	alice, err := s.InsertEmployee(ctx, "alice@example.com", "Alice", nil)
	if err != nil {
		t.Fatalf("InsertEmployee failed: %v", err)
	}

	dob := NewDate(1985, time.December, 24)
	alice.Name = "Alice Smith"
	alice.DOB = &dob
	if err := s.UpdateEmployee(ctx, alice); err != nil {
		t.Fatalf("UpdateEmployee failed: %v", err)
	}

	got, err := s.EmployeeByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("EmployeeByID failed: %v", err)
	}
	if got.Name != "Alice Smith" || got.DOB == nil || got.DOB.String() != "1985-12-24" {
		t.Errorf("updated employee = %+v", got)
	}

	missing := Employee{ID: "no-such-id", Email: "x@example.com", Name: "X"}
	if err := s.UpdateEmployee(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing employee = %v, want ErrNotFound", err)
	}
}

func TestAccounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	alice, err := s.InsertEmployee(ctx, "alice@example.com", "Alice", nil)
	if err != nil {
		t.Fatalf("InsertEmployee failed: %v", err)
	}

	subject := "U0123ALICE"
	_, err = s.AddAccount(ctx, Account{
		EmployeeID:      alice.ID,
		Network:         NetworkSlack,
		NetworkInstance: "T03S4JU33",
		Subject:         &subject,
	})
	if err != nil {
		t.Fatalf("AddAccount failed: %v", err)
	}

	handle := "@alice"
	_, err = s.AddAccount(ctx, Account{
		EmployeeID: alice.ID,
		Network:    "bluesky",
		Nick:       &handle,
	})
	if err != nil {
		t.Fatalf("AddAccount failed: %v", err)
	}

	accounts, err := s.AccountsByEmployee(ctx, alice.ID)
	if err != nil {
		t.Fatalf("AccountsByEmployee failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("got %d accounts, want 2", len(accounts))
	}

	slackAccount, err := s.AccountForNetwork(ctx, alice.ID, NetworkSlack, "T03S4JU33")
	if err != nil {
		t.Fatalf("AccountForNetwork failed: %v", err)
	}
	if slackAccount.Subject == nil || *slackAccount.Subject != "U0123ALICE" {
		t.Errorf("slack account = %+v", slackAccount)
	}

	// Same network, different workspace: not linked.
	_, err = s.AccountForNetwork(ctx, alice.ID, NetworkSlack, "TOTHER")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
