package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"premarketdash/internal/markethours"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "session.enc"), "api-secret")
}

func TestSaveThenLoad(t *testing.T) {
	s := testStore(t)
	want := State{UserID: "AB1234", UserName: "Test User", AccessToken: "tok-xyz"}
	if err := s.Save(want); err != nil {
		t.Fatal(err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != want.UserID || got.AccessToken != want.AccessToken {
		t.Errorf("round trip: %+v", got)
	}
	if got.SavedAt.IsZero() {
		t.Error("SavedAt not stamped")
	}
}

func TestFileIsNotPlaintext(t *testing.T) {
	s := testStore(t)
	if err := s.Save(State{AccessToken: "supersecret-token"}); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) == "" {
		t.Fatal("empty file")
	}
	if bytes.Contains(raw, []byte("supersecret-token")) {
		t.Error("token stored in the clear")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := testStore(t).Load(); !errors.Is(err, ErrNoSession) {
		t.Errorf("got %v, want ErrNoSession", err)
	}
}

func TestWrongKeyFailsDecrypt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.enc")
	if err := NewStore(path, "secret-a").Save(State{AccessToken: "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewStore(path, "secret-b").Load(); err == nil {
		t.Error("expected decrypt failure under a different key")
	}
}

func TestStaleSessionRejected(t *testing.T) {
	s := testStore(t)

	// Save "yesterday" in IST, load "today".
	yesterday := time.Date(2026, 8, 28, 20, 0, 0, 0, markethours.IST)
	s.now = func() time.Time { return yesterday }
	if err := s.Save(State{AccessToken: "old"}); err != nil {
		t.Fatal(err)
	}

	s.now = func() time.Time { return yesterday.AddDate(0, 0, 1) }
	if _, err := s.Load(); !errors.Is(err, ErrStale) {
		t.Errorf("got %v, want ErrStale", err)
	}
}

func TestClear(t *testing.T) {
	s := testStore(t)
	if err := s.Save(State{AccessToken: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNoSession) {
		t.Errorf("got %v after clear, want ErrNoSession", err)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("second clear: %v", err)
	}
}

func TestTOTPCode(t *testing.T) {
	code, err := TOTPCode("JBSWY3DPEHPK3PXP")
	if err != nil {
		t.Fatal(err)
	}
	if len(code) != 6 {
		t.Errorf("code length: got %q", code)
	}
	if _, err := TOTPCode(""); err == nil {
		t.Error("expected error on empty secret")
	}
}
