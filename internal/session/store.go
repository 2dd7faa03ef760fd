// Package session persists the broker login across process restarts so a
// dashboard restart does not force a fresh browser login mid-morning. The
// access token is written to disk AES-256-GCM encrypted; Kite tokens die at
// the next day's ~6 AM IST flush, so anything from a previous IST day is
// discarded on load.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"premarketdash/internal/markethours"
)

var (
	ErrNoSession = errors.New("session: no stored session")
	ErrStale     = errors.New("session: stored session is from a previous trading day")
)

// State is what survives a restart.
type State struct {
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	AccessToken string    `json:"access_token"`
	PublicToken string    `json:"public_token"`
	LoginTime   string    `json:"login_time"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store reads and writes the encrypted session file. The encryption key is
// derived from the API secret, which the process already holds; the point is
// to keep a plaintext token off disk, not to defend against an attacker who
// has the environment.
type Store struct {
	path string
	key  [32]byte
	now  func() time.Time
}

// NewStore derives the file key from secret via SHA-256.
func NewStore(path, secret string) *Store {
	return &Store{
		path: path,
		key:  sha256.Sum256([]byte(secret)),
		now:  time.Now,
	}
}

// Save encrypts and writes the state, stamping SavedAt.
func (s *Store) Save(st State) error {
	st.SavedAt = s.now()
	plain, err := json.Marshal(st)
	if err != nil {
		return err
	}

	gcm, err := s.gcm()
	if err != nil {
		return err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return err
	}
	sealed := gcm.Seal(nonce, nonce, plain, nil)

	if err := os.WriteFile(s.path, sealed, 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", s.path, err)
	}
	return nil
}

// Load decrypts the stored state. Returns ErrNoSession when the file is
// absent, ErrStale when the token predates the current IST day.
func (s *Store) Load() (State, error) {
	sealed, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, ErrNoSession
		}
		return State{}, err
	}

	gcm, err := s.gcm()
	if err != nil {
		return State{}, err
	}
	if len(sealed) < gcm.NonceSize() {
		return State{}, fmt.Errorf("session: file %s too short", s.path)
	}
	nonce, ct := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ct, nil)
	if err != nil {
		return State{}, fmt.Errorf("session: decrypt %s: %w", s.path, err)
	}

	var st State
	if err := json.Unmarshal(plain, &st); err != nil {
		return State{}, fmt.Errorf("session: decode %s: %w", s.path, err)
	}

	saved := st.SavedAt.In(markethours.IST)
	now := s.now().In(markethours.IST)
	if saved.Year() != now.Year() || saved.YearDay() != now.YearDay() {
		return State{}, ErrStale
	}
	return st, nil
}

// Clear removes the session file. Missing file is not an error.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key[:])
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
