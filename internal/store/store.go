package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
)

// Position is one holding. Positions are replaced, never edited in place.
type Position struct {
	ID        string  `json:"id"`
	Asset     string  `json:"asset"`
	Amount    float64 `json:"amount"`
	CostBasis float64 `json:"cost_basis"`
	AddedAt   string  `json:"added_at"`
}

// Portfolio groups a user's positions.
type Portfolio struct {
	Positions []Position `json:"positions"`
}

// Alert is a persisted alert. Condition and Context stay raw so that unknown condition types
// survive a round trip untouched.
type Alert struct {
	ID           string          `json:"id"`
	Description  string          `json:"description"`
	Condition    json.RawMessage `json:"condition"`
	Status       string          `json:"status"`
	CreatedAt    string          `json:"created_at"`
	LastObserved *float64        `json:"last_observed"`
	TriggeredAt  *string         `json:"triggered_at"`
	Context      json.RawMessage `json:"context,omitempty"`
}

// UserState is the whole record owned by one user.
type UserState struct {
	Portfolio Portfolio `json:"portfolio"`
	Watchlist []string  `json:"watchlist"`
	Alerts    []Alert   `json:"alerts"`
}

// NewUserState returns an empty record.
func NewUserState() *UserState {
	return &UserState{
		Portfolio: Portfolio{Positions: []Position{}},
		Watchlist: []string{},
		Alerts:    []Alert{},
	}
}

func (u *UserState) normalise() {
	if u.Portfolio.Positions == nil {
		u.Portfolio.Positions = []Position{}
	}
	if u.Watchlist == nil {
		u.Watchlist = []string{}
	}
	if u.Alerts == nil {
		u.Alerts = []Alert{}
	}
}

type document struct {
	Users map[string]*UserState `json:"users"`
}

// Store persists every user's state in one JSON file. A single mutex guards each file read and
// write. Get followed by Put is not atomic; use Update for read-modify-write.
type Store struct {
	path string
	mu   sync.Mutex
}

// Open prepares the store file, creating {"users": {}} when it does not exist.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	s := &Store{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := s.write(&document{Users: map[string]*UserState{}}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the user's state, or an empty record for an unknown user.
func (s *Store) Get(userID string) (*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	return userOf(doc, userID), nil
}

// Put overwrites the user's whole record.
func (s *Store) Put(userID string, state *UserState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	state.normalise()
	doc.Users[userID] = state
	return s.write(doc)
}

// Update applies fn to the user's record and persists the result while holding the lock.
// Nothing is written when fn fails.
func (s *Store) Update(userID string, fn func(*UserState) error) (*UserState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	state := userOf(doc, userID)
	if err := fn(state); err != nil {
		return nil, err
	}
	state.normalise()
	doc.Users[userID] = state
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return state, nil
}

// UserIDs lists every stored user, sorted.
func (s *Store) UserIDs() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(doc.Users))
	for id := range doc.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func userOf(doc *document, userID string) *UserState {
	state, ok := doc.Users[userID]
	if !ok || state == nil {
		return NewUserState()
	}
	state.normalise()
	return state
}

// read loads the document. A missing or corrupt file reads as an empty document.
func (s *Store) read() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &document{Users: map[string]*UserState{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		logx.Errorf("store: %s is corrupt, starting empty: %v", s.path, err)
		return &document{Users: map[string]*UserState{}}, nil
	}
	if doc.Users == nil {
		doc.Users = map[string]*UserState{}
	}
	return &doc, nil
}

func (s *Store) write(doc *document) error {
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("store: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: close: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
