package alerts

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/store"
)

// StateStore is the user-state persistence alerts are kept in.
type StateStore interface {
	Get(userID string) (*store.UserState, error)
	Update(userID string, fn func(*store.UserState) error) (*store.UserState, error)
}

// Evaluation is one evaluated alert, as handed to a Recorder.
type Evaluation struct {
	UserID      string
	AlertID     string
	Status      string
	Observed    *float64
	Context     json.RawMessage
	EvaluatedAt time.Time
}

// Recorder keeps a history of evaluations.
type Recorder interface {
	RecordEvaluations(ctx context.Context, evaluations []Evaluation) error
}

// Service stores alerts and evaluates them against live market data.
type Service struct {
	store     StateStore
	evaluator *evaluator
	recorder  Recorder
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecorder records every evaluation pass. Recorder failures are logged only.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func NewService(st StateStore, market MarketReader, opts ...Option) *Service {
	s := &Service{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.evaluator = &evaluator{market: market}
	return s
}

// Add validates and stores a new armed alert.
func (s *Service) Add(ctx context.Context, userID, description string, cond Condition) (*store.Alert, error) {
	if err := cond.Validate(); err != nil {
		return nil, err
	}
	cond.Asset = strings.TrimSpace(cond.Asset)
	raw, err := json.Marshal(cond)
	if err != nil {
		return nil, err
	}
	alert := store.Alert{
		ID:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		Description: description,
		Condition:   raw,
		Status:      StatusArmed,
		CreatedAt:   s.now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := s.store.Update(userID, func(u *store.UserState) error {
		u.Alerts = append(u.Alerts, alert)
		return nil
	}); err != nil {
		return nil, err
	}
	logx.WithContext(ctx).Infof("alerts: added user=%s id=%s type=%s", userID, alert.ID, cond.Type)
	return &alert, nil
}

// Delete removes an alert by id and reports whether it existed.
func (s *Service) Delete(ctx context.Context, userID, alertID string) (bool, error) {
	removed := false
	_, err := s.store.Update(userID, func(u *store.UserState) error {
		kept := make([]store.Alert, 0, len(u.Alerts))
		for _, a := range u.Alerts {
			if a.ID == alertID {
				removed = true
				continue
			}
			kept = append(kept, a)
		}
		u.Alerts = kept
		return nil
	})
	if err != nil {
		return false, err
	}
	logx.WithContext(ctx).Infof("alerts: delete user=%s id=%s removed=%t", userID, alertID, removed)
	return removed, nil
}

// List returns the stored alerts without evaluating them.
func (s *Service) List(userID string) ([]store.Alert, error) {
	state, err := s.store.Get(userID)
	if err != nil {
		return nil, err
	}
	return state.Alerts, nil
}

// Evaluate re-derives every alert's status and persists the result. Market calls run outside the
// store lock; results are merged back by alert id, so alerts added or removed meanwhile survive.
// A failing alert keeps its status and carries the error in its context.
func (s *Service) Evaluate(ctx context.Context, userID, currency string) ([]store.Alert, error) {
	if currency == "" {
		currency = "usd"
	}
	snapshot, err := s.store.Get(userID)
	if err != nil {
		return nil, err
	}
	if len(snapshot.Alerts) == 0 {
		return snapshot.Alerts, nil
	}
	positions := positionAssets(snapshot)

	results := make(map[string]outcome, len(snapshot.Alerts))
	for _, a := range snapshot.Alerts {
		out, err := s.evaluator.evaluate(ctx, ParseRule(a.Condition), positions, currency)
		if err != nil {
			logx.WithContext(ctx).Errorf("alerts: evaluate user=%s id=%s failed: %v", userID, a.ID, err)
			out = failed(a, err)
		}
		results[a.ID] = out
	}

	now := s.now()
	var evaluated []store.Alert
	_, err = s.store.Update(userID, func(u *store.UserState) error {
		evaluated = make([]store.Alert, 0, len(u.Alerts))
		for i := range u.Alerts {
			if out, ok := results[u.Alerts[i].ID]; ok {
				out.apply(&u.Alerts[i], now)
				evaluated = append(evaluated, u.Alerts[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, userID, evaluated, now)
	return evaluated, nil
}

func (s *Service) record(ctx context.Context, userID string, evaluated []store.Alert, at time.Time) {
	if s.recorder == nil || len(evaluated) == 0 {
		return
	}
	rows := make([]Evaluation, 0, len(evaluated))
	for _, a := range evaluated {
		rows = append(rows, Evaluation{
			UserID:      userID,
			AlertID:     a.ID,
			Status:      a.Status,
			Observed:    a.LastObserved,
			Context:     a.Context,
			EvaluatedAt: at,
		})
	}
	if err := s.recorder.RecordEvaluations(ctx, rows); err != nil {
		logx.WithContext(ctx).Errorf("alerts: record evaluations user=%s: %v", userID, err)
	}
}
