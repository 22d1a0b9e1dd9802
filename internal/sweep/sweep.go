package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zeromicro/go-zero/core/logx"

	"cryptoanalyst-api/internal/alerts"
	"cryptoanalyst-api/internal/store"
)

const (
	DefaultSchedule    = "@every 5m"
	defaultUserTimeout = 30 * time.Second
)

// UserLister enumerates users that have stored state.
type UserLister interface {
	UserIDs() ([]string, error)
}

// AlertEvaluator re-evaluates one user's alerts.
type AlertEvaluator interface {
	Evaluate(ctx context.Context, userID, currency string) ([]store.Alert, error)
}

// Result summarises one sweep.
type Result struct {
	Users     int
	Evaluated int
	Triggered int
	Failed    int
}

// Sweeper evaluates alerts for every stored user.
type Sweeper struct {
	users       UserLister
	alerts      AlertEvaluator
	currency    string
	userTimeout time.Duration
}

func New(users UserLister, evaluator AlertEvaluator, currency string, userTimeout time.Duration) *Sweeper {
	if currency == "" {
		currency = "usd"
	}
	if userTimeout <= 0 {
		userTimeout = defaultUserTimeout
	}
	return &Sweeper{users: users, alerts: evaluator, currency: currency, userTimeout: userTimeout}
}

// Run performs one sweep. A failing user is logged and counted; the sweep moves on.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	ids, err := s.users.UserIDs()
	if err != nil {
		return Result{}, fmt.Errorf("sweep: list users: %w", err)
	}
	res := Result{Users: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		evaluated, err := s.evaluate(ctx, id)
		if err != nil {
			res.Failed++
			logx.WithContext(ctx).Errorf("sweep: user=%s: %v", id, err)
			continue
		}
		res.Evaluated += len(evaluated)
		for _, a := range evaluated {
			if a.Status == alerts.StatusTriggered {
				res.Triggered++
			}
		}
	}
	logx.WithContext(ctx).Infof("sweep: users=%d evaluated=%d triggered=%d failed=%d",
		res.Users, res.Evaluated, res.Triggered, res.Failed)
	return res, nil
}

func (s *Sweeper) evaluate(parent context.Context, userID string) ([]store.Alert, error) {
	ctx, cancel := context.WithTimeout(parent, s.userTimeout)
	defer cancel()
	return s.alerts.Evaluate(ctx, userID, s.currency)
}

// Schedule registers the sweep on c. Runs are bound to ctx and never overlap.
func (s *Sweeper) Schedule(ctx context.Context, c *cron.Cron, spec string) (cron.EntryID, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Run(ctx); err != nil {
			logx.Errorf("sweep: %v", err)
		}
	}))
	id, err := c.AddJob(spec, job)
	if err != nil {
		return 0, fmt.Errorf("sweep: register %q: %w", spec, err)
	}
	return id, nil
}
