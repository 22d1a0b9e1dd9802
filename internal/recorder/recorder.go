package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/sqlx"
	_ "modernc.org/sqlite"

	"cryptoanalyst-api/internal/alerts"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Recorder keeps a history of alert evaluations in SQL. It satisfies alerts.Recorder.
type Recorder struct {
	conn   sqlx.SqlConn
	driver string
}

var _ alerts.Recorder = (*Recorder)(nil)

// Entry is one stored evaluation.
type Entry struct {
	ID          int64           `json:"id"`
	AlertID     string          `json:"alert_id"`
	Status      string          `json:"status"`
	Observed    *float64        `json:"observed"`
	Context     json.RawMessage `json:"context,omitempty"`
	EvaluatedAt string          `json:"evaluated_at"`
}

type evaluationRow struct {
	Id            int64           `db:"id"`
	AlertId       string          `db:"alert_id"`
	Status        string          `db:"status"`
	Observed      sql.NullFloat64 `db:"observed"`
	Context       sql.NullString  `db:"context"`
	EvaluatedAtMs int64           `db:"evaluated_at_ms"`
}

// Open connects to driver/dsn and creates the schema when missing.
func Open(ctx context.Context, driver, dsn string) (*Recorder, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	if driver == "" {
		driver = DriverSQLite
	}
	if driver == "postgres" {
		driver = DriverPostgres
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("recorder: unsupported driver %q", driver)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("recorder: dsn required")
	}
	r := New(sqlx.NewSqlConn(driver, dsn), driver)
	if driver == DriverSQLite {
		if _, err := r.conn.ExecCtx(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return nil, fmt.Errorf("recorder: set WAL mode: %w", err)
		}
	}
	if err := r.Migrate(ctx); err != nil {
		return nil, err
	}
	logx.Infof("recorder: opened driver=%s", driver)
	return r, nil
}

func New(conn sqlx.SqlConn, driver string) *Recorder {
	return &Recorder{conn: conn, driver: driver}
}

// Migrate creates the alert_evaluations table and its lookup index.
func (r *Recorder) Migrate(ctx context.Context) error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	realType, intType := "REAL", "INTEGER"
	if r.driver == DriverPostgres {
		idColumn = "BIGSERIAL PRIMARY KEY"
		realType, intType = "DOUBLE PRECISION", "BIGINT"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS alert_evaluations (
    id              %s,
    user_id         TEXT NOT NULL,
    alert_id        TEXT NOT NULL,
    status          TEXT NOT NULL,
    observed        %s,
    context         TEXT,
    evaluated_at_ms %s NOT NULL
)`, idColumn, realType, intType),
		`CREATE INDEX IF NOT EXISTS idx_alert_evaluations_user_time ON alert_evaluations (user_id, evaluated_at_ms)`,
	}
	for _, stmt := range stmts {
		if _, err := r.conn.ExecCtx(ctx, stmt); err != nil {
			return fmt.Errorf("recorder: migrate: %w", err)
		}
	}
	return nil
}

// RecordEvaluations stores one evaluation pass in a single transaction.
func (r *Recorder) RecordEvaluations(ctx context.Context, evaluations []alerts.Evaluation) error {
	if r == nil || len(evaluations) == 0 {
		return nil
	}
	stmt := r.rebind(`INSERT INTO alert_evaluations (user_id, alert_id, status, observed, context, evaluated_at_ms)
VALUES (?, ?, ?, ?, ?, ?)`)
	return r.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		for _, ev := range evaluations {
			var observed sql.NullFloat64
			if ev.Observed != nil {
				observed = sql.NullFloat64{Float64: *ev.Observed, Valid: true}
			}
			var raw sql.NullString
			if len(ev.Context) > 0 {
				raw = sql.NullString{String: string(ev.Context), Valid: true}
			}
			if _, err := session.ExecCtx(ctx, stmt, ev.UserID, ev.AlertID, ev.Status, observed, raw, ev.EvaluatedAt.UnixMilli()); err != nil {
				return fmt.Errorf("recorder: insert alert=%s: %w", ev.AlertID, err)
			}
		}
		return nil
	})
}

// History returns a user's most recent evaluations, newest first.
func (r *Recorder) History(ctx context.Context, userID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	query := r.rebind(`SELECT id, alert_id, status, observed, context, evaluated_at_ms
FROM alert_evaluations
WHERE user_id = ?
ORDER BY evaluated_at_ms DESC, id DESC
LIMIT ?`)

	var rows []evaluationRow
	if err := r.conn.QueryRowsCtx(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("recorder: history query: %w", err)
	}
	out := make([]Entry, 0, len(rows))
	for i := range rows {
		out = append(out, buildEntry(&rows[i]))
	}
	return out, nil
}

func buildEntry(row *evaluationRow) Entry {
	entry := Entry{
		ID:          row.Id,
		AlertID:     row.AlertId,
		Status:      row.Status,
		EvaluatedAt: time.UnixMilli(row.EvaluatedAtMs).UTC().Format(time.RFC3339Nano),
	}
	if row.Observed.Valid {
		value := row.Observed.Float64
		entry.Observed = &value
	}
	if row.Context.Valid && json.Valid([]byte(row.Context.String)) {
		entry.Context = json.RawMessage(row.Context.String)
	}
	return entry
}

// rebind rewrites ? placeholders into $n for postgres.
func (r *Recorder) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
