package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"livequiz-service/internal/domain"
)

// SessionRow is the persisted mirror of a session's state. Created at
// launch, updated on start/stop, and filled with the final result JSON
// at completion so the report exporter can read it after the live
// session is long gone.
type SessionRow struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID             string    `bun:"id,pk"`
	JoinCode       string    `bun:"join_code,notnull"`
	QuizID         string    `bun:"quiz_id,notnull"`
	Status         string    `bun:"status,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull"`
	StartedAt      time.Time `bun:"started_at,nullzero"`
	EndedAt        time.Time `bun:"ended_at,nullzero"`
	TimerUpdatedAt time.Time `bun:"timer_updated_at,nullzero"`
	Result         []byte    `bun:"result,type:jsonb,nullzero"`
}

// Archive persists session snapshots and results, and runs the
// retention batch job.
type Archive struct {
	db *bun.DB
}

func NewArchive(db *bun.DB) *Archive {
	return &Archive{db: db}
}

// SaveSnapshot upserts the session's control fields.
func (a *Archive) SaveSnapshot(ctx context.Context, state domain.SessionState) error {
	row := &SessionRow{
		ID:             state.ID,
		JoinCode:       state.JoinCode,
		QuizID:         state.Quiz.ID,
		Status:         string(state.Status),
		CreatedAt:      state.CreatedAt,
		StartedAt:      state.StartedAt,
		EndedAt:        state.EndedAt,
		TimerUpdatedAt: state.TimerUpdatedAt,
	}
	_, err := a.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("started_at = EXCLUDED.started_at").
		Set("ended_at = EXCLUDED.ended_at").
		Set("timer_updated_at = EXCLUDED.timer_updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return nil
}

// SaveResult attaches the final result document to the session row.
func (a *Archive) SaveResult(ctx context.Context, result domain.SessionResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal session result: %w", err)
	}
	_, err = a.db.NewUpdate().
		Model((*SessionRow)(nil)).
		Set("result = ?", string(raw)).
		Where("id = ?", result.Session.ID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save session result: %w", err)
	}
	return nil
}

// LoadResult reads back an archived result document.
func (a *Archive) LoadResult(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	row := new(SessionRow)
	err := a.db.NewSelect().Model(row).Where("id = ?", sessionID).Scan(ctx)
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("load session result: %w", err)
	}
	if len(row.Result) == 0 {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	var result domain.SessionResult
	if err := json.Unmarshal(row.Result, &result); err != nil {
		return domain.SessionResult{}, fmt.Errorf("unmarshal session result: %w", err)
	}
	return result, nil
}

// Reap runs the retention pass: delete sessions older than the
// retention window, and force-complete sessions stuck active whose
// timer broadcast went silent for longer than the grace period (the
// presenter disconnected and nobody else may write the status).
func (a *Archive) Reap(ctx context.Context, now time.Time, retention, staleGrace time.Duration) (deleted, closed int64, err error) {
	del, err := a.db.NewDelete().
		Model((*SessionRow)(nil)).
		Where("created_at < ?", now.Add(-retention)).
		Exec(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reap expired sessions: %w", err)
	}
	deleted, _ = del.RowsAffected()

	upd, err := a.db.NewUpdate().
		Model((*SessionRow)(nil)).
		Set("status = ?", string(domain.StatusCompleted)).
		Set("ended_at = ?", now).
		Where("status = ?", string(domain.StatusActive)).
		Where("timer_updated_at < ?", now.Add(-staleGrace)).
		Exec(ctx)
	if err != nil {
		return deleted, 0, fmt.Errorf("close stale sessions: %w", err)
	}
	closed, _ = upd.RowsAffected()
	return deleted, closed, nil
}
