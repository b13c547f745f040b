package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/noah-isme/trial-registry-api/internal/models"
	appErrors "github.com/noah-isme/trial-registry-api/pkg/errors"
)

const trialColumns = "trial_id, title, start_date, end_date, participants, status, duration, created_at, updated_at"

// QueryObserver receives the latency of each repository round trip.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

// TrialRepository persists clinical trials. It keeps no per-call state and is safe for concurrent use.
type TrialRepository struct {
	db       *sqlx.DB
	observer QueryObserver
}

// NewTrialRepository constructs a TrialRepository. observer may be nil.
func NewTrialRepository(db *sqlx.DB, observer QueryObserver) *TrialRepository {
	return &TrialRepository{db: db, observer: observer}
}

// FindByID returns the trial or nil when no row matches.
func (r *TrialRepository) FindByID(ctx context.Context, id string) (*models.Trial, error) {
	defer r.observe("trial_find_by_id", time.Now())

	query := r.db.Rebind("SELECT " + trialColumns + " FROM clinical_trials WHERE trial_id = ?")
	var trial models.Trial
	if err := r.db.GetContext(ctx, &trial, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, storageError("find trial", err)
	}
	return &trial, nil
}

// List returns trials ordered by trial_id and the total number of rows matching the status filter.
func (r *TrialRepository) List(ctx context.Context, filter models.TrialFilter) ([]models.Trial, int, error) {
	defer r.observe("trial_list", time.Now())

	where := ""
	args := []interface{}{}
	if filter.Status != nil {
		where = " WHERE status = ?"
		args = append(args, string(*filter.Status))
	}

	query := "SELECT " + trialColumns + " FROM clinical_trials" + where + " ORDER BY trial_id ASC"
	if filter.Paginated() {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", *filter.Size, filter.Offset())
	}

	trials := []models.Trial{}
	if err := r.db.SelectContext(ctx, &trials, r.db.Rebind(query), args...); err != nil {
		return nil, 0, storageError("list trials", err)
	}

	var total int
	countQuery := r.db.Rebind("SELECT COUNT(*) FROM clinical_trials" + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, storageError("count trials", err)
	}
	return trials, total, nil
}

// Create inserts a new trial. A primary key collision yields DUPLICATE_TRIAL_ID.
func (r *TrialRepository) Create(ctx context.Context, trial *models.Trial) error {
	defer r.observe("trial_create", time.Now())

	now := time.Now().UTC()
	trial.CreatedAt = now
	trial.UpdatedAt = now
	const query = `INSERT INTO clinical_trials (trial_id, title, start_date, end_date, participants, status, duration, created_at, updated_at)
        VALUES (:trial_id, :title, :start_date, :end_date, :participants, :status, :duration, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, trial); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Wrap(err, appErrors.ErrDuplicateTrialID.Code, appErrors.ErrDuplicateTrialID.Status, "trial id already exists")
		}
		return storageError("create trial", err)
	}
	return nil
}

// Update overwrites every mutable column of an existing trial.
func (r *TrialRepository) Update(ctx context.Context, trial *models.Trial) error {
	defer r.observe("trial_update", time.Now())

	trial.UpdatedAt = time.Now().UTC()
	const query = `UPDATE clinical_trials SET title = :title, start_date = :start_date, end_date = :end_date, participants = :participants,
        status = :status, duration = :duration, updated_at = :updated_at WHERE trial_id = :trial_id`
	res, err := r.db.NamedExecContext(ctx, query, trial)
	if err != nil {
		return storageError("update trial", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return storageError("update trial", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrTrialNotFound, "trial id does not exist")
	}
	return nil
}

// Ping checks connectivity for readiness probes.
func (r *TrialRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storageError("ping", err)
	}
	return nil
}

func (r *TrialRepository) observe(label string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveDBQuery(label, time.Since(start))
	}
}

func storageError(op string, err error) error {
	return appErrors.Wrap(fmt.Errorf("%s: %w", op, err), appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, appErrors.ErrStorage.Message)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgerrcode.UniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
