package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bitewise_backend/internal/domain/analytics"
)

// ErrAggregateConflict means another transaction created the aggregate first.
var ErrAggregateConflict = fmt.Errorf("user aggregate was created concurrently")

const maxAggregateAttempts = 5

type PostgresAnalyticsRepository struct {
	db *sql.DB
}

func NewPostgresAnalyticsRepository(db *sql.DB) *PostgresAnalyticsRepository {
	return &PostgresAnalyticsRepository{db: db}
}

// Update locks the user's aggregate row for the duration of fn.
// Two first-time creates can't lock a row that doesn't exist yet; the loser
// sees ErrAggregateConflict on insert and retries against the winner's row.
func (r *PostgresAnalyticsRepository) Update(ctx context.Context, userID string, fn analytics.UpdateFunc) error {
	var err error
	for attempt := 0; attempt < maxAggregateAttempts; attempt++ {
		err = r.updateOnce(ctx, userID, fn)
		if !errors.Is(err, ErrAggregateConflict) {
			return err
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAggregateAttempts, err)
}

func (r *PostgresAnalyticsRepository) updateOnce(ctx context.Context, userID string, fn analytics.UpdateFunc) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for aggregate update: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	current, err := scanAggregate(txn.QueryRowContext(ctx, `SELECT user_id, total_calories, total_protein, total_carbs, total_fat, total_meals, last_updated
               FROM user_analytics WHERE user_id = $1 FOR UPDATE`, userID))
	if err != nil && !errors.Is(err, analytics.ErrNotFound) {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if next == nil {
		return txn.Commit()
	}

	if current == nil {
		res, err := txn.ExecContext(ctx, `INSERT INTO user_analytics (user_id, total_calories, total_protein, total_carbs, total_fat, total_meals, last_updated)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               ON CONFLICT (user_id) DO NOTHING`,
			userID, next.Totals.Calories, next.Totals.Protein, next.Totals.Carbs, next.Totals.Fat, next.TotalMeals, next.LastUpdated)
		if err != nil {
			return fmt.Errorf("error creating user aggregate: %w", err)
		}
		if err := checkInserted(res); err != nil {
			return err
		}
	} else {
		_, err := txn.ExecContext(ctx, `UPDATE user_analytics
               SET total_calories = $2, total_protein = $3, total_carbs = $4, total_fat = $5, total_meals = $6, last_updated = $7
               WHERE user_id = $1`,
			userID, next.Totals.Calories, next.Totals.Protein, next.Totals.Carbs, next.Totals.Fat, next.TotalMeals, next.LastUpdated)
		if err != nil {
			return fmt.Errorf("error updating user aggregate: %w", err)
		}
	}

	return txn.Commit()
}

// checkInserted maps an insert that hit ON CONFLICT DO NOTHING to ErrAggregateConflict.
func checkInserted(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading inserted row count: %w", err)
	}
	if n == 0 {
		return ErrAggregateConflict
	}
	return nil
}

func (r *PostgresAnalyticsRepository) Get(ctx context.Context, userID string) (*analytics.Aggregate, error) {
	return scanAggregate(r.db.QueryRowContext(ctx, `SELECT user_id, total_calories, total_protein, total_carbs, total_fat, total_meals, last_updated
               FROM user_analytics WHERE user_id = $1`, userID))
}

func scanAggregate(row *sql.Row) (*analytics.Aggregate, error) {
	agg := &analytics.Aggregate{}
	err := row.Scan(&agg.UserID, &agg.Totals.Calories, &agg.Totals.Protein, &agg.Totals.Carbs, &agg.Totals.Fat, &agg.TotalMeals, &agg.LastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, analytics.ErrNotFound
		}
		return nil, fmt.Errorf("error getting user aggregate: %w", err)
	}
	return agg, nil
}
