package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bitewise_backend/internal/domain/meal"
)

type PostgresMealRepository struct {
	db *sql.DB
}

func NewPostgresMealRepository(db *sql.DB) *PostgresMealRepository {
	return &PostgresMealRepository{db: db}
}

func (r *PostgresMealRepository) ListByUserBetween(ctx context.Context, userID string, from, to time.Time) ([]*meal.Meal, error) {
	query := `SELECT id, user_id, date, calories, protein, carbs, fat
               FROM meals WHERE user_id = $1 AND date >= $2 AND date < $3 ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("error listing meals for user: %w", err)
	}
	defer rows.Close()

	meals := make([]*meal.Meal, 0)
	for rows.Next() {
		m := &meal.Meal{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Date, &m.Calories, &m.Protein, &m.Carbs, &m.Fat); err != nil {
			return nil, fmt.Errorf("error scanning meal: %w", err)
		}
		meals = append(meals, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meals: %w", err)
	}
	return meals, nil
}
