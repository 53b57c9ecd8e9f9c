package database

import (
	"context"
	"database/sql"
	"fmt"

	"bitewise_backend/internal/domain/user"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) ListAll(ctx context.Context) ([]*user.User, error) {
	query := `SELECT id, fcm_token, daily_calorie_goal, username FROM users ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	users := make([]*user.User, 0)
	for rows.Next() {
		var (
			u        user.User
			token    sql.NullString
			goal     sql.NullFloat64
			username sql.NullString
		)
		if err := rows.Scan(&u.ID, &token, &goal, &username); err != nil {
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		u.PushToken = token.String
		u.DailyCalorieGoal = goal.Float64
		u.Username = username.String
		users = append(users, &u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepository) ClearPushToken(ctx context.Context, userID string) error {
	query := `UPDATE users SET fcm_token = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("error clearing push token: %w", err)
	}
	return nil
}
