package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/journal-submission-api/internal/models"
	"github.com/shopspring/decimal"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db querier
}

const userColumns = `id, username, email, first_name, last_name, role, balance, password_hash, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.FirstName, &user.LastName,
		&user.Role, &user.Balance, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create inserts a new user and fills in the generated ID
func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO users (username, email, first_name, last_name, role, balance, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.FirstName, user.LastName, user.Role,
		user.Balance, user.PasswordHash, user.CreatedAt,
	).Scan(&user.ID)
}

// GetByID retrieves a user by ID
func (r *userRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername retrieves a user by username
func (r *userRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// LockByID retrieves a user and locks the row until the transaction ends
func (r *userRepo) LockByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
}

// UsernameExists checks if a user with the given username exists
func (r *userRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE username = $1)", username).Scan(&exists)
	return exists, err
}

// AdjustBalance adds delta to the user's balance and returns the new balance
func (r *userRepo) AdjustBalance(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx,
		"UPDATE users SET balance = balance + $1 WHERE id = $2 RETURNING balance", delta, id,
	).Scan(&balance)
	return balance, err
}

// CountWithBalance returns the number of users holding a positive balance
func (r *userRepo) CountWithBalance(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE balance > 0").Scan(&count)
	return count, err
}
