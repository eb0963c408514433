package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/credstack/apiserver/types"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres error code for unique constraint
// violations.
const uniqueViolation = "23505"

// AccountRepository owns all writes to the users, accounts, and
// profiles tables. Nothing else mutates them.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByID(ctx context.Context, id int) (types.User, error) {
	const query = `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE id = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE email = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

// GetCredentials joins the user to their credentials-provider account
// for signin.
func (r *AccountRepository) GetCredentials(ctx context.Context, email string) (types.Credentials, error) {
	const query = `
		SELECT u.id, u.name, a.password_hash
		FROM users u
		JOIN accounts a ON a.user_id = u.id AND a.provider = $2
		WHERE u.email = $1`
	var creds types.Credentials
	err := r.db.QueryRowContext(ctx, query, email, types.ProviderCredentials).Scan(
		&creds.UserID,
		&creds.Name,
		&creds.PasswordHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Credentials{}, ErrNotFound
		}
		return types.Credentials{}, err
	}
	return creds, nil
}

// CreateWithCredentials inserts the user, their credentials account,
// and their profile in one transaction. Either all three rows exist
// afterwards or none do. A concurrent signup racing past the caller's
// uniqueness pre-check loses at the email constraint and surfaces as
// ErrConflict.
func (r *AccountRepository) CreateWithCredentials(ctx context.Context, email, name, passwordHash string) (types.User, error) {
	now := time.Now()
	user := types.User{
		Email:     email,
		Name:      name,
		Role:      types.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertUser = `
		INSERT INTO users (email, name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := tx.QueryRowContext(
		ctx,
		insertUser,
		user.Email,
		user.Name,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	).Scan(&user.ID); err != nil {
		return types.User{}, translateUnique(err)
	}

	const insertAccount = `
		INSERT INTO accounts (user_id, provider, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(
		ctx,
		insertAccount,
		user.ID,
		types.ProviderCredentials,
		passwordHash,
		now,
		now,
	); err != nil {
		return types.User{}, translateUnique(err)
	}

	const insertProfile = `
		INSERT INTO profiles (user_id, created_at, updated_at)
		VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, insertProfile, user.ID, now, now); err != nil {
		return types.User{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, translateUnique(err)
	}
	return user, nil
}

// List returns up to limit users ordered by id, starting after the
// cursor. The second return value is the cursor for the next page, or
// zero when no more users remain.
func (r *AccountRepository) List(ctx context.Context, cursor, limit int) ([]types.User, int, error) {
	const query = `
		SELECT id, email, name, role, created_at, updated_at
		FROM users
		WHERE id > $1
		ORDER BY id
		LIMIT $2`
	// Fetch one extra row to learn whether a next page exists.
	rows, err := r.db.QueryContext(ctx, query, cursor, limit+1)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := make([]types.User, 0, limit)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Name,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	nextCursor := 0
	if len(users) > limit {
		users = users[:limit]
		nextCursor = users[limit-1].ID
	}
	return users, nextCursor, nil
}

func translateUnique(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
