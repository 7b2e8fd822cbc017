package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/dbx"
	"github.com/hildxd/chat-server/internal/server/models"
)

const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.StoredAccount) (*models.StoredAccount, error) {
	query :=
		`INSERT INTO users (fullname, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		account.FullName, account.Email, nullableHash(account.PasswordHash)).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrDuplicateEmail, account.Email)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.StoredAccount, error) {
	query :=
		`SELECT id, fullname, email, password_hash, created_at FROM users
		 WHERE email = $1
		 `

	account := &models.StoredAccount{}
	var hash sql.NullString
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&account.ID, &account.FullName, &account.Email, &hash, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.PasswordHash = hash.String
	account.CreatedAt = account.CreatedAt.UTC()
	return account, nil
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullableHash(h string) sql.NullString {
	return sql.NullString{String: h, Valid: h != ""}
}
