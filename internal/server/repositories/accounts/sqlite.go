package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/hildxd/chat-server/internal/common"
	"github.com/hildxd/chat-server/internal/dbx"
	"github.com/hildxd/chat-server/internal/server/models"
)

// SQLiteRepository stores created_at as unix milliseconds.
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Create(ctx context.Context, account *models.StoredAccount) (*models.StoredAccount, error) {
	query :=
		`INSERT INTO users (fullname, email, password_hash, created_at)
		 VALUES (?, ?, ?, ?)
		 RETURNING id
		 `

	createdAt := r.now().UTC().Truncate(time.Millisecond)

	err := r.db.QueryRowContext(ctx, query,
		account.FullName, account.Email, nullableHash(account.PasswordHash), createdAt.UnixMilli()).
		Scan(&account.ID)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", common.ErrDuplicateEmail, account.Email)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.CreatedAt = createdAt
	return account, nil
}

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.StoredAccount, error) {
	query :=
		`SELECT id, fullname, email, password_hash, created_at FROM users
		 WHERE email = ?
		 `

	account := &models.StoredAccount{}
	var (
		hash      sql.NullString
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&account.ID, &account.FullName, &account.Email, &hash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	account.PasswordHash = hash.String
	account.CreatedAt = time.UnixMilli(createdAt).UTC()
	return account, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
