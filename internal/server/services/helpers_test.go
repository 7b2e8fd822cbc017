package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hildxd/chat-server/internal/cryptox"
	"github.com/hildxd/chat-server/internal/dbx"
	"github.com/hildxd/chat-server/internal/logging"
	"github.com/hildxd/chat-server/internal/server/metrics"
	"github.com/hildxd/chat-server/internal/server/models"
	"github.com/hildxd/chat-server/internal/server/repositories/accounts"
	"github.com/hildxd/chat-server/internal/server/repositories/repomanager"
)

// fastParams keeps Argon2 cheap in tests.
var fastParams = cryptox.Argon2Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func openSQLite(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "chat.db") + "?_pragma=busy_timeout(5000)"
	db, m, err := repomanager.Open(context.Background(), repomanager.DriverSQLite, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, m
}

func newSQLiteAccountService(t *testing.T) (*AccountService, *sql.DB) {
	t.Helper()
	db, m := openSQLite(t)
	return NewAccountService(db, m, cryptox.NewHasher(fastParams), 4, logging.Nop{}, metrics.New()), db
}

type fakeManager struct {
	repo accounts.Repository
}

func (f *fakeManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (f *fakeManager) Accounts(dbx.DBTX) accounts.Repository      { return f.repo }

type fakeAccountsRepo struct {
	created   int
	createErr error
	getOut    *models.StoredAccount
	getErr    error
}

func (f *fakeAccountsRepo) Create(_ context.Context, a *models.StoredAccount) (*models.StoredAccount, error) {
	f.created++
	if f.createErr != nil {
		return nil, f.createErr
	}
	a.ID = int64(f.created)
	return a, nil
}

func (f *fakeAccountsRepo) GetByEmail(context.Context, string) (*models.StoredAccount, error) {
	return f.getOut, f.getErr
}

type fakeHasher struct {
	hashErr   error
	verifyOK  bool
	verifyErr error
}

func (f *fakeHasher) Hash(string) (string, error) {
	if f.hashErr != nil {
		return "", f.hashErr
	}
	return "$argon2id$fake", nil
}

func (f *fakeHasher) Verify(string, string) (bool, error) {
	return f.verifyOK, f.verifyErr
}
