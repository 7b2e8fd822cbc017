// Package accounts persists user accounts. Email uniqueness is enforced by
// the database; a violation surfaces as common.ErrDuplicateEmail.
package accounts

import (
	"context"

	"github.com/hildxd/chat-server/internal/server/models"
)

type Repository interface {
	// Create inserts account in one statement and fills in the stored ID and
	// CreatedAt.
	Create(ctx context.Context, account *models.StoredAccount) (*models.StoredAccount, error)
	// GetByEmail returns common.ErrorNotFound when no row matches.
	GetByEmail(ctx context.Context, email string) (*models.StoredAccount, error)
}
