package accounts

import (
	"context"

	"github.com/edustack/identity/internal/server/models"
)

// Repository is the account half of the credential store. Lookups return
// common.ErrorNotFound when no row matches; Create surfaces uniqueness
// violations as common.ErrorDuplicateEmail / common.ErrorDuplicateExternalID.
type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Account, error)
	GetByEmailOrExternalID(ctx context.Context, email, externalID string) (*models.Account, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.Account, error)
	GetByResetToken(ctx context.Context, token string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}
