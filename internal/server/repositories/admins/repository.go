package admins

import (
	"context"

	"github.com/edustack/identity/internal/server/models"
)

// Repository is the admin half of the credential store. Admins are provisioned
// out-of-band; the service only reads them and seeds one at first start.
type Repository interface {
	Create(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	GetByID(ctx context.Context, id string) (*models.Admin, error)
	GetByUsername(ctx context.Context, username string) (*models.Admin, error)
	Any(ctx context.Context) (bool, error)
}
