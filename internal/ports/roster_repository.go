package ports

import (
	"context"

	"github.com/pdhealth/pdseed/internal/domain"
)

type RosterRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
	// Replace overwrites the whole roster with accounts.
	Replace(ctx context.Context, accounts []domain.Account) error
	Exists() bool
	Path() string
}
