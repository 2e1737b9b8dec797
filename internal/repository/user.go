package repository

import (
	"context"

	"customer-insights/internal/domain"
)

// CredentialStore persists registered users. Implementations preserve
// insertion order and never update or delete records.
type CredentialStore interface {
	Load(ctx context.Context) ([]domain.User, error)
	Save(ctx context.Context, user domain.User) error
}
