package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"customer-insights/internal/domain"
	"customer-insights/internal/repository"
)

const createCredentialsTable = `
CREATE TABLE IF NOT EXISTS credentials (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
`

// CredentialStore keeps users in a sqlite table. Each Save is a single
// INSERT, so concurrent registrations cannot overwrite each other.
type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

func (r *CredentialStore) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCredentialsTable); err != nil {
		return fmt.Errorf("create credentials table: %w", err)
	}
	return nil
}

func (r *CredentialStore) Load(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT username, password
FROM credentials
ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: query credentials: %v", domain.ErrStorageRead, err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.Username, &user.Password); err != nil {
			return nil, fmt.Errorf("%w: scan credential: %v", domain.ErrStorageRead, err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate credentials: %v", domain.ErrStorageRead, err)
	}
	return users, nil
}

func (r *CredentialStore) Save(ctx context.Context, user domain.User) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO credentials (username, password, created_at)
VALUES (?, ?, ?)`,
		user.Username,
		user.Password,
		time.Now().UTC(),
	)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return fmt.Errorf("insert credential: %w", domain.ErrUsernameTaken)
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

var _ repository.CredentialStore = (*CredentialStore)(nil)
