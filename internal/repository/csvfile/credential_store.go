package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/renameio/v2"

	"customer-insights/internal/domain"
	"customer-insights/internal/repository"
)

const (
	usernameColumn = "username"
	passwordColumn = "password"
)

// CredentialStore keeps users in a flat CSV file with a username,password header.
// Every Save rewrites the whole file through a synced temp file and rename. Saves are
// serialized within the process; separate processes sharing the file are not.
type CredentialStore struct {
	path string
	mu   sync.Mutex

	// afterLoad runs between reading and rewriting the file in Save.
	afterLoad func()
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

func (s *CredentialStore) Path() string {
	return s.path
}

func (s *CredentialStore) Load(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.User{}, nil
		}
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	return parseUsers(data)
}

func (s *CredentialStore) Save(ctx context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if s.afterLoad != nil {
		s.afterLoad()
	}
	users = append(users, user)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{usernameColumn, passwordColumn}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, u := range users {
		if err := w.Write([]string{u.Username, u.Password}); err != nil {
			return fmt.Errorf("encode user %s: %w", u.Username, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func parseUsers(data []byte) ([]domain.User, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: credential file has no header", domain.ErrStorageRead)
		}
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrStorageRead, err)
	}

	userIdx, passIdx := -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))) {
		case usernameColumn:
			userIdx = i
		case passwordColumn:
			passIdx = i
		}
	}
	if userIdx < 0 || passIdx < 0 {
		return nil, fmt.Errorf("%w: credential file must have %q and %q columns", domain.ErrStorageRead, usernameColumn, passwordColumn)
	}

	users := []domain.User{}
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrStorageRead, line, err)
		}
		if userIdx >= len(row) || passIdx >= len(row) {
			return nil, fmt.Errorf("%w: line %d: missing username or password field", domain.ErrStorageRead, line)
		}
		users = append(users, domain.User{
			Username: row[userIdx],
			Password: row[passIdx],
		})
	}
	return users, nil
}

var _ repository.CredentialStore = (*CredentialStore)(nil)
