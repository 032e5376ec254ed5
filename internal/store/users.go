package store

import (
	"context"
	"strings"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/models"
)

// FindOrCreateUserByEmail resolves a user for the guest booking flow,
// creating a guest user on the fly so downstream logic stays auth-agnostic.
func (s *Store) FindOrCreateUserByEmail(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.GetContext(ctx, &user, `
		INSERT INTO users (email, name, is_guest)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING *`,
		email, name)
	if err != nil {
		return nil, err
	}
	return &user, nil
}
