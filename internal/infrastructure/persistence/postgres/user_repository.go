// Package postgres provides PostgreSQL repository implementations
package postgres

import (
	"context"
	
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// UserRepository implements the user repository interface
type UserRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool, logger *zap.Logger) outbound.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *user.User) error {
	// Implementation would go here
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	// Implementation would go here
	return nil, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	// Implementation would go here
	return nil, nil
}