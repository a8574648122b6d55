package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"forum_go/internal/core/snowflake"
	"forum_go/internal/model"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const userColumns = "id, public_id, email, display_name, created_at, modified_at"

// UserRepository user data access interface
type UserRepository interface {
	Create(ctx context.Context, email, displayName string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByPublicID(ctx context.Context, publicID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error)
}

// NewUserRepository create user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

type userRepository struct {
	db *sqlx.DB
}

// Create create user; ErrConflict when the email or display name is taken
func (r *userRepository) Create(ctx context.Context, email, displayName string) (*model.User, error) {
	ts := now()
	user := &model.User{
		ID:          snowflake.Generate(),
		PublicID:    uuid.NewString(),
		Email:       email,
		DisplayName: displayName,
		CreatedAt:   ts,
		ModifiedAt:  ts,
	}
	if user.DisplayName == "" {
		user.DisplayName = email
	}

	query := r.db.Rebind(`
		INSERT INTO users (id, public_id, email, display_name, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.PublicID, user.Email, user.DisplayName, user.CreatedAt, user.ModifiedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByID get user by internal id, nil when absent
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
}

// GetByPublicID get user by public id, nil when absent
func (r *userRepository) GetByPublicID(ctx context.Context, publicID string) (*model.User, error) {
	if !validPublicID(publicID) {
		return nil, nil
	}
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE public_id = ?", publicID)
}

// GetByEmail get user by email, nil when absent
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
}

// GetByIDs batch get users, missing ids are skipped
func (r *userRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) getOne(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	err := r.db.GetContext(ctx, &user, r.db.Rebind(query), arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
