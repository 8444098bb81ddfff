// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"forum/internal/cache"
	"forum/internal/database"
	"forum/internal/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	// GetCachedByID serves the auth gate. The cached copy never carries the password hash.
	GetCachedByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	FindTaken(ctx context.Context, username, email string, excludeID uint) (usernameTaken, emailTaken bool, err error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id uint, fields map[string]any) error
}

type userRepository struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewUserRepository returns a new UserRepository implementation. rdb may be nil.
func NewUserRepository(db *gorm.DB, rdb *redis.Client) UserRepository {
	return &userRepository{db: db, rdb: rdb}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetCachedByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, r.rdb, cache.UserKey(id), &user, cache.UserTTL, func() error {
		found, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		user = *found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", strings.ToLower(email))
}

// GetByIdentifier resolves a login identifier, trying the username first.
func (r *userRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	user, err := r.GetByUsername(ctx, identifier)
	if err != nil || user != nil {
		return user, err
	}
	return r.GetByEmail(ctx, identifier)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// FindTaken reports which of username and email already belong to a user
// other than excludeID. Empty values are not checked.
func (r *userRepository) FindTaken(ctx context.Context, username, email string, excludeID uint) (bool, bool, error) {
	if username == "" && email == "" {
		return false, false, nil
	}

	q := r.db.WithContext(ctx).Model(&models.User{}).Select("username", "email")
	switch {
	case username != "" && email != "":
		q = q.Where("(username = ? OR email = ?)", username, strings.ToLower(email))
	case username != "":
		q = q.Where("username = ?", username)
	default:
		q = q.Where("email = ?", strings.ToLower(email))
	}
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var matches []models.User
	if err := q.Find(&matches).Error; err != nil {
		return false, false, models.NewInternalError(err)
	}

	var usernameTaken, emailTaken bool
	for _, m := range matches {
		if username != "" && m.Username == username {
			usernameTaken = true
		}
		if email != "" && m.Email == strings.ToLower(email) {
			emailTaken = true
		}
	}
	return usernameTaken, emailTaken, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return models.NewConflictError("Username or email already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update applies a column patch and drops the cached copy of the user.
func (r *userRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	if email, ok := fields["email"].(string); ok {
		fields["email"] = strings.ToLower(email)
	}

	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if database.IsUniqueViolation(res.Error) {
			return models.NewConflictError("Username or email already exists")
		}
		return models.NewInternalError(res.Error)
	}
	cache.InvalidateUser(ctx, r.rdb, id)
	return nil
}
