package repository

import (
	"context"

	"user_api/internal/models"
	"user_api/internal/storage"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindAll(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id string) error
}

type userRepository struct {
	baseRepository
}

func NewUserRepository(db *storage.SQLDB) UserRepository {
	return &userRepository{baseRepository{db: db}}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.create(ctx, user)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.findByID(ctx, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.conn(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindAll 依建立時間由新到舊列出所有用戶
func (r *userRepository) FindAll(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.conn(ctx).Order("created_at DESC").Find(&users).Error
	return users, translate(err)
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return r.deleteByID(ctx, id, &models.User{})
}
