package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"user_api/internal/models"
	"user_api/internal/repository"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already taken")

	// ErrPasswordTooLong 表示密碼超過 bcrypt 可處理的 72 bytes
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
)

const maxPasswordBytes = 72

type UserService struct {
	repos      *repository.Repositories
	bcryptCost int
}

func NewUserService(repos *repository.Repositories) *UserService {
	return &UserService{repos: repos, bcryptCost: bcrypt.DefaultCost}
}

// Register 建立新用戶，密碼以 bcrypt 雜湊後儲存
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	users, err := s.repos.User()
	if err != nil {
		return nil, err
	}

	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	username = strings.TrimSpace(username)
	if _, err := users.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    strings.TrimSpace(email),
		Password: string(hashed),
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	users, err := s.repos.User()
	if err != nil {
		return nil, err
	}

	user, err := users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.repos.User()
	if err != nil {
		return nil, err
	}
	return users.FindAll(ctx)
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	users, err := s.repos.User()
	if err != nil {
		return err
	}

	if err := users.Delete(ctx, id); errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return err
	}
	return nil
}
