package repository

import (
	"context"
	"errors"
	"fmt"

	"user_api/internal/models"
	"user_api/internal/storage"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrDuplicate    = errors.New("duplicate record")
	ErrNoConnection = errors.New("no database connection")
)

// Source 提供目前的資料庫連線，connection.Guard 實作了它
type Source interface {
	Conn() storage.Conn
}

// Repositories 依目前的連線類型選擇對應的實作
type Repositories struct {
	source Source
}

func NewRepositories(source Source) *Repositories {
	return &Repositories{source: source}
}

func (r *Repositories) User() (UserRepository, error) {
	switch db := r.source.Conn().(type) {
	case *storage.SQLDB:
		return NewUserRepository(db), nil
	case *storage.MongoDB:
		return NewMongoUserRepository(db), nil
	case nil:
		return nil, ErrNoConnection
	default:
		return nil, fmt.Errorf("unsupported connection type %T", db)
	}
}

// Migrate 在新連線上建立資料表或索引
func Migrate(ctx context.Context, conn storage.Conn) error {
	switch db := conn.(type) {
	case *storage.SQLDB:
		return db.WithContext(ctx).AutoMigrate(&models.User{})
	case *storage.MongoDB:
		return NewMongoUserRepository(db).EnsureIndexes(ctx)
	default:
		return nil
	}
}
