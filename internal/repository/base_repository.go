package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"user_api/internal/storage"
)

// baseRepository 提供 gorm 通用的 CRUD 與錯誤轉換
type baseRepository struct {
	db *storage.SQLDB
}

func (r *baseRepository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

func (r *baseRepository) create(ctx context.Context, model interface{}) error {
	return translate(r.conn(ctx).Create(model).Error)
}

func (r *baseRepository) findByID(ctx context.Context, id string, model interface{}) error {
	return translate(r.conn(ctx).First(model, "id = ?", id).Error)
}

func (r *baseRepository) deleteByID(ctx context.Context, id string, model interface{}) error {
	result := r.conn(ctx).Delete(model, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
