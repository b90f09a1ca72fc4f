package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User 表示系統中的用戶，同時用於 SQL 資料表與 MongoDB 文件
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" bson:"username" json:"username"` // 用戶名，必須唯一
	Email     string    `gorm:"size:255" bson:"email,omitempty" json:"email,omitempty"`
	Password  string    `gorm:"not null" bson:"password" json:"-"` // 密碼雜湊，json 序列化時會被忽略
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// BeforeCreate 在寫入前補上 UUID
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
