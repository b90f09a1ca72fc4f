package connection

import (
	"errors"
	"fmt"
)

// ErrGuardClosed 表示 Guard 已關閉，不再建立新連線
var ErrGuardClosed = errors.New("connection guard closed")

// ConnectionError 表示一次連線嘗試失敗
type ConnectionError struct {
	Cause error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("database connection failed: %v", e.Cause)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}
