package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrMissingURI 表示沒有設定資料庫連線字串
	ErrMissingURI        = errors.New("database uri is not configured")
	ErrUnsupportedScheme = errors.New("unsupported database uri scheme")
)

// Conn 是一個已建立的資料庫連線
type Conn interface {
	Ping(ctx context.Context) error
	Close() error
}

// Options 是所有驅動共用的傳輸層設定
type Options struct {
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	KeepAlive              time.Duration
	RetryWrites            bool
	WriteConcern           string
	Journal                bool
}

// Open 依 uri 的 scheme 選擇驅動並建立連線，成功時連線已通過 ping
func Open(ctx context.Context, uri string, opts Options) (Conn, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, ErrMissingURI
	}

	if strings.HasPrefix(uri, "file:") {
		return openSQLite(ctx, uri, opts)
	}

	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
	}

	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return openMongo(ctx, uri, opts)
	case "postgres", "postgresql":
		return openPostgres(ctx, uri, opts)
	case "mysql":
		return openMySQL(ctx, uri, opts)
	case "sqlite", "sqlite3":
		return openSQLite(ctx, rest, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
