package storage

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLDB 包裝 gorm 連線，PostgreSQL、MySQL 與 SQLite 共用
type SQLDB struct {
	*gorm.DB
}

func openPostgres(ctx context.Context, uri string, opts Options) (*SQLDB, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres uri: %w", err)
	}

	q := u.Query()
	if q.Get("connect_timeout") == "" && opts.ServerSelectionTimeout > 0 {
		q.Set("connect_timeout", strconv.Itoa(int(math.Ceil(opts.ServerSelectionTimeout.Seconds()))))
		u.RawQuery = q.Encode()
	}

	return openSQL(ctx, postgres.Open(u.String()), opts)
}

func openMySQL(ctx context.Context, uri string, opts Options) (*SQLDB, error) {
	dsn, err := mysqlDSN(uri, opts)
	if err != nil {
		return nil, err
	}

	return openSQL(ctx, mysql.New(mysql.Config{
		DSN:                       dsn,
		SkipInitializeWithVersion: true,
	}), opts)
}

// mysqlDSN 將 mysql:// URI 轉成 go-sql-driver 的 DSN，URI 上的查詢參數（tls、charset 等）優先於預設值
func mysqlDSN(uri string, opts Options) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid mysql uri: %w", err)
	}

	cfg := mysqldriver.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	cfg.Timeout = opts.ServerSelectionTimeout
	cfg.ReadTimeout = opts.SocketTimeout
	cfg.WriteTimeout = opts.SocketTimeout
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}

	dsn := cfg.FormatDSN()
	if u.RawQuery == "" {
		return dsn, nil
	}
	if strings.Contains(dsn, "?") {
		dsn += "&" + u.RawQuery
	} else {
		dsn += "?" + u.RawQuery
	}

	parsed, err := mysqldriver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql uri: %w", err)
	}
	return parsed.FormatDSN(), nil
}

func openSQLite(ctx context.Context, path string, opts Options) (*SQLDB, error) {
	if path == "" {
		return nil, ErrMissingURI
	}
	return openSQL(ctx, sqlite.Open(path), opts)
}

func openSQL(ctx context.Context, dialector gorm.Dialector, opts Options) (*SQLDB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		DisableAutomaticPing: true,
		TranslateError:       true,
		Logger:               logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if opts.MaxPoolSize > 0 {
		sqlDB.SetMaxOpenConns(int(opts.MaxPoolSize))
	}
	sqlDB.SetMaxIdleConns(int(opts.MinPoolSize))

	pingCtx, cancel := withTimeout(ctx, opts.ServerSelectionTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &SQLDB{DB: db}, nil
}

func (db *SQLDB) Ping(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (db *SQLDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
