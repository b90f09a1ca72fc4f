package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user_api/internal/api"
	"user_api/internal/connection"
	"user_api/internal/middleware"
	"user_api/internal/repository"
	"user_api/internal/service"
	"user_api/internal/storage"
	"user_api/pkg/config"
)

const minAttemptTimeout = 10 * time.Second

// Server 組合 gin engine、連線 Guard 與路由
type Server struct {
	Engine *gin.Engine
	Guard  *connection.Guard

	cfg    *config.Config
	logger *zap.Logger
}

// New 依設定建立 Server，資料庫連線延遲到 Start 或第一個請求才建立
func New(cfg *config.Config, logger *zap.Logger) *Server {
	guard := connection.NewGuard(
		connection.URIConnector(cfg.Database.URI, StorageOptions(cfg.Database)),
		connection.WithLogger(logger),
		connection.WithAttemptTimeout(attemptTimeout(cfg.Database)),
		connection.WithOnConnect(repository.Migrate),
	)
	return NewWithGuard(cfg, logger, guard)
}

// NewWithGuard 使用外部建立的 Guard 組裝請求管線
func NewWithGuard(cfg *config.Config, logger *zap.Logger, guard *connection.Guard) *Server {
	gin.SetMode(ginMode(cfg.Server.Mode))

	engine := gin.New()
	// 順序固定：資料庫檢查在請求體、cookie 與 CORS 之後，由路由群組掛上
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestLogger(logger),
		middleware.DecodeBody(cfg.Server.MaxBodyBytes),
		middleware.DecodeCookies(),
		middleware.CORS(cfg.Server.AllowedOrigins()),
	)

	repos := repository.NewRepositories(guard)
	services := service.NewServices(repos, guard)
	api.SetupRoutes(engine, services, middleware.RequireDatabase(guard, logger))

	return &Server{
		Engine: engine,
		Guard:  guard,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *Server) Handler() http.Handler {
	return s.Engine
}

// Start 在背景發起首次連線並啟動連線探測，不會阻塞。
// 首次連線失敗只記錄日誌，之後的請求會再次嘗試。
func (s *Server) Start(ctx context.Context) {
	go func() {
		if err := s.Guard.EnsureConnected(ctx); err != nil {
			s.logger.Error("initial database connection failed", zap.Error(err))
		}
	}()
	go s.Guard.Monitor(ctx, s.cfg.Database.HealthInterval)
}

func (s *Server) Close() error {
	return s.Guard.Close()
}

// StorageOptions 將資料庫設定轉成驅動選項
func StorageOptions(db config.DatabaseConfig) storage.Options {
	return storage.Options{
		Database:               db.Name,
		MaxPoolSize:            db.MaxPoolSize,
		MinPoolSize:            db.MinPoolSize,
		ServerSelectionTimeout: db.ServerSelectionTimeout,
		SocketTimeout:          db.SocketTimeout,
		KeepAlive:              db.KeepAlive,
		RetryWrites:            db.RetryWrites,
		WriteConcern:           db.WriteConcern,
		Journal:                db.Journal,
	}
}

func attemptTimeout(db config.DatabaseConfig) time.Duration {
	if d := 2 * db.ServerSelectionTimeout; d > minAttemptTimeout {
		return d
	}
	return minAttemptTimeout
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	default:
		return gin.ReleaseMode
	}
}
