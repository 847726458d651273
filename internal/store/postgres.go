package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"wisefido-vitals/internal/config"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// NewPostgresDB 创建PostgreSQL连接池
// 这里不探活：连接惰性建立，数据库未起时进程照常启动，
// 就绪状态由 Gate 跟踪（未就绪期间HTTP返回503、消费者丢弃消息）
func NewPostgresDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 设置连接池参数
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}

	return db, nil
}

// Gate 跟踪后端存储可用性
// 消费者和每个HTTP handler在访问存储前都要先检查Ready()；
// 未就绪时HTTP返回503，消费者丢弃消息（记录日志）
type Gate struct {
	db     *sql.DB
	ready  atomic.Bool
	logger *zap.Logger
}

// NewGate 创建就绪门并做一次初始探活
// 初始探活失败不是错误：Gate 保持未就绪，等 Monitor 周期性重试拉起
func NewGate(db *sql.DB, logger *zap.Logger) *Gate {
	g := &Gate{
		db:     db,
		logger: logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		g.logger.Warn("Database not ready at startup, retrying in background",
			zap.Error(err),
		)
		return g
	}

	g.ready.Store(true)
	return g
}

// Ready 后端存储当前是否可用
func (g *Gate) Ready() bool {
	return g.ready.Load()
}

// SetReady 手动设置就绪状态（测试用）
func (g *Gate) SetReady(ready bool) {
	g.ready.Store(ready)
}

// Monitor 周期性探活，断线时重置就绪标志并持续重试
// 这是整条链路上唯一带重试的操作（每条消息本身不重试）
func (g *Gate) Monitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, interval)
			err := g.db.PingContext(pingCtx)
			cancel()

			if err != nil {
				if g.ready.CompareAndSwap(true, false) {
					g.logger.Error("Database connection lost",
						zap.Error(err),
					)
				}
				continue
			}

			if g.ready.CompareAndSwap(false, true) {
				g.logger.Info("Database connection restored")
			}
		}
	}
}

// Close 关闭数据库连接
func Close(db *sql.DB) error {
	if db != nil {
		return db.Close()
	}
	return nil
}
