// Package http 提供预测服务的HTTP服务器
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"nutripredict/logger"
)

// Server HTTP服务器
type Server struct {
	server *http.Server
	config ServerConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int
	Timeout        time.Duration
	AllowedOrigins []string
	MaxBodyBytes   int64
}

// DefaultServerConfig 默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:           8501,
		Timeout:        30 * time.Second,
		AllowedOrigins: []string{"*"},
		MaxBodyBytes:   1 << 20,
	}
}

// NewServer 创建HTTP服务器
func NewServer(config ServerConfig, handlers *Handlers) *Server {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultServerConfig().MaxBodyBytes
	}
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           NewHandler(config, handlers),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       config.Timeout,
			WriteTimeout:      config.Timeout,
			IdleTimeout:       120 * time.Second,
		},
		config: config,
	}
}

// NewHandler 注册路由并包装中间件链
func NewHandler(config ServerConfig, handlers *Handlers) http.Handler {
	mux := http.NewServeMux()
	handlers.Register(mux)

	chain := Chain(
		RecoveryMiddleware,                         // 1. 恢复中间件（最先执行，捕获panic）
		LoggerMiddleware,                           // 2. 日志中间件
		SecurityHeadersMiddleware,                  // 3. 安全头中间件
		CORSMiddleware(config.AllowedOrigins),      // 4. CORS中间件
		RequestSizeMiddleware(config.MaxBodyBytes), // 5. 请求大小限制
		TimeoutMiddleware(config.Timeout),          // 6. 超时中间件
	)
	return chain(mux)
}

// Start 启动服务器
func (s *Server) Start() error {
	logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Stop 停止服务器
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	return nil
}

// Addr 返回服务器地址
func (s *Server) Addr() string {
	return s.server.Addr
}
