// Package server 通过 HTTP 暴露 churn / salary 推理接口。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/feature"
	"github.com/rushteam/churnkit/pipeline"
)

// Predictor 是 HTTP 层依赖的推理能力，pipeline.Predictor 实现此接口。
type Predictor interface {
	Names() []string
	HasRecordSource() bool
	Predict(ctx context.Context, name string, record core.RawRecord) (*core.Prediction, error)
	PredictEntity(ctx context.Context, name, entityID string) (*core.Prediction, error)
	Stats(name string) ([]feature.FieldStats, error)
	Health(ctx context.Context) map[string]error
}

// Server HTTP 服务
type Server struct {
	predictor Predictor
	cfg       pipeline.ServerConfig
	logger    *zap.Logger
	engine    *gin.Engine
}

// New 创建 HTTP 服务并注册路由
func New(predictor Predictor, cfg pipeline.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	s := &Server{
		predictor: predictor,
		cfg:       cfg,
		logger:    logger,
	}

	r := gin.New()
	r.Use(requestID(), accessLog(logger), recovery(logger))

	r.GET("/healthz", s.health)
	v1 := r.Group("/v1")
	{
		v1.POST("/predict/:task", s.predict)
		v1.POST("/predict/:task/customers/:id", s.predictCustomer)
		v1.GET("/stats/:task", s.stats)
	}
	s.engine = r
	return s
}

// Handler 返回 http.Handler，便于测试或挂载到其他服务
func (s *Server) Handler() http.Handler { return s.engine }

// Run 启动服务，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.engine,
		ReadTimeout:  seconds(s.cfg.ReadTimeout, 10),
		WriteTimeout: seconds(s.cfg.WriteTimeout, 30),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func seconds(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}
