package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rushteam/churnkit/core"
)

// PredictResponse 推理接口的返回
type PredictResponse struct {
	RequestID  string           `json:"request_id"`
	Summary    string           `json:"summary"`
	Prediction *core.Prediction `json:"prediction"`
}

// ErrorResponse 错误返回
type ErrorResponse struct {
	RequestID string `json:"request_id,omitempty"`
	Code      string `json:"code"`
	Error     string `json:"error"`
}

// health GET /healthz，远程模型不可用时返回 503
func (s *Server) health(c *gin.Context) {
	status, code := "ok", http.StatusOK
	var unavailable map[string]string
	if down := s.predictor.Health(c.Request.Context()); len(down) > 0 {
		status, code = "unavailable", http.StatusServiceUnavailable
		unavailable = make(map[string]string, len(down))
		for name, err := range down {
			unavailable[name] = err.Error()
			s.logger.Warn("pipeline unhealthy", zap.String("pipeline", name), zap.Error(err))
		}
	}
	c.JSON(code, gin.H{
		"status":        status,
		"pipelines":     s.predictor.Names(),
		"record_source": s.predictor.HasRecordSource(),
		"unavailable":   unavailable,
	})
}

// predict POST /v1/predict/:task，请求体是单条原始记录
func (s *Server) predict(c *gin.Context) {
	var record core.RawRecord
	if err := c.ShouldBindJSON(&record); err != nil {
		s.fail(c, core.WrapDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "invalid request body", err))
		return
	}
	if len(record) == 0 {
		s.fail(c, core.NewDomainError(core.ModulePipeline, core.ErrorCodeInvalidInput, "empty record"))
		return
	}

	pred, err := s.predictor.Predict(c.Request.Context(), c.Param("task"), record)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, pred)
}

// predictCustomer POST /v1/predict/:task/customers/:id，从记录来源取数后推理
func (s *Server) predictCustomer(c *gin.Context) {
	pred, err := s.predictor.PredictEntity(c.Request.Context(), c.Param("task"), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, pred)
}

// stats GET /v1/stats/:task，返回输入字段监控统计
func (s *Server) stats(c *gin.Context) {
	stats, err := s.predictor.Stats(c.Param("task"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pipeline": c.Param("task"),
		"enabled":  stats != nil,
		"fields":   stats,
	})
}

func (s *Server) ok(c *gin.Context, pred *core.Prediction) {
	c.JSON(http.StatusOK, PredictResponse{
		RequestID:  c.GetString(requestIDKey),
		Summary:    pred.Summary(),
		Prediction: pred,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	code := core.ErrorCode(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = "DEADLINE_EXCEEDED"
	case errors.Is(err, context.Canceled):
		code = "CANCELED"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("prediction failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("code", code),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.GetString(requestIDKey),
		Code:      code,
		Error:     err.Error(),
	})
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499
	}
	switch core.ErrorCode(err) {
	case core.ErrorCodeInvalidInput:
		return http.StatusBadRequest
	case core.ErrorCodeNotFound:
		return http.StatusNotFound
	case core.ErrorCodeNotSupported:
		return http.StatusNotImplemented
	case core.ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	case core.ErrorCodeSchemaMismatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
