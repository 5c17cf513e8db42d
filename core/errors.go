package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message），Message 可直接展示给调用方
//   - 支持错误检查函数（IsXXX），可穿透 fmt.Errorf("%w") 包装
//
// 使用场景：
//   - Encoder/Assembler 错误：INVALID_INPUT, SCHEMA_MISMATCH
//   - Scaler 错误：SCHEMA_MISMATCH
//   - Artifact 错误：ARTIFACT_LOAD_FAILURE
//   - Pipeline 兜底：TRANSFORM_FAILURE
type DomainError struct {
	Code    string // 错误代码（如 "SCHEMA_MISMATCH"）
	Message string // 错误消息
	Module  string // 模块名称（如 "encoder", "scaler", "artifact"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建携带底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	ErrorCodeSchemaMismatch   = "SCHEMA_MISMATCH"       // 特征向量与 schema / scaler / 模型维度不一致
	ErrorCodeArtifactLoad     = "ARTIFACT_LOAD_FAILURE" // 模型、编码器、scaler 缺失或损坏
	ErrorCodeTransformFailure = "TRANSFORM_FAILURE"     // 编码/组装/缩放/推理过程中的意外失败
)

// 模块名称常量
const (
	ModuleStore     = "store"
	ModuleEncoder   = "encoder"
	ModuleAssembler = "assembler"
	ModuleScaler    = "scaler"
	ModuleModel     = "model"
	ModuleInterpret = "interpret"
	ModuleArtifact  = "artifact"
	ModulePipeline  = "pipeline"
	ModuleService   = "service"
	ModuleFeast     = "feast"
)

func hasCode(err error, code string) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// IsSchemaMismatch 检查错误是否为 SCHEMA_MISMATCH
func IsSchemaMismatch(err error) bool { return hasCode(err, ErrorCodeSchemaMismatch) }

// IsArtifactLoadFailure 检查错误是否为 ARTIFACT_LOAD_FAILURE
func IsArtifactLoadFailure(err error) bool { return hasCode(err, ErrorCodeArtifactLoad) }

// IsTransformFailure 检查错误是否为 TRANSFORM_FAILURE
func IsTransformFailure(err error) bool { return hasCode(err, ErrorCodeTransformFailure) }

// ErrorCode 返回错误代码；非 DomainError 统一视为 TRANSFORM_FAILURE。
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code
	}
	return ErrorCodeTransformFailure
}
