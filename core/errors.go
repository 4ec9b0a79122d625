package core

import (
	"errors"
	"strings"
)

// DomainError 是领域层的统一错误类型。
//
// 错误分类：
//   - INVALID_INPUT: 请求缺字段/格式错误（ValidationError），Fields 列出问题字段
//   - NOT_FOUND:     未知的商品/用户（NotFoundError），调用方降级为空结果
//   - COMPUTATION:   相似度/分类器计算失败（ComputationError），调用方走随机降级
//   - UNAVAILABLE:   目录不可用（SystemError），唯一需要对外报错的情况
type DomainError struct {
	Code    string
	Message string
	Module  string
	Fields  []string
	Err     error
}

func (e *DomainError) Error() string {
	var b strings.Builder
	if e.Module != "" {
		b.WriteString(e.Module)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(e.Fields, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 按 Module+Code 比较，使包级哨兵错误可以配合 errors.Is 使用。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Module == t.Module && e.Message == t.Message
}

// IsDomainError 检查错误链中是否有 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果没有则返回 nil
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
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

// NewValidationError 创建输入校验错误，fields 为缺失或非法的字段名。
func NewValidationError(module, message string, fields ...string) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodeInvalidInput, Message: message, Fields: fields}
}

// NewNotFoundError 创建资源不存在错误。
func NewNotFoundError(module, message string) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodeNotFound, Message: message}
}

// NewComputationError 创建计算失败错误。
func NewComputationError(module, message string, cause error) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodeComputation, Message: message, Err: cause}
}

// NewSystemError 创建系统不可用错误。
func NewSystemError(module, message string, cause error) *DomainError {
	return &DomainError{Module: module, Code: ErrorCodeUnavailable, Message: message, Err: cause}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeComputation   = "COMPUTATION"    // 计算失败
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
)

// 模块名称常量
const (
	ModuleStore       = "store"
	ModuleCatalog     = "catalog"
	ModuleInteraction = "interaction"
	ModuleModel       = "model"
	ModuleSimilarity  = "similarity"
	ModuleRecommend   = "recommend"
	ModuleEvaluation  = "evaluation"
	ModuleConfig      = "config"
)

func hasCode(err error, code string) bool {
	if de := GetDomainError(err); de != nil {
		return de.Code == code
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

// IsComputation 检查错误是否为 COMPUTATION
func IsComputation(err error) bool { return hasCode(err, ErrorCodeComputation) }

// ErrorFields 返回校验错误的字段列表。
func ErrorFields(err error) []string {
	if de := GetDomainError(err); de != nil {
		return de.Fields
	}
	return nil
}
