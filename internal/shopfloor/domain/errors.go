package domain

import (
	"errors"
	"fmt"
)

// 错误分类：调用方依赖这四类的区分，尤其是"不存在"与"当前部署不提供"。
var (
	ErrNotFound    = errors.New("record not found")
	ErrUnsupported = errors.New("operation not supported in this deployment")
)

// ValidationError 命令格式错误（缺字段、数量为负等），在任何写入之前拒绝
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validationf 构造校验错误
func Validationf(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation 判断是否为校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NotFoundf 构造带实体名的不存在错误
func NotFoundf(entity string) error {
	return fmt.Errorf("%s: %w", entity, ErrNotFound)
}

// PermissionError 执行者缺少所需权限
type PermissionError struct {
	Permission string
}

func (e *PermissionError) Error() string {
	return "permission denied: " + e.Permission
}

// PermissionDenied 构造权限错误
func PermissionDenied(permission string) error {
	return &PermissionError{Permission: permission}
}

// IsPermission 判断是否为权限错误
func IsPermission(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// InvariantError 内部不变量被破坏，属于编程错误：只能向上传播，不能吞掉
type InvariantError struct {
	Detail string
}

func (e *InvariantError) Error() string {
	return "invariant violation: " + e.Detail
}

// Invariantf 构造不变量错误
func Invariantf(format string, args ...interface{}) error {
	return &InvariantError{Detail: fmt.Sprintf(format, args...)}
}

// IsInvariant 判断是否为不变量错误
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// RecomputeError 写入已提交但派生状态重算失败：已写入的数据仍是权威数据，
// 错误必须报告给调用方（spec/item 层可能短暂过期）。
// 明细级重算填 ItemID,规格单级重算填 SpecID。
type RecomputeError struct {
	ItemID string
	SpecID string
	Err    error
}

func (e *RecomputeError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("progress recompute failed for item %s: %v", e.ItemID, e.Err)
	}
	return fmt.Sprintf("progress recompute failed for specification %s: %v", e.SpecID, e.Err)
}

func (e *RecomputeError) Unwrap() error { return e.Err }
