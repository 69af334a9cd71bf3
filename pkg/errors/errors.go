package errors

import (
	"errors"
	"fmt"
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Kind 工作流错误分类
type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindForbidden    Kind = "forbidden"
	KindInvalidState Kind = "invalid_state"
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
)

// 各分类的哨兵错误，供 errors.Is 匹配
var (
	ErrNotFound     = &Error{Kind: KindNotFound, Message: "记录不存在"}
	ErrForbidden    = &Error{Kind: KindForbidden, Message: "无权执行此操作"}
	ErrInvalidState = &Error{Kind: KindInvalidState, Message: "当前状态不允许此操作"}
	ErrValidation   = &Error{Kind: KindValidation, Message: "参数校验失败"}
	ErrConflict     = &Error{Kind: KindConflict, Message: "操作冲突"}
)

// Error 带分类的业务错误
// 所有守卫失败都在任何写操作之前返回
type Error struct {
	Kind    Kind
	Message string
	// TooEarly 仅对 InvalidState 有意义：true=尚未到达该阶段，false=已越过该阶段
	TooEarly bool
}

func (e *Error) Error() string { return e.Message }

// Is 按 Kind 匹配，忽略具体消息
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NotFound 构造 NotFound 错误
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden 构造 Forbidden 错误
func Forbidden(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// TooEarly 构造"尚未就绪"的 InvalidState 错误
func TooEarly(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...), TooEarly: true}
}

// TooLate 构造"已处理过"的 InvalidState 错误
func TooLate(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Validation 构造 ValidationError
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Conflict 构造 Conflict 错误
func Conflict(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf 提取错误分类；非业务错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
