package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AppError 接口错误：HTTP 状态码、文案键与已本地化的提示
type AppError struct {
	Status  int
	Key     string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Key
	}
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// LogFields 结构化日志字段
func (e *AppError) LogFields() []interface{} {
	return []interface{}{
		"status", e.Status,
		"key", e.Key,
		"message", e.Message,
		"error", e.Err,
	}
}

// Write 输出错误响应
func (e *AppError) Write(c *gin.Context) {
	Error(c, e.Status, e.Message)
}

// Localized 按文案键包装错误，非错误状态码归为 500
func Localized(status int, key, message string, err error) *AppError {
	if status < http.StatusBadRequest {
		status = CodeInternal
	}
	return &AppError{
		Status:  status,
		Key:     key,
		Message: message,
		Err:     err,
	}
}
