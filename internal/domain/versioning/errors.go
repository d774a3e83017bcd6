package versioning

import (
	"context"
	stderrors "errors"
	"strings"

	"tracehub-api/pkg/errors"
)

// 引擎使用的领域错误
var (
	ErrDuplicateBatchEntry = errors.ErrDuplicateBatchEntry
	ErrManualLinkOverride  = errors.ErrManualLinkOverride
	ErrArtifactNotFound    = errors.ErrArtifactNotFound
	ErrInvalidAppEntity    = errors.ErrInvalidAppEntity
)

func isContextError(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}

// describeError 生成面向用户的提交错误描述
func describeError(name string, err error) string {
	msg := err.Error()
	if appErr, ok := err.(*errors.AppError); ok && appErr.Err == nil {
		msg = appErr.Message
		if appErr.Detail != "" {
			msg += ": " + appErr.Detail
		}
	}
	if name != "" && !strings.Contains(msg, name) {
		return name + ": " + msg
	}
	return msg
}
