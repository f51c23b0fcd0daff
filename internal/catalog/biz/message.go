package biz

import (
	"github.com/kart-io/catalog-console/pkg/errors"
	"github.com/kart-io/catalog-console/pkg/utils/httpclient"
)

// UIMessage 将错误转换为可展示的文本。
// 服务端 5xx 错误加 "Server error: " 前缀；网络错误附带底层原因。
func UIMessage(err error) string {
	if err == nil {
		return ""
	}

	var errno *errors.Errno
	if errors.As(err, &errno) {
		if errno.Code == errors.ErrNetwork.Code && errno.Cause() != nil {
			return errno.MessageEN + ": " + errno.Cause().Error()
		}
		return errno.MessageEN
	}

	var apiErr *httpclient.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsServerError() {
			return "Server error: " + apiErr.Message
		}
		return apiErr.Message
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return "Unexpected error"
}
