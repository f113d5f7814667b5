package collector

import (
	"errors"
	"fmt"
)

// ErrMissingCredential 需要密钥的数据源没有配置密钥
var ErrMissingCredential = errors.New("missing provider credential")

// ConfigError 配置错误，在发起任何网络请求之前返回
type ConfigError struct {
	Provider string
	Key      string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s is not configured", e.Provider, e.Key)
}

func (e *ConfigError) Unwrap() error { return ErrMissingCredential }

// TransportError 网络失败、非 2xx、上游报错或 JSON 解析失败
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsConfigError 区分配置错误和网络错误，调用方据此决定是否值得重试
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
