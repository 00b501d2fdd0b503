package repository

import "errors"

var (
	// ErrCapacityExceeded 写入后会超过存储配额
	ErrCapacityExceeded = errors.New("存储空间不足")
	// ErrBackendUnavailable 存储后端不可用（IO 错误、安全模式等）
	ErrBackendUnavailable = errors.New("存储后端不可用")
)
