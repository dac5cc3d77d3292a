package main

import (
	"log"
	"log/slog"

	"bookstore-api/pkg/logging"
)

// newServerErrorLog 将 http.Server 内部错误（连接被重置、请求头过大等）写入结构化日志
func newServerErrorLog(logger *logging.Logger) *log.Logger {
	return slog.NewLogLogger(logger.Handler(), slog.LevelWarn)
}
