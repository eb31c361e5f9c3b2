package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"minirpc/message"
)

// LoggingMiddleware records the service method, duration, and any errors for
// each RPC call using structured fields rather than a formatted string, so
// log output stays greppable/aggregatable under production logging
// pipelines.
func LoggingMiddleware(logger *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *message.RPCMessage) *message.RPCMessage {
			start := time.Now()

			rpcMessage := next(ctx, req)

			fields := []zap.Field{
				zap.String("service_method", req.ServiceMethod),
				zap.Duration("duration", time.Since(start)),
			}
			if rpcMessage.Error != "" {
				logger.Warn("rpc call failed", append(fields, zap.String("error", rpcMessage.Error))...)
			} else {
				logger.Debug("rpc call completed", fields...)
			}
			return rpcMessage
		}
	}
}
