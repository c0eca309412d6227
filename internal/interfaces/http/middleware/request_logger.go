package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/08star/my-auth-app/pkg/logger"
)

const ContextKeyRequestID ContextKey = "request_id"

// RequestLoggerMiddleware assigns each request an ID, attaches a
// request-scoped logger to its context and logs the outcome.
type RequestLoggerMiddleware struct {
	logger logger.Logger
}

// NewRequestLoggerMiddleware creates a new request logger middleware.
func NewRequestLoggerMiddleware(l logger.Logger) *RequestLoggerMiddleware {
	return &RequestLoggerMiddleware{
		logger: l,
	}
}

// Handler returns the Gin middleware handler.
func (m *RequestLoggerMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.New().String()
		}
		c.Set(string(ContextKeyRequestID), requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		requestLogger := m.logger.With(
			logger.RequestID(requestID),
		)
		ctx := logger.WithContext(c.Request.Context(), requestLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := GetClientIP(c)
		method := c.Request.Method
		userAgent := c.GetHeader("User-Agent")

		fields := []logger.Field{
			logger.RequestID(requestID),
			logger.Method(method),
			logger.Path(path),
			logger.Status(status),
			logger.Latency(latency),
			logger.ClientIP(clientIP),
			logger.UserAgent(userAgent),
			logger.Int("body_size", c.Writer.Size()),
		}

		if query != "" {
			fields = append(fields, logger.String("query", query))
		}

		if userID, exists := c.Get(string(ContextKeyUserID)); exists {
			if uid, ok := userID.(string); ok && uid != "" {
				fields = append(fields, logger.UserID(uid))
			}
		}

		if deviceID, exists := c.Get(string(ContextKeyDeviceID)); exists {
			if did, ok := deviceID.(string); ok && did != "" {
				fields = append(fields, logger.DeviceID(did))
			}
		}

		if route := c.FullPath(); route != "" && route != path {
			fields = append(fields, logger.String("route", route))
		}
		if _, exists := c.Get(string(ContextKeyVerified)); exists {
			fields = append(fields, logger.Verified(c.GetBool(string(ContextKeyVerified))))
		}
		if _, exists := c.Get(string(ContextKeyCreated)); exists {
			fields = append(fields, logger.Created(c.GetBool(string(ContextKeyCreated))))
		}

		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		msg := "HTTP request"
		switch {
		case status >= 500:
			m.logger.Error(msg, fields...)
		case status >= 400:
			m.logger.Warn(msg, fields...)
		default:
			m.logger.Info(msg, fields...)
		}
	}
}
