package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	userIDKey    = "userID"
	requestIDKey = "requestID"
)

type Logger struct {
	slog *slog.Logger
}

var globalLogger *Logger

func New(output io.Writer, level string) *Logger {
	if output == nil {
		output = os.Stdout
	}
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{Level: ParseLevel(level)})
	return &Logger{slog: slog.New(handler)}
}

// Init installs the process-wide logger. Calling it again replaces the
// previous logger, which tests use to capture output.
func Init(level string) {
	InitWithWriter(os.Stdout, level)
}

func InitWithWriter(output io.Writer, level string) {
	globalLogger = New(output, level)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) log(level slog.Level, action string, userID *string, details map[string]interface{}, err error) {
	attrs := make([]slog.Attr, 0, 3)
	if userID != nil {
		attrs = append(attrs, slog.String("user_id", *userID))
	}
	if len(details) > 0 {
		attrs = append(attrs, slog.Any("details", details))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	l.slog.LogAttrs(context.Background(), level, action, attrs...)
}

func Debug(action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(slog.LevelDebug, action, nil, details, nil)
	}
}

func Info(action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(slog.LevelInfo, action, nil, details, nil)
	}
}

func InfoWithUser(userID string, action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(slog.LevelInfo, action, &userID, details, nil)
	}
}

func Warn(action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(slog.LevelWarn, action, nil, details, nil)
	}
}

func WarnWithUser(userID string, action string, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(slog.LevelWarn, action, &userID, details, nil)
	}
}

func Error(action string, err error, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(slog.LevelError, action, nil, details, err)
	}
}

func ErrorWithUser(userID string, action string, err error, details map[string]interface{}) {
	if globalLogger != nil {
		globalLogger.log(slog.LevelError, action, &userID, details, err)
	}
}

func SetUserID(c *fiber.Ctx, userID string) {
	c.Locals(userIDKey, userID)
}

func GetUserIDFromContext(c *fiber.Ctx) *string {
	if userID := c.Locals(userIDKey); userID != nil {
		if id, ok := userID.(string); ok {
			return &id
		}
	}
	return nil
}

func SetRequestID(c *fiber.Ctx, requestID string) {
	c.Locals(requestIDKey, requestID)
}

func GetRequestID(c *fiber.Ctx) string {
	if value, ok := c.Locals(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func GenerateRequestID() string {
	return uuid.New().String()
}
