package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/services"
	"github.com/imagevault/backend/pkg/logger"
	"github.com/imagevault/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// parseOptionalUUID treats an empty value as absent.
func parseOptionalUUID(value string) (*uuid.UUID, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return nil, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func getRequestID(c *fiber.Ctx) string {
	return logger.GetRequestID(c)
}

// respondError maps a service error onto its status and message. Server
// errors are logged with their cause, which never reaches the client.
func respondError(c *fiber.Ctx, action string, err error) error {
	status, message := services.PublicMessage(err)
	if status >= fiber.StatusInternalServerError {
		details := map[string]interface{}{
			"path":       c.Path(),
			"request_id": getRequestID(c),
		}
		if userID := logger.GetUserIDFromContext(c); userID != nil {
			logger.ErrorWithUser(*userID, action, err, details)
		} else {
			logger.Error(action, err, details)
		}
	}
	return utils.Error(c, status, message)
}
