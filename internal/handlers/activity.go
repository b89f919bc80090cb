package handlers

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/imagevault/backend/internal/middleware"
	"github.com/imagevault/backend/internal/services"
	"github.com/imagevault/backend/pkg/utils"
)

type ActivityHandler struct {
	Audit *services.AuditService
}

func NewActivityHandler(audit *services.AuditService) *ActivityHandler {
	return &ActivityHandler{Audit: audit}
}

// List returns the caller's recent activity as JSON, or as a CSV download
// when format=csv.
func (h *ActivityHandler) List(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "Authentication required")
	}

	format := strings.ToLower(strings.TrimSpace(c.Query("format", "json")))
	if format != "csv" && format != "json" {
		return utils.Error(c, fiber.StatusBadRequest, "Format must be csv or json")
	}

	activities, err := h.Audit.List(c.UserContext(), currentUser.ID, c.QueryInt("limit", services.DefaultActivityLimit))
	if err != nil {
		return respondError(c, "activity_list_failed", err)
	}

	if format == "json" {
		return utils.Success(c, fiber.StatusOK, activities)
	}

	c.Set(fiber.HeaderContentType, "text/csv")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "activity.csv"))

	writer := csv.NewWriter(c.Response().BodyWriter())
	_ = writer.Write([]string{"Timestamp", "Action", "Resource Type", "Resource ID", "Message", "IP Address", "Details"})

	for _, activity := range activities {
		resourceID := ""
		if activity.ResourceID != nil {
			resourceID = activity.ResourceID.String()
		}

		keys := make([]string, 0, len(activity.Details))
		for k := range activity.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, activity.Details[k]))
		}

		_ = writer.Write([]string{
			activity.CreatedAt.Format(time.RFC3339),
			activity.Action,
			activity.ResourceType,
			resourceID,
			activity.Message,
			activity.IPAddress,
			strings.Join(parts, "; "),
		})
	}

	writer.Flush()
	return writer.Error()
}
