package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/models"
	"github.com/imagevault/backend/pkg/logger"
	"gorm.io/gorm"
)

const (
	AuditFolderCreate = "folder.create"
	AuditFolderDelete = "folder.delete"
	AuditImageUpload  = "image.upload"
	AuditImageDelete  = "image.delete"
	AuditUserRegister = "user.register"
	AuditUserLogin    = "user.login"

	DefaultActivityLimit = 100
	MaxActivityLimit     = 1000
)

type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
	RequestID    string
}

// Activity is an audit row with a human readable summary.
type Activity struct {
	models.AuditLog
	Message string `json:"message"`
}

// AuditService writes audit rows off the request path. Entries are queued
// and inserted by a single goroutine; a full queue drops the entry.
type AuditService struct {
	DB    *gorm.DB
	queue chan models.AuditLog

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewAuditService(db *gorm.DB, queueSize int) *AuditService {
	if queueSize <= 0 {
		queueSize = 1000
	}
	s := &AuditService{
		DB:    db,
		queue: make(chan models.AuditLog, queueSize),
		done:  make(chan struct{}),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	if s == nil {
		return
	}
	row := entry.row()

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		logger.Warn("audit_queue_closed", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
		return
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

// Close stops accepting entries and waits for the queue to drain.
func (s *AuditService) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *AuditService) processQueue() {
	defer close(s.done)
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}

// List returns the user's most recent activity, newest first.
func (s *AuditService) List(ctx context.Context, userID uuid.UUID, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	if limit > MaxActivityLimit {
		limit = MaxActivityLimit
	}

	var rows []models.AuditLog
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, &ServerError{Message: "Failed loading activity", Cause: err}
	}

	activities := make([]Activity, 0, len(rows))
	for _, row := range rows {
		activities = append(activities, Activity{AuditLog: row, Message: describeActivity(row)})
	}
	return activities, nil
}

func (e AuditEntry) row() models.AuditLog {
	return models.AuditLog{
		UserID:       e.UserID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Details:      e.Details,
		IPAddress:    e.IPAddress,
		RequestID:    e.RequestID,
		CreatedAt:    time.Now().UTC(),
	}
}

func describeActivity(log models.AuditLog) string {
	name := detailString(log.Details, "name")

	switch log.Action {
	case AuditFolderCreate:
		return fmt.Sprintf("You created folder \"%s\"", name)
	case AuditFolderDelete:
		return fmt.Sprintf("You deleted folder \"%s\"", name)
	case AuditImageUpload:
		return fmt.Sprintf("You uploaded \"%s\"", name)
	case AuditImageDelete:
		return fmt.Sprintf("You deleted \"%s\"", name)
	case AuditUserRegister:
		return "Welcome to ImageVault"
	case AuditUserLogin:
		return "You signed in"
	default:
		return log.Action
	}
}

func detailString(details map[string]interface{}, key string) string {
	if details == nil {
		return ""
	}
	v, ok := details[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprintf("%v", v)
	}
	return s
}
