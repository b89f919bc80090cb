package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditServiceAsyncDrainsOnClose(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db, 10)
	user := newTestUser(t, db, "owner")

	for i := 0; i < 3; i++ {
		folderID := uuid.New()
		svc.LogAsync(AuditEntry{
			UserID:       &user,
			Action:       AuditFolderCreate,
			ResourceType: "folder",
			ResourceID:   &folderID,
			Details:      map[string]interface{}{"name": "Trips"},
			IPAddress:    "127.0.0.1",
		})
	}
	svc.Close()

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	// Closed services drop entries instead of panicking.
	svc.LogAsync(AuditEntry{UserID: &user, Action: AuditFolderDelete, ResourceType: "folder"})
	svc.Close()
}

func TestAuditServiceList(t *testing.T) {
	db := newTestDB(t)
	svc := NewAuditService(db, 10)
	user := newTestUser(t, db, "owner")
	other := newTestUser(t, db, "other")

	svc.LogAsync(AuditEntry{
		UserID: &user, Action: AuditImageUpload, ResourceType: "image",
		Details: map[string]interface{}{"name": "Eiffel"}, IPAddress: "127.0.0.1",
	})
	time.Sleep(5 * time.Millisecond)
	svc.LogAsync(AuditEntry{
		UserID: &user, Action: AuditImageDelete, ResourceType: "image",
		Details: map[string]interface{}{"name": "Eiffel"}, IPAddress: "127.0.0.1",
	})
	svc.LogAsync(AuditEntry{
		UserID: &other, Action: AuditFolderCreate, ResourceType: "folder", IPAddress: "127.0.0.1",
	})
	svc.Close()

	activities, err := svc.List(bg(), user, 0)
	require.NoError(t, err)
	require.Len(t, activities, 2)
	assert.Equal(t, AuditImageDelete, activities[0].Action)
	assert.Equal(t, `You deleted "Eiffel"`, activities[0].Message)
	assert.Equal(t, `You uploaded "Eiffel"`, activities[1].Message)

	limited, err := svc.List(bg(), user, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestNilAuditServiceIsNoop(t *testing.T) {
	var svc *AuditService
	svc.LogAsync(AuditEntry{Action: AuditFolderCreate})
	svc.Close()
}
