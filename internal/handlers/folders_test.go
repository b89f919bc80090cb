package handlers

import (
	"net/http"
	"testing"

	"github.com/imagevault/backend/internal/models"
)

func createFolder(t *testing.T, env *testEnv, token string, payload map[string]any) map[string]any {
	t.Helper()
	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", payload, authHeaders(token))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)
	return body
}

func TestFolderEndpoints(t *testing.T) {
	env := setupTestEnv(t)
	_, token := createTestUser(t, env.db, "owner", "password123")
	_, otherToken := createTestUser(t, env.db, "intruder", "password123")

	trips := createFolder(t, env, token, map[string]any{"name": "Trips"})
	tripsID, _ := trips["id"].(string)

	t.Run("root folder path is its name", func(t *testing.T) {
		if trips["path"] != "Trips" {
			t.Fatalf("expected path Trips, got %v", trips["path"])
		}
		if trips["color"] != models.DefaultFolderColor {
			t.Fatalf("expected default color, got %v", trips["color"])
		}
		if trips["parentFolder"] != nil {
			t.Fatalf("expected null parentFolder, got %v", trips["parentFolder"])
		}
	})

	var parisID string
	t.Run("child folder path joins parent path", func(t *testing.T) {
		paris := createFolder(t, env, token, map[string]any{"name": "Paris", "parentFolder": tripsID, "color": "#ff0000"})
		parisID, _ = paris["id"].(string)
		if paris["path"] != "Trips/Paris" {
			t.Fatalf("expected path Trips/Paris, got %v", paris["path"])
		}
		if paris["parentName"] != "Trips" {
			t.Fatalf("expected parentName Trips, got %v", paris["parentName"])
		}
	})

	t.Run("duplicate sibling name is rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{"name": "Trips"}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorMessage(t, body, "Folder with this name already exists in this location")
	})

	t.Run("same name under another parent is allowed", func(t *testing.T) {
		createFolder(t, env, token, map[string]any{"name": "Trips", "parentFolder": parisID})
	})

	t.Run("same name for another owner is allowed", func(t *testing.T) {
		createFolder(t, env, otherToken, map[string]any{"name": "Trips"})
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{"name": "   "}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorMessage(t, body, "Folder name is required")
	})

	t.Run("bad color is rejected", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{"name": "Colors", "color": "blue"}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorMessage(t, body, "Folder color must be a hex value like #3b82f6")
	})

	t.Run("missing parent is not found", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{
			"name":         "Orphan",
			"parentFolder": "00000000-0000-0000-0000-000000000001",
		}, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertErrorMessage(t, body, "Parent folder not found")
	})

	t.Run("another owner's folder is not a valid parent", func(t *testing.T) {
		resp := performJSONRequest(t, env.app, http.MethodPost, "/api/folders", map[string]any{
			"name":         "Sneaky",
			"parentFolder": tripsID,
		}, authHeaders(otherToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertErrorMessage(t, body, "Parent folder not found")
	})

	t.Run("list returns only own folders with parent names", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/folders", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		folders := decodeJSONArray(t, resp)
		if len(folders) != 3 {
			t.Fatalf("expected 3 folders, got %d", len(folders))
		}
		for _, f := range folders {
			if f["name"] == "Paris" && f["parentName"] != "Trips" {
				t.Fatalf("expected Paris parentName Trips, got %v", f["parentName"])
			}
		}
	})

	t.Run("tree nests children", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/folders/tree", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		roots := decodeJSONArray(t, resp)
		if len(roots) != 1 || roots[0]["name"] != "Trips" {
			t.Fatalf("expected single Trips root, got %+v", roots)
		}
		children, _ := roots[0]["children"].([]any)
		if len(children) != 1 {
			t.Fatalf("expected one child, got %d", len(children))
		}
	})

	t.Run("breadcrumb starts at home", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodGet, "/api/folders/"+parisID+"/breadcrumb", nil, authHeaders(token))
		assertStatus(t, resp, http.StatusOK)
		crumbs := decodeJSONArray(t, resp)
		if len(crumbs) != 3 {
			t.Fatalf("expected 3 crumbs, got %+v", crumbs)
		}
		if crumbs[0]["name"] != "Home" || crumbs[0]["id"] != nil {
			t.Fatalf("expected Home sentinel, got %+v", crumbs[0])
		}
		if crumbs[1]["name"] != "Trips" || crumbs[2]["name"] != "Paris" {
			t.Fatalf("unexpected crumb order %+v", crumbs)
		}
	})

	t.Run("delete with subfolders is rejected", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/folders/"+tripsID, nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusBadRequest)
		assertErrorMessage(t, body, "Cannot delete folder with subfolders")
	})

	t.Run("delete by another owner is not found", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/folders/"+tripsID, nil, authHeaders(otherToken))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertErrorMessage(t, body, "Folder not found")
	})

	t.Run("delete unknown id is not found", func(t *testing.T) {
		resp := performRequest(t, env.app, http.MethodDelete, "/api/folders/not-a-uuid", nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusNotFound)
		assertErrorMessage(t, body, "Folder not found")
	})

	t.Run("delete leaf removes exactly one record", func(t *testing.T) {
		var leaf models.Folder
		if err := env.db.Where("name = ? AND parent_folder_id = ?", "Trips", parisID).First(&leaf).Error; err != nil {
			t.Fatalf("failed loading leaf folder: %v", err)
		}
		before := countRows(t, env.db, &models.Folder{})

		resp := performRequest(t, env.app, http.MethodDelete, "/api/folders/"+leaf.ID.String(), nil, authHeaders(token))
		body := decodeJSONMap(t, resp)
		assertStatus(t, resp, http.StatusOK)
		assertErrorMessage(t, body, "Folder deleted successfully")

		if after := countRows(t, env.db, &models.Folder{}); after != before-1 {
			t.Fatalf("expected %d folders, got %d", before-1, after)
		}
	})
}
