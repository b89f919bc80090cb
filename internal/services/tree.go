package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/imagevault/backend/internal/models"
)

const homeCrumbName = "Home"

// BuildFolderTree turns a flat folder list into a forest in one pass over an
// id index. A folder whose parent is missing from the list becomes a root.
// Siblings are ordered by name.
func BuildFolderTree(folders []models.Folder) []*models.FolderNode {
	nodes := make(map[uuid.UUID]*models.FolderNode, len(folders))
	for _, f := range folders {
		nodes[f.ID] = &models.FolderNode{Folder: f, Children: []*models.FolderNode{}}
	}

	roots := make([]*models.FolderNode, 0)
	for _, f := range folders {
		node := nodes[f.ID]
		if f.ParentFolderID != nil {
			if parent, ok := nodes[*f.ParentFolderID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	for _, node := range nodes {
		sortNodes(node.Children)
	}

	return roots
}

func sortNodes(nodes []*models.FolderNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Name < nodes[j].Name
	})
}

// BuildBreadcrumb walks parent links from currentID up to a root and returns
// the trail starting with the Home sentinel. ok is false when currentID is
// not in folders.
func BuildBreadcrumb(folders []models.Folder, currentID uuid.UUID) ([]models.Crumb, bool) {
	byID := make(map[uuid.UUID]models.Folder, len(folders))
	for _, f := range folders {
		byID[f.ID] = f
	}

	if _, ok := byID[currentID]; !ok {
		return nil, false
	}

	trail := make([]models.Crumb, 0)
	visited := make(map[uuid.UUID]bool)
	next := &currentID
	for next != nil && !visited[*next] {
		folder, ok := byID[*next]
		if !ok {
			break
		}
		visited[folder.ID] = true
		id := folder.ID
		trail = append(trail, models.Crumb{ID: &id, Name: folder.Name})
		next = folder.ParentFolderID
	}

	crumbs := make([]models.Crumb, 0, len(trail)+1)
	crumbs = append(crumbs, models.Crumb{ID: nil, Name: homeCrumbName})
	for i := len(trail) - 1; i >= 0; i-- {
		crumbs = append(crumbs, trail[i])
	}
	return crumbs, true
}
