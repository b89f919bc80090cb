package models

import "github.com/google/uuid"

const DefaultFolderColor = "#3b82f6"

// Folder is a node in an owner's folder tree. Path is materialized from the
// parent's path when the folder is created and never recomputed.
type Folder struct {
	BaseModel
	Name           string     `json:"name" gorm:"type:varchar(255);not null"`
	ParentFolderID *uuid.UUID `json:"parentFolder" gorm:"type:uuid;index"`
	OwnerID        uuid.UUID  `json:"owner" gorm:"type:uuid;not null;index"`
	Path           string     `json:"path" gorm:"type:text;not null"`
	Color          string     `json:"color" gorm:"type:varchar(20);not null"`

	ParentName string `json:"parentName,omitempty" gorm:"-"`
}

func (Folder) TableName() string {
	return "folders"
}

// FolderNode is the presentation form of a folder inside a tree.
type FolderNode struct {
	Folder
	Children []*FolderNode `json:"children"`
}

// Crumb is one breadcrumb step. A nil ID is the Home sentinel.
type Crumb struct {
	ID   *uuid.UUID `json:"id"`
	Name string     `json:"name"`
}
