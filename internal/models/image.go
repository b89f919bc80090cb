package models

import "github.com/google/uuid"

type Image struct {
	BaseModel
	Name         string     `json:"name" gorm:"type:varchar(255);not null"`
	Filename     string     `json:"filename" gorm:"type:varchar(255);not null;uniqueIndex"`
	OriginalName string     `json:"originalName" gorm:"type:varchar(255);not null"`
	MimeType     string     `json:"mimetype" gorm:"type:varchar(255);not null"`
	Size         int64      `json:"size" gorm:"not null"`
	FolderID     *uuid.UUID `json:"folderID" gorm:"type:uuid;index:idx_images_owner_folder,priority:2"`
	OwnerID      uuid.UUID  `json:"owner" gorm:"type:uuid;not null;index:idx_images_owner_folder,priority:1"`
	Tags         []string   `json:"tags" gorm:"type:text;serializer:json"`
	Description  string     `json:"description" gorm:"type:text;not null"`

	Folder *Folder `json:"folder" gorm:"foreignKey:FolderID;references:ID"`
	URL    string  `json:"url,omitempty" gorm:"-"`
}

func (Image) TableName() string {
	return "images"
}

// Suggestion is a lightweight autocomplete match.
type Suggestion struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Filename string    `json:"filename"`
}
