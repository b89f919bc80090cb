package models

type User struct {
	BaseModel
	Username     string `json:"username" gorm:"type:varchar(50);uniqueIndex;not null"`
	Email        string `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"type:text;not null"`
}
