package database

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/imagevault/backend/internal/config"
	"github.com/imagevault/backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(cfg config.DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DBDriverPostgres:
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		dialector = postgres.Open(dsn)
	case config.DBDriverSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates the schema plus the indexes AutoMigrate cannot express.
//
// Sibling folder names are unique per (owner, parent, name). NULL parents
// compare as distinct in both PostgreSQL and SQLite, so root folders get a
// separate partial index.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Folder{},
		&models.Image{},
		&models.AuditLog{},
	); err != nil {
		return err
	}

	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_sibling_name
			ON folders (owner_id, parent_folder_id, name)
			WHERE parent_folder_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_root_name
			ON folders (owner_id, name)
			WHERE parent_folder_id IS NULL`,
	}

	if db.Dialector.Name() == "postgres" {
		statements = append(statements, `CREATE INDEX IF NOT EXISTS idx_images_search
			ON images USING GIN (to_tsvector('simple',
				coalesce(name, '') || ' ' || coalesce(description, '') || ' ' || coalesce(tags, '')))`)
	}

	for _, statement := range statements {
		if err := db.Exec(statement).Error; err != nil {
			return fmt.Errorf("failed creating index: %w", err)
		}
	}

	return nil
}
