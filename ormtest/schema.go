package ormtest

import (
	"context"
	"io/fs"

	"gorm.io/gorm"

	"github.com/kbukum/ormtest/database/migration"
)

// Schema creates and drops the tables a suite needs.
type Schema interface {
	Create(ctx context.Context, db *gorm.DB) error
	Drop(ctx context.Context, db *gorm.DB) error
}

// Models is a Schema built by GORM auto-migration of models.
func Models(models ...any) Schema {
	return modelSchema{models: models}
}

type modelSchema struct {
	models []any
}

func (s modelSchema) Create(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).AutoMigrate(s.models...)
}

// Drop removes tables in reverse declaration order so dependents go first.
func (s modelSchema) Drop(ctx context.Context, db *gorm.DB) error {
	reversed := make([]any, len(s.models))
	for i, model := range s.models {
		reversed[len(s.models)-1-i] = model
	}
	return db.WithContext(ctx).Migrator().DropTable(reversed...)
}

// Migrations is a Schema built from golang-migrate files in dir of fsys.
// Create migrates up, Drop migrates all the way down.
func Migrations(fsys fs.FS, dir string, driver migration.DriverFunc) Schema {
	return migrationSchema{fsys: fsys, dir: dir, driver: driver}
}

type migrationSchema struct {
	fsys   fs.FS
	dir    string
	driver migration.DriverFunc
}

func (s migrationSchema) Create(ctx context.Context, db *gorm.DB) error {
	return migration.Up(db.WithContext(ctx), s.fsys, s.dir, s.driver)
}

func (s migrationSchema) Drop(ctx context.Context, db *gorm.DB) error {
	return migration.Down(db.WithContext(ctx), s.fsys, s.dir, s.driver)
}
