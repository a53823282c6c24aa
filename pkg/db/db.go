package db

import (
	"github.com/equestria-cloud/equestria/internal/models"
	"github.com/equestria-cloud/equestria/pkg/env"
	"github.com/equestria-cloud/equestria/pkg/log"
	_ "github.com/jackc/pgx/v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connection() *gorm.DB {
	var (
		gdb *gorm.DB
		err error
	)

	switch env.Variables().DatabaseType {
	case "sqlite":
		gdb, err = gorm.Open(
			sqlite.Open(env.Variables().DatabaseDSN),
			&gorm.Config{},
		)
	case "postgres":
		fallthrough
	default:
		gdb, err = gorm.Open(
			postgres.Open(env.Variables().DatabaseDSN),
			&gorm.Config{},
		)
	}

	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}

	return gdb
}

// Migrate creates or updates the schema for every
// persisted model.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Script{},
		&models.Pipeline{},
		&models.Profile{},
		&models.InputTemplate{},
		&models.Process{},
		&models.LogMessage{},
		&models.Project{},
	)
}
