package app

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/safestreets/tipline/models"
	"github.com/safestreets/tipline/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	db     *gorm.DB
	onceDB sync.Once
)

func DB() *gorm.DB {
	onceDB.Do(func() {
		port, err := strconv.Atoi(os.Getenv("DB_PORT"))
		if err != nil {
			port = 5432
		}

		dsn := fmt.Sprintf(
			"postgres://%[4]s:%[5]s@%[1]s:%[2]d/%[3]s",
			os.Getenv("DB_HOST"),
			port,
			os.Getenv("DB_NAME"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASS"),
		)

		logLevel := logger.Warn

		if utils.IsDebug() {
			logLevel = logger.Info
		}

		database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
			Logger:                 logger.Default.LogMode(logLevel),
		})
		if err != nil {
			slog.Error(fmt.Sprintf("Could not connect to PostgreSQL: %v", err))
			os.Exit(1)
		}

		if err := database.AutoMigrate(
			&models.Report{},
		); err != nil {
			slog.Error(fmt.Sprintf("Could not migrate models: %v", err))
			os.Exit(1)
		}

		db = database
	})

	return db
}

func setupStorageDirs() {
	for _, dir := range []string{utils.EvidenceDir(), utils.EvidenceStagingDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			slog.Error(fmt.Sprintf("Could not create storage directory '%s': %v", dir, err))
			os.Exit(1)
		}
	}
}

func SetupDefaultData() {
	setupStorageDirs()

	// Touch the connection so schema migration failures surface at boot,
	// not on the first request.
	DB()
}
