package infrastructure

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
)

const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver      string
	DSN         string
	AutoMigrate bool
}

// OpenDatabase abre a conexão gorm do driver configurado e, se pedido, cria as tabelas.
func OpenDatabase(cfg DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case DriverMySQL:
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&domain.Train{}, &domain.Booking{}); err != nil {
			return nil, fmt.Errorf("migrate %s database: %w", cfg.Driver, err)
		}
	}

	return db, nil
}

// NewTrainStore escolhe o backend pelo driver; closeFn libera a conexão quando houver uma.
func NewTrainStore(cfg DatabaseConfig, logger pkgApp.AppLogger) (store domain.TrainStore, closeFn func() error, err error) {
	if cfg.Driver == DriverMemory {
		return NewMemoryStore(logger), func() error { return nil }, nil
	}

	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return NewGormStore(db, logger), sqlDB.Close, nil
}
