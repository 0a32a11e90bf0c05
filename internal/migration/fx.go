package migration

import (
	"github.com/nordkom/caseflow/internal/config"
	"github.com/nordkom/caseflow/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// Embedded migrations target postgres; other dialects get the
			// schema straight from the models.
			if err := seed.AutoMigrate(conn); err != nil {
				return err
			}
		}

		return seed.EnsureDefaults(conn)
	}),
)
