package migration

import (
	"github.com/smallbiznis/accreditation/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Model is a persisted type registered for AutoMigrate on databases the
// embedded postgres migrations do not cover.
type Model interface {
	TableName() string
}

// AsModel registers a model constructor in the migration group.
func AsModel(f any) any {
	return fx.Annotate(f, fx.As(new(Model)), fx.ResultTags(`group:"models"`))
}

type params struct {
	fx.In

	Conn   *gorm.DB
	Cfg    config.Config
	Log    *zap.Logger
	Models []Model `group:"models"`
}

var Module = fx.Module("migrations",
	fx.Invoke(run),
)

func run(p params) error {
	log := p.Log.Named("migration")
	if !p.Cfg.DBMigrate {
		log.Info("database migrations disabled")
		return nil
	}
	if p.Cfg.DBType != "postgres" {
		log.Info("auto-migrating schema", zap.String("db_type", p.Cfg.DBType), zap.Int("models", len(p.Models)))
		return AutoMigrate(p.Conn, p.Models...)
	}

	sqlDB, err := p.Conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func AutoMigrate(conn *gorm.DB, models ...Model) error {
	values := make([]interface{}, 0, len(models))
	for _, m := range models {
		values = append(values, m)
	}
	return conn.AutoMigrate(values...)
}
