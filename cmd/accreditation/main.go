package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/accreditation/internal/clock"
	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/smallbiznis/accreditation/internal/migration"
	"github.com/smallbiznis/accreditation/internal/observability"
	"github.com/smallbiznis/accreditation/internal/server"
	"github.com/smallbiznis/accreditation/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
