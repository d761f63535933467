package authorization

import (
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("authorization.service",
	fx.Provide(newAdapter),
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

func newAdapter(db *gorm.DB) (*gormadapter.Adapter, error) {
	return gormadapter.NewAdapterByDB(db)
}
