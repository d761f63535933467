package accreditation

import (
	"github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/smallbiznis/accreditation/internal/accreditation/repository"
	"github.com/smallbiznis/accreditation/internal/accreditation/service"
	"github.com/smallbiznis/accreditation/internal/migration"
	"go.uber.org/fx"
)

var Module = fx.Module("accreditation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(migration.AsModel(func() *domain.Accreditation { return &domain.Accreditation{} })),
)
