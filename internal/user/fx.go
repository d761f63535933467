package user

import (
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/smallbiznis/accreditation/internal/downstream"
	"github.com/smallbiznis/accreditation/internal/resilience"
	"go.uber.org/fx"
)

var Module = fx.Module("user.client",
	fx.Provide(
		fx.Annotate(newClient, fx.As(new(accreditationdomain.UserResolver))),
	),
)

func newClient(p downstream.GatewayParams, cfg config.Config) (*Client, error) {
	gateway, err := downstream.NewGateway(p, config.TargetUser, resilience.ClassifyByKind)
	if err != nil {
		return nil, err
	}
	return NewClient(cfg.Downstream.UserURL, downstream.NewHTTPClient(cfg.Downstream.Timeout), gateway), nil
}
