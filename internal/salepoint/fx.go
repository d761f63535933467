package salepoint

import (
	accreditationdomain "github.com/smallbiznis/accreditation/internal/accreditation/domain"
	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/smallbiznis/accreditation/internal/downstream"
	"github.com/smallbiznis/accreditation/internal/resilience"
	"go.uber.org/fx"
)

var Module = fx.Module("salepoint.client",
	fx.Provide(
		fx.Annotate(newClient, fx.As(new(accreditationdomain.SalePointResolver))),
	),
)

func newClient(p downstream.GatewayParams, cfg config.Config) (*Client, error) {
	gateway, err := downstream.NewGateway(p, config.TargetSalePoint, resilience.ClassifyByKind)
	if err != nil {
		return nil, err
	}
	return NewClient(cfg.Downstream.SalePointURL, downstream.NewHTTPClient(cfg.Downstream.Timeout), gateway), nil
}
