package notification

import (
	"github.com/smallbiznis/accreditation/internal/config"
	notificationdomain "github.com/smallbiznis/accreditation/internal/notification/domain"
	"github.com/smallbiznis/accreditation/internal/notification/publisher"
	"github.com/smallbiznis/accreditation/internal/notification/sink"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	sink.Module,
	fx.Provide(publisherConfig),
	fx.Provide(
		fx.Annotate(publisher.New, fx.As(new(notificationdomain.Publisher))),
	),
)

func publisherConfig(cfg config.Config) publisher.Config {
	pc := publisher.DefaultConfig()
	if cfg.Notify.Exchange != "" {
		pc.Exchange = cfg.Notify.Exchange
	}
	if cfg.Notify.RoutingKey != "" {
		pc.RoutingKey = cfg.Notify.RoutingKey
	}
	return pc
}
