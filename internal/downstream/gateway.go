package downstream

import (
	"github.com/smallbiznis/accreditation/internal/config"
	"github.com/smallbiznis/accreditation/internal/ratelimit"
	"github.com/smallbiznis/accreditation/internal/resilience"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type GatewayParams struct {
	fx.In

	Policies *config.ResilienceConfig
	Limiters *ratelimit.Limiters `optional:"true"`
	Observer resilience.Observer `optional:"true"`
	Log      *zap.Logger
}

// NewGateway builds the gateway for target from its configured policy. The
// limiter is shared across replicas when a store is configured.
func NewGateway(p GatewayParams, target string, classify resilience.Classifier) (*resilience.Gateway, error) {
	policy, err := p.Policies.Policy(target)
	if err != nil {
		return nil, err
	}
	return resilience.New(target, policy, classify,
		resilience.WithLimiter(p.Limiters.For(target, policy.RateLimit)),
		resilience.WithObserver(p.Observer),
		resilience.WithLogger(p.Log),
	)
}
