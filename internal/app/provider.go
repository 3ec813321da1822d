package service

import (
	"context"

	"github.com/okian/xianxia/internal/adapters/mq/bus"
	"github.com/okian/xianxia/internal/adapters/repository"
	"github.com/okian/xianxia/internal/domain/event"
	"github.com/okian/xianxia/pkg/logger"
)

// Provider answers REQUEST_CURRENT_BATTLE with the enemy roster stored for
// the requested state id. Unknown ids get no answer.
type Provider struct {
	client *bus.Client
	store  repository.Store
	logger logger.Logger
}

// ProviderOption applies a configuration option to the Provider.
type ProviderOption func(*Provider)

// WithProviderLogger sets a custom logger for the provider.
func WithProviderLogger(l logger.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewProvider serves setups from st on b until Close.
func NewProvider(b *bus.Bus, st repository.Store, opts ...ProviderOption) *Provider {
	p := &Provider{
		client: b.NewClient(),
		store:  st,
		logger: logger.Get().Named("provider"),
	}
	for _, opt := range opts {
		opt(p)
	}
	bus.On(p.client, p.respond)
	return p
}

// Close stops answering.
func (p *Provider) Close() { p.client.Destroy() }

func (p *Provider) respond(req event.RequestCurrentBattle) {
	ctx := context.Background()
	setup, err := p.store.Setup(ctx, req.StateID)
	if err != nil {
		p.logger.Warn(ctx, "no battle prepared for state",
			logger.String("state_id", req.StateID),
			logger.Error(err),
		)
		return
	}
	p.client.Publish(event.ResponseCurrentBattle{StateID: setup.StateID, Enemies: setup.Enemies})
}
