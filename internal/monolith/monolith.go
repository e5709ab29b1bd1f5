// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"fmt"

	"github.com/go-chi/chi/v5"

	"github.com/fd1az/fxbridge/internal/config"
	"github.com/fd1az/fxbridge/internal/currency"
	"github.com/fd1az/fxbridge/internal/di"
	"github.com/fd1az/fxbridge/internal/health"
	"github.com/fd1az/fxbridge/internal/logger"
)

// Names of the global services every module can resolve.
const (
	ConfigService     = "config"
	LoggerService     = "logger"
	CurrenciesService = "currencies"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	Currencies() *currency.Registry
	Router() chi.Router
	Health() *health.Server
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

// app implements the Monolith interface.
type app struct {
	config     *config.Config
	logger     logger.LoggerInterface
	currencies *currency.Registry
	router     *chi.Mux
	health     *health.Server
	container  di.Container
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log logger.LoggerInterface, hs *health.Server) (*app, error) {
	currencies, err := currency.NewRegistryFromCodes(cfg.Conversion.SupportedCurrencies)
	if err != nil {
		return nil, fmt.Errorf("supported currencies: %w", err)
	}

	container := di.NewContainer()

	// Register global services
	container.Register(ConfigService, cfg)
	container.Register(LoggerService, log)
	container.Register(CurrenciesService, currencies)

	return &app{
		config:     cfg,
		logger:     log,
		currencies: currencies,
		router:     chi.NewRouter(),
		health:     hs,
		container:  container,
	}, nil
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() logger.LoggerInterface {
	return a.logger
}

func (a *app) Currencies() *currency.Registry {
	return a.currencies
}

func (a *app) Router() chi.Router {
	return a.router
}

func (a *app) Health() *health.Server {
	return a.health
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
