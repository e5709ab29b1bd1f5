// Package conversion implements the fiat-to-fiat conversion bounded context.
package conversion

import (
	"context"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"

	"github.com/fd1az/fxbridge/business/conversion/app"
	conversionDI "github.com/fd1az/fxbridge/business/conversion/di"
	"github.com/fd1az/fxbridge/business/conversion/infra/buda"
	"github.com/fd1az/fxbridge/business/conversion/infra/httpapi"
	"github.com/fd1az/fxbridge/internal/circuitbreaker"
	"github.com/fd1az/fxbridge/internal/config"
	"github.com/fd1az/fxbridge/internal/currency"
	"github.com/fd1az/fxbridge/internal/di"
	"github.com/fd1az/fxbridge/internal/logger"
	"github.com/fd1az/fxbridge/internal/monolith"
)

const meterName = "fxbridge/conversion"

// Module implements the conversion bounded context.
type Module struct{}

// RegisterServices registers all conversion services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register Buda client - private dependency
	di.RegisterToken(c, conversionDI.BudaClient, func(sr di.ServiceRegistry) *buda.Client {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		breaker := circuitbreaker.DefaultConfig("buda")
		breaker.FailureThreshold = cfg.Buda.Breaker.FailureThreshold
		breaker.Timeout = cfg.Buda.Breaker.OpenTimeout
		breaker.Interval = cfg.Buda.Breaker.Interval

		client, err := buda.NewClient(buda.Config{
			BaseURL:           cfg.Buda.BaseURL,
			Timeout:           cfg.Buda.Timeout,
			RequestsPerMinute: cfg.Buda.RequestsPerMinute,
			Breaker:           breaker,
		}, log)
		if err != nil {
			panic("failed to create buda client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, conversionDI.RequestValidator, func(sr di.ServiceRegistry) *app.RequestValidator {
		currencies := sr.Get(monolith.CurrenciesService).(*currency.Registry)

		v, err := app.NewRequestValidator(currencies)
		if err != nil {
			panic("failed to create request validator: " + err.Error())
		}
		return v
	})

	di.RegisterToken(c, conversionDI.Selector, func(sr di.ServiceRegistry) *app.Selector {
		cfg := sr.Get(monolith.ConfigService).(*config.Config)
		client := conversionDI.GetBudaClient(sr)

		s, err := app.NewSelector(app.NewEvaluator(client), cfg.Conversion.Workers, otel.Meter(meterName))
		if err != nil {
			panic("failed to create selector: " + err.Error())
		}
		return s
	})

	// Register ConversionService (public - exposed to other modules)
	di.RegisterToken(c, conversionDI.ConversionService, func(sr di.ServiceRegistry) *app.ConversionService {
		log := sr.Get(monolith.LoggerService).(logger.LoggerInterface)

		svc, err := app.NewConversionService(
			conversionDI.GetBudaClient(sr),
			conversionDI.GetSelector(sr),
			conversionDI.GetRequestValidator(sr),
			log,
			otel.Meter(meterName),
		)
		if err != nil {
			panic("failed to create conversion service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup mounts the HTTP routes and the readiness check.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	client := conversionDI.GetBudaClient(mono.Services())
	if hs := mono.Health(); hs != nil {
		hs.RegisterCheck("buda", func(context.Context) (bool, string) {
			state := client.BreakerState()
			return state != gobreaker.StateOpen, "circuit " + state.String()
		})
	}

	handler := httpapi.NewHandler(conversionDI.GetConversionService(mono.Services()), log)
	mono.Router().Mount("/", httpapi.NewRouter(handler, httpapi.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
	}, log))

	log.Info(ctx, "conversion module started",
		"currencies", mono.Currencies().Codes(),
		"workers", cfg.Conversion.Workers,
	)
	return nil
}
