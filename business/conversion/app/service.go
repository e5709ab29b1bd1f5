package app

import (
	"context"
	"errors"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/fxbridge/business/conversion/domain"
	"github.com/fd1az/fxbridge/internal/apm"
	"github.com/fd1az/fxbridge/internal/apperror"
	"github.com/fd1az/fxbridge/internal/logger"
)

// ConversionService validates requests and runs the best-path search.
type ConversionService struct {
	catalog   MarketCatalog
	selector  *Selector
	validator *RequestValidator
	logger    logger.LoggerInterface
	tracer    apm.Tracer

	conversions metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewConversionService creates a new ConversionService.
func NewConversionService(
	catalog MarketCatalog,
	selector *Selector,
	validator *RequestValidator,
	log logger.LoggerInterface,
	meter metric.Meter,
) (*ConversionService, error) {
	conversions, err := meter.Int64Counter(
		"fxbridge_conversions_total",
		metric.WithDescription("Conversion requests by outcome"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"fxbridge_conversion_duration_ms",
		metric.WithDescription("Conversion latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &ConversionService{
		catalog:     catalog,
		selector:    selector,
		validator:   validator,
		logger:      log,
		tracer:      apm.NewTracer("fxbridge/conversion"),
		conversions: conversions,
		duration:    duration,
	}, nil
}

// Convert validates req, fetches the catalog and returns the best conversion.
// Every failure is an *apperror.AppError.
func (s *ConversionService) Convert(ctx context.Context, req ConvertRequest) (*domain.Result, error) {
	start := time.Now()

	ctx, span := s.tracer.StartSpanFromContext(ctx, "conversion.convert")
	defer span.End()

	result, err := s.convert(ctx, &req)

	outcome := "success"
	if err != nil {
		outcome = string(apperror.CategoryOf(apperror.GetCode(err)))
		span.NoticeError(err)
	} else {
		span.SetAttributes(
			attribute.String("conversion.intermediary", result.Intermediary),
			attribute.Float64("conversion.output", result.OutputAmount),
		)
	}
	span.SetAttributes(
		attribute.String("conversion.from", req.FromCurrency),
		attribute.String("conversion.to", req.ToCurrency),
		attribute.String("conversion.outcome", outcome),
	)
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	s.conversions.Add(ctx, 1, attrs)
	s.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)

	return result, err
}

func (s *ConversionService) convert(ctx context.Context, req *ConvertRequest) (*domain.Result, error) {
	amount, err := s.validator.Validate(req)
	if err != nil {
		s.logger.Debug(ctx, "conversion rejected", "error", err)
		return nil, err
	}

	markets, err := s.catalog.FetchMarkets(ctx)
	if err != nil {
		return nil, s.fail(ctx, req, err)
	}
	catalog := domain.NewCatalog(markets)

	best, found, err := s.selector.Select(ctx, catalog, req.FromCurrency, req.ToCurrency, amount)
	if err != nil {
		return nil, s.fail(ctx, req, err)
	}
	if !found {
		s.logger.Info(ctx, "no conversion path",
			"from", req.FromCurrency, "to", req.ToCurrency, "markets", catalog.Len())
		return nil, apperror.New(apperror.CodeNoConversionPath)
	}
	if math.IsInf(best.Output, 0) || math.IsNaN(best.Output) {
		return nil, s.fail(ctx, req, errOutputOutOfRange)
	}

	s.logger.Info(ctx, "conversion completed",
		"from", req.FromCurrency,
		"to", req.ToCurrency,
		"amount", amount,
		"output", best.Output,
		"intermediary", best.Intermediary,
	)

	return &domain.Result{
		FromCurrency: req.FromCurrency,
		ToCurrency:   req.ToCurrency,
		InputAmount:  amount,
		OutputAmount: best.Output,
		Intermediary: best.Intermediary,
	}, nil
}

var errOutputOutOfRange = errors.New("converted amount is out of range")

// fail logs err and makes sure it leaves as an AppError.
func (s *ConversionService) fail(ctx context.Context, req *ConvertRequest, err error) error {
	if apperror.IsAppError(err) {
		s.logger.Warn(ctx, "conversion failed",
			"from", req.FromCurrency, "to", req.ToCurrency, "code", apperror.GetCode(err), "error", err)
		return err
	}

	s.logger.Error(ctx, "unexpected conversion error",
		"from", req.FromCurrency, "to", req.ToCurrency, "error", err)
	return apperror.Wrap(err, apperror.CodeInternalError, "convert")
}
