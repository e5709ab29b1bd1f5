package app

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/fd1az/fxbridge/internal/apperror"
	"github.com/fd1az/fxbridge/internal/currency"
)

// ConvertRequest is the raw conversion input as received from transport.
type ConvertRequest struct {
	FromCurrency string `validate:"required,supported_currency"`
	ToCurrency   string `validate:"required,supported_currency"`
	Amount       string `validate:"required,amount"`
}

// RequestValidator checks conversion requests against the supported currencies.
type RequestValidator struct {
	validate   *validator.Validate
	currencies *currency.Registry
}

// NewRequestValidator creates a validator bound to currencies.
func NewRequestValidator(currencies *currency.Registry) (*RequestValidator, error) {
	v := validator.New()

	if err := v.RegisterValidation("supported_currency", func(fl validator.FieldLevel) bool {
		return currencies.IsSupported(fl.Field().String())
	}); err != nil {
		return nil, err
	}
	if err := v.RegisterValidation("amount", validateAmount); err != nil {
		return nil, err
	}

	return &RequestValidator{validate: v, currencies: currencies}, nil
}

// Validate normalizes req and returns the parsed amount. Missing parameters
// are reported before unsupported currencies, which come before a bad amount.
func (rv *RequestValidator) Validate(req *ConvertRequest) (float64, error) {
	req.FromCurrency = currency.Normalize(req.FromCurrency)
	req.ToCurrency = currency.Normalize(req.ToCurrency)
	req.Amount = strings.TrimSpace(req.Amount)

	if err := rv.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return 0, err
		}
		return 0, rv.toAppError(verrs)
	}

	amount, _ := parseAmount(req.Amount)
	return amount, nil
}

func (rv *RequestValidator) toAppError(verrs validator.ValidationErrors) *apperror.AppError {
	tags := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		tags[fe.Tag()] = true
	}

	switch {
	case tags["required"]:
		return apperror.New(apperror.CodeMissingParameter)
	case tags["supported_currency"]:
		return apperror.Validation(apperror.CodeUnsupportedCurrency,
			fmt.Sprintf("Invalid currency. Only %s are supported.", strings.Join(rv.currencies.Codes(), ", ")))
	default:
		return apperror.New(apperror.CodeInvalidAmount)
	}
}

func validateAmount(fl validator.FieldLevel) bool {
	_, ok := parseAmount(fl.Field().String())
	return ok
}

// parseAmount accepts decimal strings (exponents allowed) that are not negative.
func parseAmount(s string) (float64, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return 0, false
	}
	f, _ := d.Float64()
	if math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
