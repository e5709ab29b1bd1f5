package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fd1az/fxbridge/business/conversion/app"
	"github.com/fd1az/fxbridge/business/conversion/domain"
	"github.com/fd1az/fxbridge/internal/apperror"
	"github.com/fd1az/fxbridge/internal/logger"
)

const unexpectedPrefix = "An unexpected error occurred: "

// Converter runs a conversion.
type Converter interface {
	Convert(ctx context.Context, req app.ConvertRequest) (*domain.Result, error)
}

// Handler serves GET /convert.
type Handler struct {
	converter Converter
	logger    logger.LoggerInterface
}

// NewHandler creates a new Handler.
func NewHandler(converter Converter, log logger.LoggerInterface) *Handler {
	return &Handler{converter: converter, logger: log}
}

// SuccessResponse is the 200 body.
type SuccessResponse struct {
	Success            bool    `json:"success"`
	FromCurrency       string  `json:"from_currency"`
	ToCurrency         string  `json:"to_currency"`
	OriginalAmount     float64 `json:"original_amount"`
	ConvertedAmount    float64 `json:"converted_amount"`
	IntermediaryCrypto string  `json:"intermediary_crypto"`
}

// ErrorResponse is the body of every failure.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Convert handles GET /convert?from_currency=&to_currency=&amount=.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	res, err := h.converter.Convert(r.Context(), app.ConvertRequest{
		FromCurrency: q.Get("from_currency"),
		ToCurrency:   q.Get("to_currency"),
		Amount:       q.Get("amount"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{
		Success:            true,
		FromCurrency:       res.FromCurrency,
		ToCurrency:         res.ToCurrency,
		OriginalAmount:     res.InputAmount,
		ConvertedAmount:    res.OutputAmount,
		IntermediaryCrypto: res.Intermediary,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		h.logger.Error(r.Context(), "unhandled error", "error", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: unexpectedPrefix + err.Error()})
		return
	}

	msg := appErr.Message
	status := appErr.StatusCode
	if appErr.Category() == apperror.CategoryUnexpected {
		msg = unexpectedPrefix + msg
		status = http.StatusInternalServerError
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeJSON encodes body before committing status, so an unencodable body
// turns into a 500 envelope instead of an empty response.
func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		data, _ = json.Marshal(ErrorResponse{Error: unexpectedPrefix + err.Error()})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(data, '\n'))
}
