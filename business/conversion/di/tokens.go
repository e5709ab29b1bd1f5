// Package di contains dependency injection tokens for the conversion context.
package di

import (
	"github.com/fd1az/fxbridge/business/conversion/app"
	"github.com/fd1az/fxbridge/business/conversion/infra/buda"
	"github.com/fd1az/fxbridge/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ConversionService = di.NewToken[*app.ConversionService]("conversion.ConversionService")
)

// Private dependency tokens - internal to conversion module
var (
	BudaClient       = di.NewToken[*buda.Client]("conversion:budaClient")
	Selector         = di.NewToken[*app.Selector]("conversion:selector")
	RequestValidator = di.NewToken[*app.RequestValidator]("conversion:requestValidator")
)

// Helper functions for type-safe access
func GetConversionService(c di.ServiceRegistry) *app.ConversionService {
	return di.GetToken(c, ConversionService)
}

func GetBudaClient(c di.ServiceRegistry) *buda.Client {
	return di.GetToken(c, BudaClient)
}

func GetSelector(c di.ServiceRegistry) *app.Selector {
	return di.GetToken(c, Selector)
}

func GetRequestValidator(c di.ServiceRegistry) *app.RequestValidator {
	return di.GetToken(c, RequestValidator)
}
