package metrics

import "github.com/prometheus/client_golang/prometheus"

type Provider string

const (
	PrometheusProvider Provider = "prometheus"
	OtelCollector      Provider = "customOtelCollector"
)

func NewPrometheusConfig() ProviderCfg {
	return ProviderCfg{Provider: PrometheusProvider}
}

func NewOtelCollectorConfig(url string, headers map[string]string, insecure bool) ProviderCfg {
	provider := ProviderCfg{
		Provider: OtelCollector,
		Endpoint: url,
		Headers:  headers,
		Insecure: insecure,
	}

	return provider
}

type Config struct {
	ServiceName string
	Provider    []ProviderCfg
	Registerer  prometheus.Registerer
}

type ProviderCfg struct {
	Provider Provider
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

type OptionFn func(config Config) Config

func WithProviderConfig(provider ProviderCfg) OptionFn {
	return func(config Config) Config {
		config.Provider = append(config.Provider, provider)

		return config
	}
}

// WithRegisterer registers the Prometheus exporter somewhere other than the default registry.
func WithRegisterer(reg prometheus.Registerer) OptionFn {
	return func(config Config) Config {
		config.Registerer = reg

		return config
	}
}

func WithServiceName(serviceName string) OptionFn {
	return func(config Config) Config {
		config.ServiceName = serviceName

		return config
	}
}
