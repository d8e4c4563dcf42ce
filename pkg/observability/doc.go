/*
Package observability turns engine lifecycle hooks into logs and Prometheus metrics.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.LogHooks(logger))
	eng, err := inkwell.New(source, inkwell.WithLifecycleHooks(hooks))
*/
package observability
