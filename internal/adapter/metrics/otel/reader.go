package otelmetrics

import (
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewReader builds the metric reader named by exporter.
// Supported: "stdout" (periodic JSON dump to w) and "none".
func NewReader(exporter string, w io.Writer, interval time.Duration) (sdkmetric.Reader, error) {
	switch exporter {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout metrics exporter: %w", err)
		}
		opts := []sdkmetric.PeriodicReaderOption{}
		if interval > 0 {
			opts = append(opts, sdkmetric.WithInterval(interval))
		}
		return sdkmetric.NewPeriodicReader(exp, opts...), nil
	case "none", "":
		return sdkmetric.NewManualReader(), nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", exporter)
	}
}
