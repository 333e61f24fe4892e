package exporter

import (
	"log/slog"
	"strconv"

	"github.com/speedwagon-io/hostmon/internal/lib/logger/sl"
)

func (e *Exporter) parseFloat(value string, fieldName string) (float64, bool) {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.log.Warn("could not parse value",
			slog.String("field", fieldName),
			slog.String("value", value),
			sl.Err(err),
		)
		e.parseErrors.WithLabelValues(fieldName).Inc()
		return 0.0, false
	}
	return f, true
}
