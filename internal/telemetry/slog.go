package telemetry

import (
	"fmt"
	"log/slog"
)

// SlogAPI writes reports to Logger, slog.Default() when nil. Errors among
// the params are logged under `err`, the rest as `p0`, `p1`...
type SlogAPI struct {
	Logger *slog.Logger
}

func (s SlogAPI) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func paramAttrs(attrs []any, params []any) []any {
	for i, p := range params {
		if err, ok := p.(error); ok && err != nil {
			attrs = append(attrs, slog.String("err", err.Error()))
			continue
		}
		attrs = append(attrs, slog.Any(fmt.Sprintf("p%d", i), p))
	}
	return attrs
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	s.logger().Error("broken", paramAttrs([]any{slog.String("id", id)}, params)...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	s.logger().Warn("warning", paramAttrs([]any{slog.String("id", id)}, params)...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	s.logger().Debug(message, paramAttrs(nil, params)...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	s.logger().Info("count", "id", id, "n", count)
}
