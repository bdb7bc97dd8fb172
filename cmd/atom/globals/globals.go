package globals

import (
	"context"

	"atomkit/internal/config"
	"atomkit/internal/telemetry"
	"atomkit/lib/httpclient"
)

type key struct{}

type Value struct {
	Config    config.Config
	Telemetry telemetry.API
	// HTTPDebug is nil unless --debug-http is given.
	HTTPDebug httpclient.DebugOutput
}

func Set(ctx context.Context, value *Value) context.Context {
	return context.WithValue(ctx, key{}, value)
}

func Get(ctx context.Context) *Value {
	return ctx.Value(key{}).(*Value)
}
