package main

import (
	"context"

	"atomkit/cmd/atom/commands"
	"atomkit/lib/osutil"
)

func main() {
	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
