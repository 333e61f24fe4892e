package sensors

import (
	"context"

	"github.com/speedwagon-io/hostmon/internal/model"
	"github.com/speedwagon-io/hostmon/internal/shell"
	"golang.org/x/sync/errgroup"
)

func Ping(ctx context.Context, r shell.Runner, cmd shell.Command, target string) model.PingResult {
	output, err := cmd.Run(ctx, r, target)
	if err != nil {
		return model.PingResult{
			Target: target,
			Error:  errorMessage(err),
		}
	}

	return model.PingResult{
		Target: target,
		Result: ParsePingLatency(output),
	}
}

func Pings(ctx context.Context, r shell.Runner, cmd shell.Command, targets []string) []model.PingResult {
	results := make([]model.PingResult, len(targets))

	var g errgroup.Group
	for i, target := range targets {
		g.Go(func() error {
			results[i] = Ping(ctx, r, cmd, target)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
