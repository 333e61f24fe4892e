package sensors

import (
	"context"

	"github.com/speedwagon-io/hostmon/internal/model"
	"github.com/speedwagon-io/hostmon/internal/shell"
	"golang.org/x/sync/errgroup"
)

func ReadDriveState(ctx context.Context, r shell.Runner, cmd shell.Command, name string) model.DriveState {
	output, err := cmd.Run(ctx, r, name)
	if err != nil {
		status := model.DriveStatusError
		return model.DriveState{
			Name:   name,
			Status: &status,
			Error:  errorMessage(err),
		}
	}

	return model.DriveState{
		Name:   name,
		Status: ParseDriveState(output),
	}
}

// ReadDriveStates queries every drive concurrently. The result keeps the
// order of names.
func ReadDriveStates(ctx context.Context, r shell.Runner, cmd shell.Command, names []string) []model.DriveState {
	states := make([]model.DriveState, len(names))

	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			states[i] = ReadDriveState(ctx, r, cmd, name)
			return nil
		})
	}
	_ = g.Wait()

	return states
}
