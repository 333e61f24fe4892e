// Package sensors turns the text output of local monitoring tools into
// structured records. Parsers never fail: a missing pattern yields a nil
// field and a failed command is reported in-band.
package sensors

import (
	"context"
	"errors"
	"regexp"

	"github.com/speedwagon-io/hostmon/internal/shell"
)

var (
	// sensors may print the degree sign mis-encoded as "Â°".
	temperatureRe = regexp.MustCompile(`Package id 0:\s*\+?(-?[0-9]+(?:\.[0-9]+)?)\s*Â?°C`)
	driveStateRe  = regexp.MustCompile(`drive state is:\s*([a-z]+)`)
	pingTimeRe    = regexp.MustCompile(`time=([0-9]+(?:\.[0-9]+)?)`)
)

func firstGroup(re *regexp.Regexp, text string) *string {
	matches := re.FindStringSubmatch(text)
	if len(matches) < 2 {
		return nil
	}
	value := matches[1]
	return &value
}

func ParseTemperature(text string) *string {
	return firstGroup(temperatureRe, text)
}

func ParseDriveState(text string) *string {
	return firstGroup(driveStateRe, text)
}

func ParsePingLatency(text string) *string {
	return firstGroup(pingTimeRe, text)
}

func errorMessage(err error) string {
	var cmdErr *shell.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Message
	}
	return err.Error()
}

func ReadCPUTemperature(ctx context.Context, r shell.Runner, cmd shell.Command) *string {
	output, err := cmd.Run(ctx, r)
	if err != nil {
		return nil
	}
	return ParseTemperature(output)
}
