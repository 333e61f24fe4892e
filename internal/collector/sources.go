package collector

import (
	"github.com/speedwagon-io/hostmon/internal/config"
	"github.com/speedwagon-io/hostmon/internal/shell"
)

const (
	SourceTemperature = "temperature"
	SourceHDDs        = "hdds"
	SourceZpool       = "zpool"
	SourcePings       = "pings"
)

// Sources describes the tools the aggregator polls and what it polls them for.
type Sources struct {
	Runner      shell.Runner
	Sensors     shell.Command
	Hdparm      shell.Command
	Zpool       shell.Command
	Ping        shell.Command
	HDDNames    []string
	PingTargets []string
}

func SourcesFromConfig(cfg *config.Config, runner shell.Runner) Sources {
	return Sources{
		Runner:      runner,
		Sensors:     shell.Command{Path: cfg.Commands.Sensors},
		Hdparm:      shell.Command{Path: cfg.Commands.Hdparm, Args: []string{"-C"}, Sudo: !cfg.Commands.SkipSudo},
		Zpool:       shell.Command{Path: cfg.Commands.Zpool, Args: []string{"status"}},
		Ping:        shell.Command{Path: cfg.Commands.Ping, Args: []string{"-c", "1"}},
		HDDNames:    cfg.HDDNames,
		PingTargets: cfg.PingTargets,
	}
}

// Tools lists the executables the configured sources depend on.
func (s Sources) Tools() []string {
	tools := []string{s.Sensors.Path, s.Zpool.Path}
	if len(s.HDDNames) > 0 {
		tools = append(tools, s.Hdparm.Path)
		if s.Hdparm.Sudo {
			tools = append(tools, "sudo")
		}
	}
	if len(s.PingTargets) > 0 {
		tools = append(tools, s.Ping.Path)
	}
	return tools
}
