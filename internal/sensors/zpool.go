package sensors

import (
	"context"
	"regexp"
	"strings"

	"github.com/speedwagon-io/hostmon/internal/model"
	"github.com/speedwagon-io/hostmon/internal/shell"
)

var poolRowRe = regexp.MustCompile(`^(\S+)\s+(\S+)\s+(\d+)\s+(\d+)\s+(\d+)$`)

// vdevPrefixes mark the line that opens a redundancy group in the config
// table. Rows after it are member drives.
var vdevPrefixes = []string{"raidz", "mirror", "draid"}

type scanState int

const (
	// scanHeader: before "config:". Rows here are pool summaries.
	scanHeader scanState = iota
	// scanConfig: inside the config table, before a vdev group line.
	scanConfig
	// scanMembers: after a vdev group line. Rows here are drives.
	scanMembers
)

type lineKind int

const (
	lineOther lineKind = iota
	lineConfig
	lineVdevGroup
)

func classify(state scanState, line string) lineKind {
	if line == "config:" {
		return lineConfig
	}
	if state != scanHeader && isVdevGroup(line) {
		return lineVdevGroup
	}
	return lineOther
}

// next is the transition table of the scanner. The bool reports whether
// the line is structural and must not be parsed as a row.
func (s scanState) next(kind lineKind) (scanState, bool) {
	switch kind {
	case lineConfig:
		if s == scanHeader {
			return scanConfig, true
		}
		return s, true
	case lineVdevGroup:
		return scanMembers, true
	default:
		return s, false
	}
}

func isVdevGroup(line string) bool {
	for _, prefix := range vdevPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func fieldValue(line, key string) (string, bool) {
	if !strings.HasPrefix(line, key+":") {
		return "", false
	}
	rest := strings.TrimPrefix(line, key+":")
	if i := strings.Index(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest), true
}

func ParsePoolStatus(text string) model.PoolStatus {
	result := model.NewPoolStatus()
	state := scanHeader

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if name, ok := fieldValue(line, "pool"); ok {
			result.Name = name
		}
		if st, ok := fieldValue(line, "state"); ok {
			result.State = st
		}

		var consumed bool
		state, consumed = state.next(classify(state, line))
		if consumed {
			continue
		}

		row := poolRowRe.FindStringSubmatch(line)
		if row == nil {
			continue
		}

		switch state {
		case scanMembers:
			result.Drives = append(result.Drives, model.DriveElementStatus{
				Name:     row[1],
				State:    strings.ToUpper(row[2]),
				Read:     row[3],
				Write:    row[4],
				Checksum: row[5],
			})
		case scanHeader, scanConfig:
			result.Name = row[1]
			result.State = row[2]
			result.Read = row[3]
			result.Write = row[4]
			result.Checksum = row[5]
		}
	}

	if len(result.Drives) > 0 {
		first := result.Drives[0]
		result.Read = first.Read
		result.Write = first.Write
		result.Checksum = first.Checksum
	}

	return result
}

func ReadPoolStatus(ctx context.Context, r shell.Runner, cmd shell.Command) model.PoolStatus {
	output, err := cmd.Run(ctx, r)
	if err != nil {
		return model.FailedPoolStatus()
	}
	return ParsePoolStatus(output)
}
