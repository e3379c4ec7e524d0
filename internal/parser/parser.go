// Package parser reads pilot scripts: one command per line, prefixed by the
// tick on which it fires.
//
//	# tick command args...
//	0   set_mode HOVER
//	50  throttle 0.5
//	120 ignite_toggle
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/flightctl/flightctl/pkg/core"
)

var ErrBadLine = errors.New("malformed script line")

// parseIntFromFloat parses a string that may be an integer ("32") or a
// whole float ("32.00").
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a whole number", s)
	}
	return int64(f), nil
}

// ParseCommand splits "command arg..." into a pilot command with tick 0.
func ParseCommand(line string) (core.PilotCommand, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return core.PilotCommand{}, fmt.Errorf("%w: empty command", ErrBadLine)
	}
	cmd := core.PilotCommand{Command: strings.ToLower(fields[0])}
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}
	return cmd, nil
}

// ParsePilotScript reads a script. Blank lines and lines starting with '#'
// are skipped. The result is ordered by tick, stable for equal ticks.
func ParsePilotScript(r io.Reader) ([]core.PilotCommand, error) {
	var cmds []core.PilotCommand
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: line %d: missing command", ErrBadLine, lineNo)
		}
		tick, err := parseIntFromFloat(fields[0])
		if err != nil || tick < 0 {
			return nil, fmt.Errorf("%w: line %d: bad tick %q", ErrBadLine, lineNo, fields[0])
		}
		cmd, err := ParseCommand(strings.Join(fields[1:], " "))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cmd.Tick = int(tick)
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading pilot script: %w", err)
	}

	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Tick < cmds[j].Tick })
	return cmds, nil
}

// ParsePilotScriptFile reads a script from disk.
func ParsePilotScriptFile(path string) ([]core.PilotCommand, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening pilot script: %w", err)
	}
	defer f.Close()
	return ParsePilotScript(f)
}

// ParseAxis parses a continuous axis value, which must lie in [-1, 1].
func ParseAxis(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing axis %q: %w", s, err)
	}
	if math.IsNaN(v) || v < -1 || v > 1 {
		return 0, fmt.Errorf("axis %v outside [-1, 1]", v)
	}
	return v, nil
}
