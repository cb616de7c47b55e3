// Package timerotator provides a rollerr.Policy that retires the live log
// file on a clock schedule. Backup log files are named by appending a compact
// time stamp to the full file name: rotating service.log hourly produces
// service.log.2006010215, with coarser stamps for coarser units.
//
// Rotation windows are aligned to the wall clock, not to process start. The
// Midnight unit rolls at the next local (or UTC) midnight, and a log file
// already on disk seeds the schedule from its modification time, so a
// restarted process keeps the cadence of the one it replaced.
//
// After every rotation the policy prunes stamped backups past its retention
// bound. Pruning matches every file that starts with the live file's name
// plus a dot, so keep unrelated files out of the pattern's reach.
package timerotator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"golift.io/rollerr"
	"golift.io/rollerr/filer"
)

// ErrUnknownUnit is returned by New and ParseUnit when the rotation unit
// does not exist.
var ErrUnknownUnit = errors.New("unknown time rotation unit")

// Unit selects the width of the rotation window and the stamp appended to
// backup file names.
type Unit uint8

// These are all the provided rotation units. Midnight is a day that begins
// at 00:00:00 instead of one day after the previous rotation.
const (
	Second Unit = iota
	Minute
	Hour
	Day
	Midnight
)

const (
	secondsPerDay = 24 * 60 * 60
	checkInterval = time.Second
)

// ParseUnit matches a descriptor token to its Unit. Tokens are matched
// without regard to case: s, m, h, d and midnight.
func ParseUnit(token string) (Unit, error) {
	switch strings.ToUpper(token) {
	case "S":
		return Second, nil
	case "M":
		return Minute, nil
	case "H":
		return Hour, nil
	case "D":
		return Day, nil
	case "MIDNIGHT":
		return Midnight, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrUnknownUnit, token)
}

// String returns the descriptor token for the unit.
func (u Unit) String() string {
	switch u {
	case Second:
		return "S"
	case Minute:
		return "M"
	case Hour:
		return "H"
	case Day:
		return "D"
	case Midnight:
		return "MIDNIGHT"
	}

	return "unknown"
}

// Layout returns the Go time layout rendered into the unit's backup stamps.
// Units sharing a width share a layout: Day and Midnight both stamp dates.
func (u Unit) Layout() string {
	switch u {
	case Second:
		return "20060102150405"
	case Minute:
		return "200601021504"
	case Hour:
		return "2006010215"
	default:
		return "20060102"
	}
}

// every returns the span of count windows. Midnight windows are always one
// day wide no matter the count.
func (u Unit) every(count int) time.Duration {
	switch u {
	case Second:
		return time.Duration(count) * time.Second
	case Minute:
		return time.Duration(count) * time.Minute
	case Hour:
		return time.Duration(count) * time.Hour
	case Day:
		return time.Duration(count) * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Clock tells the Policy what time it is. Swap it out to test schedules
// without sleeping.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() time.Time

// Now returns the function's idea of the current time.
func (f ClockFunc) Now() time.Time {
	return f()
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Config is the data needed to create a time-based rotation Policy.
type Config struct {
	Every      int          // How many Units each rotation window spans. Default: 1. Midnight ignores this.
	Unit       Unit         // Width of the rotation window. Default: Second.
	UTC        bool         // Compute midnights and render stamps in UTC instead of local time.
	MaxBackups int          // Stamped backups kept after pruning. 0 deletes every match, the fresh backup included.
	Logger     hclog.Logger // Optional diagnostics logger. Default: discard everything.
	Filer      filer.Filer  // Optional overridable file system procedures.
	Clock      Clock        // Optional time source. Default: the system clock.
}

// Policy rotates the live log file on a schedule. It tracks the next
// rollover and the last time it looked at the clock, so a Policy belongs to
// exactly one rollerr.Sink.
type Policy struct {
	every      time.Duration
	unit       Unit
	utc        bool
	maxBackups int
	rolloverAt time.Time
	checkedAt  time.Time
	logger     hclog.Logger
	clock      Clock
	filer.Filer
}

// New returns a time-based rotation Policy for the named log file. When the
// file already exists, its modification time seeds the schedule and a
// rotation is due as soon as the stale window ends; otherwise the first
// window starts now. New returns ErrUnknownUnit when Config.Unit is not one
// of the provided units.
func New(fileName string, config *Config) (*Policy, error) {
	if config == nil {
		config = &Config{}
	}

	if config.Unit > Midnight {
		return nil, fmt.Errorf("%w: %d", ErrUnknownUnit, config.Unit)
	}

	policy := &Policy{
		unit:       config.Unit,
		utc:        config.UTC,
		maxBackups: config.MaxBackups,
		logger:     config.Logger,
		clock:      config.Clock,
		Filer:      config.Filer,
	}

	count := config.Every
	if count < 1 {
		count = 1
	}

	policy.every = config.Unit.every(count)

	if policy.logger == nil {
		policy.logger = hclog.NewNullLogger()
	}

	if policy.Filer == nil {
		policy.Filer = filer.Default()
	}

	if policy.clock == nil {
		policy.clock = systemClock{}
	}

	seed := policy.clock.Now()
	if info, err := policy.Stat(fileName); err == nil {
		seed = info.ModTime()
	}

	policy.rolloverAt = policy.nextRollover(seed)
	policy.checkedAt = policy.clock.Now()

	return policy, nil
}

// RolloverAt returns when the current rotation window ends.
func (p *Policy) RolloverAt() time.Time {
	return p.rolloverAt
}

// Rotate renames the live file into a stamped backup once the rotation
// window has ended. The clock is consulted at most once per second; calls
// between checks report false without touching the file system.
func (p *Policy) Rotate(_ []byte, fileName string, _ *os.File) (bool, error) {
	now := p.clock.Now()
	if now.Sub(p.checkedAt) < checkInterval {
		return false, nil
	}

	p.checkedAt = now

	return p.rotate(now, fileName)
}

func (p *Policy) rotate(now time.Time, fileName string) (bool, error) {
	if p.rolloverAt.After(now) {
		return false, nil
	}

	if _, err := p.Stat(fileName); err != nil {
		return false, nil // Nothing at the target path, nothing to rotate.
	}

	newPath := p.backupName(fileName)
	if _, err := p.Stat(newPath); err == nil {
		if err := p.Remove(newPath); err != nil {
			return false, fmt.Errorf("error removing backup log file: %w", err)
		}
	}

	p.logger.Debug("renaming backup log file", "from", fileName, "to", newPath)

	if err := p.Rename(fileName, newPath); err != nil {
		return false, fmt.Errorf("error rotating file: %w", err)
	}

	if err := p.prune(fileName); err != nil {
		return false, err
	}

	p.advance(now)

	return true, nil
}

// backupName stamps the live file's name with the start of the window that
// just ended.
func (p *Policy) backupName(fileName string) string {
	dir, stem, ext := filer.Split(fileName)
	stamp := p.rolloverAt.Add(-p.every).In(p.location()).Format(p.unit.Layout())

	return filepath.Join(dir, stem+"."+ext+"."+stamp)
}

// nextRollover returns the end of the rotation window containing now. For
// Midnight that is the next midnight on the configured clock; for every
// other unit the window simply spans Every Units from now.
func (p *Policy) nextRollover(now time.Time) time.Time {
	if p.unit != Midnight {
		return now.Add(p.every)
	}

	hour, minute, second := now.In(p.location()).Clock()
	delta := secondsPerDay - ((hour*60+minute)*60 + second)

	return now.Add(time.Duration(delta) * time.Second)
}

// advance moves the schedule to the first window ending after now.
func (p *Policy) advance(now time.Time) {
	next := p.nextRollover(now)
	for !next.After(now) {
		next = next.Add(p.every)
	}

	p.rolloverAt = next
}

// prune deletes the oldest backups until MaxBackups remain. Anything named
// like the live file plus a dotted suffix counts as a backup, and oldest
// means lowest in lexical file name order, which matches stamp order.
func (p *Policy) prune(fileName string) error {
	pattern := fileName + ".*"

	matches, err := p.Glob(pattern)
	if err != nil {
		p.logger.Warn("cannot list backup log files", "pattern", pattern, "error", err)
		return nil
	}

	if len(matches) <= p.maxBackups {
		return nil
	}

	sort.Strings(matches)

	for _, path := range matches[:len(matches)-p.maxBackups] {
		if err := p.Remove(path); err != nil {
			return fmt.Errorf("error removing backup log file: %w", err)
		}

		p.logger.Debug("removed backup log file", "path", path)
	}

	return nil
}

func (p *Policy) location() *time.Location {
	if p.utc {
		return time.UTC
	}

	return time.Local
}

// Our Policy must satisfy a rollerr.Policy.
var _ rollerr.Policy = (*Policy)(nil)
