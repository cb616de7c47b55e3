// Package descriptor builds a ready-to-open rollerr.Sink from a one-line
// colon-separated description, the kind that fits in a flag or an
// environment variable.
//
//	size:<maxFileSizeBytes>:<maxBackupCount>:<path>
//	time:<intervalCount>:<unit>:<timezone>:<maxBackupCount>:<path>
//
// Units are S, M, H, D or MIDNIGHT. The timezone token U or UTC selects
// UTC; anything else, L and LOCAL by convention, selects local time. Unit
// and timezone tokens are matched without regard to case, and the trailing
// path may itself contain colons.
package descriptor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golift.io/rollerr"
	"golift.io/rollerr/filer"
	"golift.io/rollerr/sizerotator"
	"golift.io/rollerr/timerotator"
)

// Custom errors returned by this package.
var (
	ErrUnknownPolicy = errors.New("unknown rotation policy")
	ErrBadDescriptor = errors.New("malformed rotation descriptor")
)

// Options carries the optional dependencies handed to the policies a
// descriptor names. The zero value works fine.
type Options struct {
	Logger hclog.Logger      // Optional diagnostics logger for the policies.
	Filer  filer.Filer       // Optional overridable file system procedures.
	Clock  timerotator.Clock // Optional time source for time descriptors.
}

// Parse builds a Sink from a descriptor string. The sink comes back
// unopened; call Open on it, or let it drop writes. An invalid descriptor
// is a configuration mistake, so every field is validated up front and
// nothing is defaulted.
func Parse(descriptor string, opts *Options) (*rollerr.Sink, error) {
	if opts == nil {
		opts = &Options{}
	}

	kind, rest, _ := strings.Cut(descriptor, ":")
	switch kind {
	case "size":
		return parseSize(rest, opts)
	case "time":
		return parseTime(rest, opts)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, kind)
}

func parseSize(rest string, opts *Options) (*rollerr.Sink, error) {
	fields := strings.SplitN(rest, ":", 3)
	if len(fields) != 3 || fields[2] == "" {
		return nil, fmt.Errorf("%w: size needs <maxFileSizeBytes>:<maxBackupCount>:<path>", ErrBadDescriptor)
	}

	maxFileSize, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || maxFileSize < 1 {
		return nil, fmt.Errorf("%w: bad max file size %q", ErrBadDescriptor, fields[0])
	}

	maxBackups, err := parseCount(fields[1])
	if err != nil {
		return nil, err
	}

	policy := sizerotator.New(&sizerotator.Config{
		MaxFileSize: maxFileSize,
		MaxBackups:  maxBackups,
		Logger:      opts.Logger,
		Filer:       opts.Filer,
	})

	return rollerr.New(&rollerr.Config{Filepath: fields[2], Policy: policy, Filer: opts.Filer})
}

func parseTime(rest string, opts *Options) (*rollerr.Sink, error) {
	fields := strings.SplitN(rest, ":", 5)
	if len(fields) != 5 || fields[4] == "" {
		return nil, fmt.Errorf(
			"%w: time needs <intervalCount>:<unit>:<timezone>:<maxBackupCount>:<path>", ErrBadDescriptor)
	}

	every, err := strconv.Atoi(fields[0])
	if err != nil || every < 1 {
		return nil, fmt.Errorf("%w: bad interval count %q", ErrBadDescriptor, fields[0])
	}

	unit, err := timerotator.ParseUnit(fields[1])
	if err != nil {
		return nil, err
	}

	maxBackups, err := parseCount(fields[3])
	if err != nil {
		return nil, err
	}

	var (
		timezone = strings.ToUpper(fields[2])
		fileName = fields[4]
	)

	policy, err := timerotator.New(fileName, &timerotator.Config{
		Every:      every,
		Unit:       unit,
		UTC:        timezone == "U" || timezone == "UTC",
		MaxBackups: maxBackups,
		Logger:     opts.Logger,
		Filer:      opts.Filer,
		Clock:      opts.Clock,
	})
	if err != nil {
		return nil, err
	}

	return rollerr.New(&rollerr.Config{Filepath: fileName, Policy: policy, Filer: opts.Filer})
}

func parseCount(token string) (int, error) {
	count, err := strconv.Atoi(token)
	if err != nil || count < 0 {
		return 0, fmt.Errorf("%w: bad backup count %q", ErrBadDescriptor, token)
	}

	return count, nil
}
