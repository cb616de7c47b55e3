// Package sizerotator provides a rollerr.Policy that retires the live log
// file once the next write would push it past a byte threshold. Backup log
// files are named by appending an incrementing integer to the full file
// name: service.log becomes service.log.1, which is pushed to service.log.2
// by the next rotation, and so on up the chain.
//
// The generation number lives in the file name rather than in policy state,
// so the chain survives process restarts: the next slot is always recovered
// by inspecting the files already on disk. Once the chain is full, the slot
// past the retention bound stays put and the rename landing on it overwrites
// it, so the oldest retained backup is recycled rather than shifted.
package sizerotator

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"golift.io/rollerr"
	"golift.io/rollerr/filer"
)

// DefaultMaxSize is used when Config.MaxFileSize is omitted.
const DefaultMaxSize = 10 * 1024 * 1024

// firstBackup suffixes the live file's name on its first trip up the chain.
const firstBackup = ".1"

// Config is the data needed to create a size-based rotation Policy.
type Config struct {
	MaxFileSize int64        // Rotate before a write would reach this many bytes. Default: 10MB.
	MaxBackups  int          // Highest numbered backup slot the chain shifts into. 0 recycles slot 1 forever.
	Logger      hclog.Logger // Optional diagnostics logger. Default: discard everything.
	Filer       filer.Filer  // Optional overridable file system procedures.
}

// Policy rotates the live log file by size. Create one with New and hand it
// to a rollerr.Sink; it keeps no state between calls beyond its Config.
type Policy struct {
	maxFileSize int64
	maxBackups  int
	logger      hclog.Logger
	filer.Filer
}

// New returns a size-based rotation Policy. Missing Config values are filled
// with defaults; a nil Config works and rotates at DefaultMaxSize keeping
// one recycled backup.
func New(config *Config) *Policy {
	if config == nil {
		config = &Config{}
	}

	policy := &Policy{
		maxFileSize: config.MaxFileSize,
		maxBackups:  config.MaxBackups,
		logger:      config.Logger,
		Filer:       config.Filer,
	}

	if policy.maxFileSize <= 0 {
		policy.maxFileSize = DefaultMaxSize
	}

	if policy.logger == nil {
		policy.logger = hclog.NewNullLogger()
	}

	if policy.Filer == nil {
		policy.Filer = filer.Default()
	}

	return policy
}

// Rotate renames the live file into the numbered backup chain when the
// pending write would push it to the size limit or past it. Rotate reports
// false when the file still has room, or when the target path is already
// gone from disk.
func (p *Policy) Rotate(pending []byte, fileName string, file *os.File) (bool, error) {
	info, err := file.Stat()
	if err != nil {
		return false, fmt.Errorf("stating live log file: %w", err)
	}

	if p.maxFileSize > int64(len(pending))+info.Size() {
		return false, nil
	}

	if _, err := p.Stat(fileName); err != nil {
		return false, nil // Nothing at the target path, nothing to rotate.
	}

	return p.shift(fileName, 0)
}

// shift pushes fileName one slot up the backup chain, vacating the slot
// first if a file occupies it. The recursion walks at most maxBackups slots;
// past that the occupying backup stays put and the rename overwrites it.
func (p *Policy) shift(fileName string, depth int) (bool, error) {
	newPath, ok := p.nextBackupName(fileName)
	if !ok {
		return false, nil
	}

	if _, err := p.Stat(newPath); err == nil && depth < p.maxBackups {
		if _, err := p.shift(newPath, depth+1); err != nil {
			return false, err
		}
	}

	p.logger.Debug("renaming backup log file", "from", fileName, "to", newPath)

	if err := p.Rename(fileName, newPath); err != nil {
		return false, fmt.Errorf("error rotating file: %w", err)
	}

	return true, nil
}

// nextBackupName computes the chain slot fileName moves into. A name whose
// extension is a non-negative integer on a stem still carrying its own
// extension has the number bumped; any other name gets the first-generation
// suffix. The second return is false when the bumped number would pass the
// retention bound, which parks the file so the chain recycles it.
func (p *Policy) nextBackupName(fileName string) (string, bool) {
	dir, stem, ext := filer.Split(fileName)

	if num, err := strconv.Atoi(ext); err == nil && num >= 0 && strings.Contains(stem, ".") {
		if num+1 > p.maxBackups {
			return "", false
		}

		return filepath.Join(dir, stem+"."+strconv.Itoa(num+1)), true
	}

	return filepath.Join(dir, stem+"."+ext+firstBackup), true
}

var _ rollerr.Policy = (*Policy)(nil)
