package rollerr

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golift.io/rollerr/filer"
)

// These are the default directory and log file POSIX modes.
const (
	FileMode os.FileMode = 0o600
	DirMode  os.FileMode = 0o750
)

// Custom errors returned by this package.
var (
	ErrNilPolicy  = errors.New("nil rotation Policy provided")
	ErrNoFilepath = errors.New("no log file path provided")
)

// Config is the data needed to create a new log file Sink.
type Config struct {
	Filepath string      // REQUIRED: Full path to the live log file.
	Policy   Policy      // REQUIRED: Decides when the live file is retired. Use a provided policy or your own.
	FileMode os.FileMode // POSIX mode for new log files.
	DirMode  os.FileMode // POSIX mode for new folders.
	Filer    filer.Filer // Optional overridable file system procedures.
}

// Sink is what you get in return for providing a Config. Use it to set log
// output. A Sink owns its file handle outright and keeps no locks: one
// goroutine writes, or the caller serializes. You must obtain a Sink by
// calling one of the New() procedures, and call Open before writing.
type Sink struct {
	config      *Config  // incoming configuration.
	policy      Policy   // copied from config for brevity.
	file        *os.File // the active open file, nil while closed.
	opened      bool     // set by the first successful open, cleared by Close.
	filer.Filer          // overridable file system procedures.
}

// New takes in your configuration and returns a Sink. The log file is not
// touched until Open or the first write after a rotation. New returns an
// error only for configurations that could never write: a missing path or a
// missing policy.
func New(config *Config) (*Sink, error) {
	if config.Policy == nil {
		return nil, ErrNilPolicy
	}

	if config.Filepath == "" {
		return nil, ErrNoFilepath
	}

	if config.FileMode == 0 {
		config.FileMode = FileMode
	}

	if config.DirMode == 0 {
		config.DirMode = DirMode
	}

	sink := &Sink{config: config, policy: config.Policy, Filer: config.Filer}
	if sink.Filer == nil {
		sink.Filer = filer.Default()
	}

	return sink, nil
}

// NewMust takes in your configuration and returns a Sink. It panics where
// New returns an error, and both errors mean the configuration is broken,
// so this is handy for package-scope assignments.
func NewMust(config *Config) *Sink {
	sink, err := New(config)
	if err != nil {
		panic(err)
	}

	return sink
}

// Open creates the log file, or appends to it when it already exists. Any
// necessary folders are also created. Open is a no-op while the sink holds
// an open handle.
func (s *Sink) Open() error {
	if s.file != nil {
		return nil
	}

	return s.openLog()
}

// Write hands the pending bytes to the rotation policy, then appends them to
// the live log file. This satisfies the io.WriteCloser interface, so pass
// the Sink into log.SetOutput() or your logging front end. A Sink that was
// never opened silently drops the bytes and reports a zero count; open
// before writing.
func (s *Sink) Write(b []byte) (int, error) {
	if err := s.tryRotate(b); err != nil {
		return 0, err
	}

	if s.file == nil {
		return 0, nil // never opened: the bytes are dropped.
	}

	size, err := s.file.Write(b)
	if err != nil {
		return size, fmt.Errorf("error writing log msg: %w", err)
	}

	return size, nil
}

// tryRotate asks the policy about the pending bytes and swaps in a fresh
// file when the policy retired the live one. A sink whose handle was lost to
// a failed reopen gets a new open attempt instead of a policy check.
func (s *Sink) tryRotate(b []byte) error {
	if !s.opened {
		return nil
	}

	if s.file == nil {
		return s.openLog()
	}

	rotated, err := s.policy.Rotate(b, s.config.Filepath, s.file)
	if err != nil {
		return fmt.Errorf("error rotating log: %w", err)
	}

	if !rotated {
		return nil
	}

	if err := s.close(); err != nil {
		return err
	}

	return s.openLog()
}

// openLog opens the log file for appending, creating it and its folders as
// needed.
func (s *Sink) openLog() error {
	err := s.MkdirAll(filepath.Dir(s.config.Filepath), s.config.DirMode)
	if err != nil {
		return fmt.Errorf("making directories for log file: %w", err)
	}

	file, err := s.OpenFile(s.config.Filepath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, s.config.FileMode)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}

	s.file = file
	s.opened = true

	return nil
}

// Flush commits the live file to stable storage. Without an open handle this
// does nothing.
func (s *Sink) Flush() error {
	if s.file == nil {
		return nil
	}

	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("syncing log file: %w", err)
	}

	return nil
}

// Close closes the active log file. Writes sent after Close are dropped the
// same way writes before Open are.
func (s *Sink) Close() error {
	s.opened = false

	return s.close()
}

// close closes the active log file and forgets the handle, even when the
// close itself fails.
func (s *Sink) close() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	if err != nil {
		return fmt.Errorf("closing log file %s: %w", s.config.Filepath, err)
	}

	return nil
}

// Our interface must satify an io.WriteCloser.
var _ io.WriteCloser = (*Sink)(nil)
