// Package rollerr is a log rotation module designed to plug directly into a
// standard go logger. It wraps your log file in a Sink that asks a rotation
// Policy about every write, so the file is retired and replaced at the
// moment a write would breach the policy instead of on a background timer.
//
// The New() methods return a simple io.WriteCloser that works with most log
// packages. Call Open before logging; everything after that is automatic.
//
// Use this package if you write your own log file, and you're tired of your
// log file growing indefinitely.
// The included `sizerotator`
// and `timerotator`
// packages retire files by size with numbered backups, or on wall-clock
// schedules with time-stamped backups and pruning. The `descriptor` package
// builds a whole Sink from a one-line string for flags and config files.
//
//	https://pkg.go.dev/golift.io/rollerr/sizerotator
//	https://pkg.go.dev/golift.io/rollerr/timerotator
//	https://pkg.go.dev/golift.io/rollerr/descriptor
package rollerr
