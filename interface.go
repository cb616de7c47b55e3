package rollerr

//go:generate mockgen -destination=mocks/policy.go -package=mocks golift.io/rollerr Policy

import "os"

// Policy decides when the active log file must be retired and performs the
// renames that retire it. Two working policies are included with this
// library. Use those directly, or bring your own.
type Policy interface {
	// Rotate is called with every pending write. It inspects the pending
	// bytes and the live file, and when a rotation is due it renames the
	// target path into a backup and prunes whatever its retention rules
	// say must go. It reports true only after the target path has been
	// renamed away; the caller owns reopening the path. The report is
	// meaningless when err is non-nil.
	Rotate(pending []byte, fileName string, file *os.File) (rotated bool, err error)
}
