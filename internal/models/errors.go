package models

import "errors"

// Sentinel errors shared by every package of the simulator. Callers match them
// with errors.Is; packages wrap them with call-site context.
var (
	// ErrShapeMismatch indicates that cooperating arrays disagree in length or
	// dimension (positions vs. form factors, weights vs. coordinates, ...).
	ErrShapeMismatch = errors.New("cryosim: shape mismatch")

	// ErrUnsupportedConfiguration indicates a parameter outside the supported
	// domain, such as a pad scale below one or a non-cubic voxel grid.
	ErrUnsupportedConfiguration = errors.New("cryosim: unsupported configuration")

	// ErrNotImplemented is returned by code paths that are declared but have no
	// numerical body yet.
	ErrNotImplemented = errors.New("cryosim: not implemented")
)
