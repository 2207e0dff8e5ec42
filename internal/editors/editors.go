// Package editors implements the studio's editable text buffers: the
// spec editor and the facet-partitioned schema editor. Both follow the
// same state machine:
//
//	clean → dirty → saving → clean | error
//
// Dirty is a diff against the last-saved snapshot, not a "has the user
// typed" flag: editing back to the snapshot returns the buffer to clean.
// A successful save passes through a transient saved indicator that
// self-clears after a fixed delay.
package editors

// State is the lifecycle state of an editable buffer.
type State string

const (
	StateClean  State = "clean"
	StateDirty  State = "dirty"
	StateSaving State = "saving"
	StateSaved  State = "saved"
	StateError  State = "error"
)
