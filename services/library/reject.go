package library

import "errors"

// RejectReason explains why a mutation was skipped without error.
// The zero value means the operation was applied.
type RejectReason string

const (
	Accepted                RejectReason = ""
	RejectNoActiveProfile   RejectReason = "no_active_profile"
	RejectMissingImage      RejectReason = "missing_image"
	RejectIncompleteEpisode RejectReason = "incomplete_episode"
	RejectInvalidEntry      RejectReason = "invalid_entry"
	RejectDuplicate         RejectReason = "duplicate"
	RejectNotFound          RejectReason = "not_found"
	RejectInvalidName       RejectReason = "invalid_name"
)

// Applied reports whether the operation took effect.
func (r RejectReason) Applied() bool {
	return r == Accepted
}

var (
	// ErrAuthRequired is returned when a manager is used without a signed-in user.
	ErrAuthRequired = errors.New("authentication required")
)
