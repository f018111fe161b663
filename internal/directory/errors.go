package directory

import "errors"

var (
	// ErrAgentNotFound is returned when the referenced agent id does not exist
	ErrAgentNotFound = errors.New("agent not found")

	// ErrInvalidStatus is returned when a status value is outside active/pending/inactive
	ErrInvalidStatus = errors.New("invalid agent status")
)
