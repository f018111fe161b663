package prospects

import "errors"

var (
	// ErrProspectNotFound is returned when the referenced prospect id does not exist
	ErrProspectNotFound = errors.New("prospect not found")

	// ErrUnowned is returned when a disposition targets an unassigned prospect
	ErrUnowned = errors.New("prospect is not assigned to any agent")

	// ErrNotOwner is returned when a caller records a call on someone else's prospect
	ErrNotOwner = errors.New("prospect is owned by another agent")

	// ErrInvalidOutcome is returned for an outcome outside the four call results
	ErrInvalidOutcome = errors.New("invalid call outcome")

	// ErrMissingField is returned when a required outcome-conditional field is absent
	ErrMissingField = errors.New("missing required field")

	// ErrAlreadyAssigned is returned when bulk assignment hits an owned prospect
	ErrAlreadyAssigned = errors.New("prospect already assigned")

	// ErrInvalidTarget is returned when an assignment references a missing
	// prospect, a missing agent, an inactive agent, or an empty id set
	ErrInvalidTarget = errors.New("invalid assignment target")

	// ErrConflict is returned when a concurrent write raced on the same
	// prospect; callers retry with the refreshed record
	ErrConflict = errors.New("concurrent modification conflict")
)
