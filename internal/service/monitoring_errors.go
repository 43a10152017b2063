package service

import "errors"

var (
	// ErrActionLogInvalid marks an action event that is missing required fields.
	ErrActionLogInvalid = errors.New("invalid action log entry")
	// ErrStorageUnavailable wraps failures of the backing store during request-time operations.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrAggregationFailed wraps failures while counting actions over a window.
	ErrAggregationFailed = errors.New("aggregation failed")
	// ErrUnknownTimePeriod indicates a window label that is not configured.
	ErrUnknownTimePeriod = errors.New("unknown time period")
	// ErrMonitoredUserNotFound indicates the monitored user record does not exist.
	ErrMonitoredUserNotFound = errors.New("monitored user not found")
	// ErrMonitoredUserAlreadyResolved indicates a resolve attempt on an inactive record.
	ErrMonitoredUserAlreadyResolved = errors.New("monitored user already resolved")
	// ErrResolutionNotesRequired indicates an empty resolution note.
	ErrResolutionNotesRequired = errors.New("resolution notes are required")
)
