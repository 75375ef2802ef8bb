package hubrest

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingHubURL ...
	ErrMissingHubURL = errors.New("missing hub url")
	// ErrMissingCallbackURL ...
	ErrMissingCallbackURL = errors.New("missing callback url")
	// ErrHubUnreachable is the kind of HubError returned if the request could
	// not be delivered, including when the circuit breaker is open.
	ErrHubUnreachable = errors.New("hub is unreachable")
	// ErrHubRejected is the kind of HubError returned for non-2xx responses.
	ErrHubRejected = errors.New("hub rejected the request")
)

// HubError describes a failed call to the hub.
type HubError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	// Err is either ErrHubUnreachable or ErrHubRejected.
	Err   error
	Cause error

	body []byte
}

func (e *HubError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf(
			"%s %s: %s: status %d: %s", e.Op, e.URL, e.Err, e.StatusCode, e.Body,
		)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Op, e.URL, e.Err, e.Cause)
}

func (e *HubError) Unwrap() error {
	return e.Err
}

func (e *HubError) hasJSONBody() bool {
	return len(e.body) > 0 && json.Valid(e.body)
}
