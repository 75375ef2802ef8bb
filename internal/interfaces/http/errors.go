package httpinterface

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the only error code of the callback surface.
const ErrorCode = 1000

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrMissingAddress     = errors.New("missing listening address")
	ErrMissingOrders      = errors.New("missing order manager")
	ErrMissingStatus      = errors.New("missing order status handler")
	ErrMissingRegistry    = errors.New("missing asset registry")
	ErrMissingAckID       = errors.New("order status response must carry the settlement id")
	errUnexpectedFailure  = errors.New("unexpected failure")
	errUnsupportedPayload = fmt.Errorf("%w: body must be a JSON object", ErrInvalidRequest)
)

// HTTPError is the error envelope returned to the hub.
type HTTPError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e HTTPError) Error() string {
	return e.Msg
}

func newError(err error) HTTPError {
	return HTTPError{Code: ErrorCode, Msg: err.Error()}
}

func writeError(w http.ResponseWriter, err error, status int) {
	writeJSON(w, newError(err), status)
}

func writeSuccess(w http.ResponseWriter, data interface{}, status int) {
	writeJSON(w, data, status)
}

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	buf, _ := json.Marshal(data)
	//nolint
	w.Write(buf)
}
