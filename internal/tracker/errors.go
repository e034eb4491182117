package tracker

import "errors"

// Logical errors. Their messages are part of the wire contract.
var (
	ErrRequiredFieldsMissing = errors.New("required field(s) missing")
	ErrMissingID             = errors.New("missing _id")
	ErrNoUpdateFields        = errors.New("no update field(s) sent")
	ErrCouldNotUpdate        = errors.New("could not update")
	ErrCouldNotDelete        = errors.New("could not delete")
	ErrIssueNotFound         = errors.New("issue not found")
)

var logical = []error{
	ErrRequiredFieldsMissing,
	ErrMissingID,
	ErrNoUpdateFields,
	ErrCouldNotUpdate,
	ErrCouldNotDelete,
	ErrIssueNotFound,
}

// IsLogical reports whether err is one of the logical errors above, as
// opposed to an infrastructure failure.
func IsLogical(err error) bool {
	for _, target := range logical {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Response is the body returned by update and delete, and by any logical
// error. Field order is fixed: callers compare bodies byte-for-byte.
type Response struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ID     string `json:"_id,omitempty"`
}

// ErrorResponse builds the error body for err. The id is echoed for every
// error except a missing id or missing required fields.
func ErrorResponse(id string, err error) Response {
	for _, target := range logical {
		if errors.Is(err, target) {
			err = target
			break
		}
	}
	resp := Response{Error: err.Error()}
	if !errors.Is(err, ErrMissingID) && !errors.Is(err, ErrRequiredFieldsMissing) {
		resp.ID = id
	}
	return resp
}
