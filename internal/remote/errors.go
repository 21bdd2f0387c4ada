package remote

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Transport-level failures. These mean the remote's verdict is unknown
// and the caller must take the offline path; only RemoteError carries
// an actual verdict.
var (
	ErrNetwork     = errors.New("remote unreachable")
	ErrTimeout     = errors.New("remote timed out")
	ErrBadResponse = errors.New("remote sent an unparseable response")
)

// RemoteError is a definitive non-2xx answer from the remote. The body
// is kept verbatim: the attendance flow matches substrings of it to
// tell schedule rejections from hard ones.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote returned %d: %s", e.StatusCode, e.Body)
}

// Unreachable reports whether err is a transport failure rather than a
// remote verdict.
func Unreachable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrTimeout)
}

// PolicyReject reports whether err is the remote refusing an
// attendance event on schedule grounds. These are the only rejections
// an assistant may override.
func PolicyReject(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) || re.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(re.Body, "not allowed on") ||
		strings.Contains(re.Body, "Group schedule")
}

// Blacklisted reports whether err is the remote refusing a student
// registration because the student is blacklisted. Only 4xx answers
// qualify: a 5xx mentioning the word is a server fault, not a verdict.
func Blacklisted(err error) bool {
	var re *RemoteError
	if !errors.As(err, &re) {
		return false
	}
	if re.StatusCode < http.StatusBadRequest || re.StatusCode >= http.StatusInternalServerError {
		return false
	}
	return strings.Contains(re.Body, "blacklist")
}
