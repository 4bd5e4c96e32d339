package retrier

import "errors"

// Temporary indicates if an error condition is temporary and may succeed if retried.
// Accept errors such as EMFILE from net.Listener implement it.
type Temporary interface {
	Temporary() bool
}

// IsTemporary reports whether err, or any error it wraps, says it is temporary.
func IsTemporary(err error) bool {
	var temp Temporary
	if errors.As(err, &temp) {
		return temp.Temporary()
	}
	return false
}
