// Package movementsensor holds helpers shared by the movement sensor drivers.
package movementsensor

import (
	"sync"
)

// LastError stores recent results of a polling loop. Once enough of the most recent results are
// errors, the newest one is handed back to the caller.
type LastError struct {
	size      int // how many recent results are remembered
	threshold int // how many of them must be errors before Get reports one

	mu    sync.Mutex
	errs  []error // recent results, oldest to newest; nil entries are successes
	count int     // non-nil entries in errs
}

// NewLastError creates a LastError which reports the most recent error once at least
// `threshold` of the last `size` results were errors.
func NewLastError(size, threshold int) *LastError {
	return &LastError{size: size, threshold: threshold, errs: make([]error, size)}
}

// Set records the result of one poll. A nil err records a success.
func (le *LastError) Set(err error) {
	le.mu.Lock()
	defer le.mu.Unlock()

	if le.errs[0] != nil {
		le.count--
	}
	if err != nil {
		le.count++
	}
	le.errs = append(le.errs[1:], err)
}

// Get returns the newest error if the threshold has been reached, and forgets all stored
// results so the same error is not returned twice.
func (le *LastError) Get() error {
	le.mu.Lock()
	defer le.mu.Unlock()

	if le.count < le.threshold || le.count == 0 {
		return nil
	}

	var newest error
	for i := len(le.errs) - 1; i >= 0; i-- {
		if le.errs[i] != nil {
			newest = le.errs[i]
			break
		}
	}

	le.errs = make([]error, le.size)
	le.count = 0
	return newest
}
