// Package notify carries user-facing transient notifications out of the
// engines. Every mutating action produces exactly one of success or error,
// never both, after its loading indicator is dismissed.
package notify

import "log"

// Notifier is the sink for transient user notifications.
type Notifier interface {
	// Loading shows an in-progress indicator and returns its dismissal.
	Loading(message string) (dismiss func())
	Success(message string)
	Error(message string)
}

// Log writes notifications to the standard logger. It is the default sink when
// no UI is attached.
type Log struct{}

var _ Notifier = Log{}

func (Log) Loading(message string) func() {
	log.Printf("notify: %s", message)
	return func() {}
}

func (Log) Success(message string) {
	log.Printf("notify: success: %s", message)
}

func (Log) Error(message string) {
	log.Printf("notify: error: %s", message)
}
