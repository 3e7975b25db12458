package model

// Notifier defines a generic interface for delivering alert notifications.
type Notifier interface {
	Send(subject, body string) error
}
