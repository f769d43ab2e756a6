// Package smtp provides the outgoing mail transport used by the
// notification sender.
package smtp

import "io"

// Client is the subset of an SMTP session the sender needs.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// TransportInterface abstracts the SMTP transport for testing.
type TransportInterface interface {
	Connect() (Client, error)
	GetSMTPUser() string
}
