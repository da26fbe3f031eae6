// Package gate enforces the single-owner access policy. The bot manages
// one person's calendar; every other sender is an intruder.
package gate

import "fmt"

// DeniedError is returned when a sender is not the authorized identity.
// It carries the offending sender ID for the intrusion alert.
type DeniedError struct {
	SenderID string
}

// Error implements the error interface.
func (e *DeniedError) Error() string {
	return fmt.Sprintf("sender %s is not authorized", e.SenderID)
}

// Gate validates senders against the single authorized identity fixed at
// startup. Comparison is exact-match; there is no caching, no pattern
// matching, and no bypass.
type Gate struct {
	authorized string
}

// New creates a Gate for the given authorized sender ID.
func New(authorizedID string) *Gate {
	return &Gate{authorized: authorizedID}
}

// Authorize returns nil when senderID is the authorized identity, and a
// *DeniedError otherwise. It performs no side effects; alerting and
// logging on denial are the caller's responsibility.
func (g *Gate) Authorize(senderID string) error {
	if senderID == g.authorized {
		return nil
	}
	return &DeniedError{SenderID: senderID}
}

// AuthorizedID returns the configured authorized identity.
func (g *Gate) AuthorizedID() string {
	return g.authorized
}
