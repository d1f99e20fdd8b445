// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// EntitlementGrantedEvent is published whenever a grant is issued, by
// either redemption path or an administrator. It carries enough for
// downstream consumers (notification delivery, analytics) to act without
// querying the primary database. BatchID is zero for non-password grants.
type EntitlementGrantedEvent struct {
	UserID    uint64 `json:"user_id"`
	Source    string `json:"source"` // token | password | admin
	BatchID   uint64 `json:"batch_id,omitempty"`
	GrantedAt string `json:"granted_at"`
	ExpiresAt string `json:"expires_at"`
}
