package models

import "time"

// Snapshot is a read-only view of a report session for rendering.
type Snapshot struct {
	SessionID    string    `json:"sessionId" msgpack:"sessionId"`
	Slots        []Slot    `json:"slots" msgpack:"slots"`
	Pipeline     Pipeline  `json:"pipeline" msgpack:"pipeline"`
	Artifact     *Artifact `json:"artifact,omitempty" msgpack:"artifact,omitempty"`
	ResetPending bool      `json:"resetPending" msgpack:"resetPending"`
	UpdatedAt    time.Time `json:"updatedAt" msgpack:"updatedAt"`
}
