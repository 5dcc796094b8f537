package main

import (
	"time"

	"github.com/arbengine/arbengine/internal/persistence"
)

// persistenceEvent builds an audit Event record for the events table.
func persistenceEvent(kind, pairID string, payload map[string]interface{}, ts time.Time) persistence.Event {
	return persistence.Event{Timestamp: ts, Kind: kind, PairID: pairID, Payload: payload}
}
