package outbox

import (
	"encoding/json"
	"time"
)

// Origin identifies the ERP client/organization that produced the event.
type Origin struct {
	ClientID int64 `json:"clientId"`
	OrgID    int64 `json:"orgId"`
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Origin     *Origin         `json:"origin,omitempty"`
	Data       json.RawMessage `json:"data"`
}
