// Package trace stores handling-unit (HU) trace events and resolves HU lineage from them.
package trace

import (
	"time"

	"github.com/angelmondragon/dispo-backend/pkg/db/models"
	"github.com/angelmondragon/dispo-backend/pkg/enums"
)

// Event is a single HU trace event. VHUID and EventTime together identify it.
type Event struct {
	VHUID              int64             `json:"vhu_id" validate:"required,gt=0"`
	VHUSourceID        int64             `json:"vhu_source_id,omitempty" validate:"gte=0"`
	TopLevelHUID       int64             `json:"top_level_hu_id,omitempty" validate:"gte=0"`
	EventTime          time.Time         `json:"event_time" validate:"required"`
	Type               enums.HUTraceType `json:"type" validate:"required"`
	DocTypeID          int64             `json:"doc_type_id,omitempty"`
	DocStatus          string            `json:"doc_status,omitempty" validate:"max=2"`
	InOutID            int64             `json:"in_out_id,omitempty"`
	MovementID         int64             `json:"movement_id,omitempty"`
	CostCollectorID    int64             `json:"cost_collector_id,omitempty"`
	ShipmentScheduleID int64             `json:"shipment_schedule_id,omitempty"`
}

// Query filters trace events. Zero fields are unset. A query without any filter matches
// nothing.
type Query struct {
	VHUID              int64
	VHUSourceID        int64
	TopLevelHUID       int64
	EventTime          time.Time
	Type               enums.HUTraceType
	DocTypeID          int64
	DocStatus          string
	InOutID            int64
	MovementID         int64
	CostCollectorID    int64
	ShipmentScheduleID int64
	RecursionMode      enums.RecursionMode
}

// IsEmpty reports whether no filter field is set. RecursionMode is not a filter.
func (q Query) IsEmpty() bool {
	return q.VHUID <= 0 &&
		q.VHUSourceID <= 0 &&
		q.TopLevelHUID <= 0 &&
		q.EventTime.IsZero() &&
		q.Type == "" &&
		q.DocTypeID <= 0 &&
		q.DocStatus == "" &&
		q.InOutID <= 0 &&
		q.MovementID <= 0 &&
		q.CostCollectorID <= 0 &&
		q.ShipmentScheduleID <= 0
}

// Mode returns the recursion mode, defaulting to NONE.
func (q Query) Mode() enums.RecursionMode {
	if q.RecursionMode == "" {
		return enums.RecursionModeNone
	}
	return q.RecursionMode
}

// QueryForEvent is the identity query used to upsert an event.
func QueryForEvent(event Event) Query {
	return Query{VHUID: event.VHUID, EventTime: event.EventTime}
}

// Record is a stored event together with its stable identity.
type Record struct {
	ID int64 `json:"id"`
	Event
}

// ToRecord maps a stored row.
func ToRecord(row models.HUTrace) Record {
	return Record{
		ID: row.ID,
		Event: Event{
			VHUID:              row.VHUID,
			VHUSourceID:        row.VHUSourceID,
			TopLevelHUID:       row.TopLevelHUID,
			EventTime:          row.EventTime,
			Type:               row.Type,
			DocTypeID:          row.DocTypeID,
			DocStatus:          row.DocStatus,
			InOutID:            row.InOutID,
			MovementID:         row.MovementID,
			CostCollectorID:    row.CostCollectorID,
			ShipmentScheduleID: row.ShipmentScheduleID,
		},
	}
}

// applyEvent copies every event field onto the row, leaving identity and bookkeeping alone.
func applyEvent(row *models.HUTrace, event Event) {
	row.VHUID = event.VHUID
	row.VHUSourceID = event.VHUSourceID
	row.TopLevelHUID = event.TopLevelHUID
	row.EventTime = event.EventTime
	row.Type = event.Type
	row.DocTypeID = event.DocTypeID
	row.DocStatus = event.DocStatus
	row.InOutID = event.InOutID
	row.MovementID = event.MovementID
	row.CostCollectorID = event.CostCollectorID
	row.ShipmentScheduleID = event.ShipmentScheduleID
	row.IsActive = true
}
