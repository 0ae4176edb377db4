package models

import (
	"time"

	"github.com/angelmondragon/dispo-backend/pkg/enums"
)

// HUTrace is one recorded handling-unit event. Rows are identified by (vhu_id, event_time)
// for upserts; ID is the stable surrogate used for ordering and dedup.
type HUTrace struct {
	ID                 int64             `gorm:"column:id;primaryKey;autoIncrement"`
	VHUID              int64             `gorm:"column:vhu_id;not null;uniqueIndex:ux_hu_traces_vhu_event_time,where:is_active"`
	VHUSourceID        int64             `gorm:"column:vhu_source_id;not null;default:0;index"`
	TopLevelHUID       int64             `gorm:"column:top_level_hu_id;not null;default:0"`
	EventTime          time.Time         `gorm:"column:event_time;not null;uniqueIndex:ux_hu_traces_vhu_event_time,where:is_active"`
	Type               enums.HUTraceType `gorm:"column:hu_trace_type;type:varchar(40);not null"`
	DocTypeID          int64             `gorm:"column:doc_type_id;not null;default:0"`
	DocStatus          string            `gorm:"column:doc_status;type:varchar(2);not null;default:''"`
	InOutID            int64             `gorm:"column:in_out_id;not null;default:0"`
	MovementID         int64             `gorm:"column:movement_id;not null;default:0"`
	CostCollectorID    int64             `gorm:"column:cost_collector_id;not null;default:0"`
	ShipmentScheduleID int64             `gorm:"column:shipment_schedule_id;not null;default:0"`
	IsActive           bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (HUTrace) TableName() string { return "hu_traces" }
