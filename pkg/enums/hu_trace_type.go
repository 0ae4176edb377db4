package enums

import "fmt"

// HUTraceType maps to the hu_trace_type column of hu_traces.
type HUTraceType string

const (
	HUTraceTypeMaterialShipment  HUTraceType = "MATERIAL_SHIPMENT"
	HUTraceTypeMaterialReceipt   HUTraceType = "MATERIAL_RECEIPT"
	HUTraceTypeMaterialMovement  HUTraceType = "MATERIAL_MOVEMENT"
	HUTraceTypeMaterialPicking   HUTraceType = "MATERIAL_PICKING"
	HUTraceTypeProductionIssue   HUTraceType = "PRODUCTION_ISSUE"
	HUTraceTypeProductionReceipt HUTraceType = "PRODUCTION_RECEIPT"
	HUTraceTypeTransformLoad     HUTraceType = "TRANSFORM_LOAD"
	HUTraceTypeTransformParent   HUTraceType = "TRANSFORM_PARENT"
)

var validHUTraceTypes = []HUTraceType{
	HUTraceTypeMaterialShipment,
	HUTraceTypeMaterialReceipt,
	HUTraceTypeMaterialMovement,
	HUTraceTypeMaterialPicking,
	HUTraceTypeProductionIssue,
	HUTraceTypeProductionReceipt,
	HUTraceTypeTransformLoad,
	HUTraceTypeTransformParent,
}

// IsValid reports whether the value matches a known trace type.
func (t HUTraceType) IsValid() bool {
	for _, candidate := range validHUTraceTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseHUTraceType converts raw input into HUTraceType.
func ParseHUTraceType(value string) (HUTraceType, error) {
	for _, candidate := range validHUTraceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid hu trace type %q", value)
}
