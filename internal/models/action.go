// internal/models/action.go
package models

// ActionType is the closed set of domain operations the intent analyzer
// can produce. The dispatcher registers exactly one handler per type.
type ActionType string

const (
	ActionIoTControl        ActionType = "iot_control"
	ActionBIMConversion     ActionType = "bim_conversion"
	ActionBIMStatus         ActionType = "bim_status"
	ActionDocumentList      ActionType = "document_list"
	ActionDocumentSearch    ActionType = "document_search"
	ActionMaintenanceStatus ActionType = "maintenance_status"
	ActionMaintenanceCreate ActionType = "maintenance_create"
	ActionBookingCreate     ActionType = "booking_create"
	ActionBookingList       ActionType = "booking_list"
	ActionSensorRead        ActionType = "sensor_read"
	ActionSystemStatus      ActionType = "system_status"
	ActionHelp              ActionType = "help"
)

// AllActionTypes lists the closed set in declaration order.
var AllActionTypes = []ActionType{
	ActionIoTControl,
	ActionBIMConversion,
	ActionBIMStatus,
	ActionDocumentList,
	ActionDocumentSearch,
	ActionMaintenanceStatus,
	ActionMaintenanceCreate,
	ActionBookingCreate,
	ActionBookingList,
	ActionSensorRead,
	ActionSystemStatus,
	ActionHelp,
}

// Action is an in-memory, non-persisted request to perform one domain
// operation, produced by intent analysis.
type Action struct {
	Type        ActionType        `json:"type"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

// ActionResult pairs an Action with its execution outcome. Transient,
// used only to build the response text.
type ActionResult struct {
	Action  Action                 `json:"action"`
	OK      bool                   `json:"ok"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
