// internal/models/node.go
package models

// NodeKind classifies IoT nodes for target resolution.
type NodeKind string

const (
	NodeLight      NodeKind = "light"
	NodeSwitch     NodeKind = "switch"
	NodeThermostat NodeKind = "thermostat"
	NodeSensor     NodeKind = "sensor"
)

// Node is an IoT device registered for a tenant's building.
type Node struct {
	ID       string
	TenantID string
	Name     string
	Kind     NodeKind
	Room     string
	Online   bool
}

// Controllable reports whether the node accepts on/off commands.
func (n Node) Controllable() bool {
	switch n.Kind {
	case NodeLight, NodeSwitch, NodeThermostat:
		return true
	}
	return false
}
