// internal/pipeline/intent/analyzer_test.go
package intent

import (
	"testing"

	"smartbuilding-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNodes() []models.Node {
	return []models.Node{
		{ID: "node-1", TenantID: "tenant-1", Name: "Luce Soggiorno", Kind: models.NodeLight, Room: "soggiorno", Online: true},
		{ID: "node-2", TenantID: "tenant-1", Name: "Luce Cucina", Kind: models.NodeLight, Room: "cucina", Online: true},
		{ID: "node-3", TenantID: "tenant-1", Name: "Sensore Temperatura", Kind: models.NodeSensor, Room: "soggiorno", Online: true},
	}
}

func testContext() Context {
	return Context{
		TenantID: "tenant-1",
		UserID:   "user-1",
		Nodes:    testNodes(),
	}
}

// ==========================
// Device Control Tests
// ==========================

func TestAnalyze_TurnOnLivingRoomLights(t *testing.T) {
	actions := Analyze("Accendi le luci del soggiorno", testContext())

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionIoTControl, actions[0].Type)
	assert.Equal(t, "node-1", actions[0].Params["node_id"])
	assert.Equal(t, "Luce Soggiorno", actions[0].Params["node_name"])
	assert.Equal(t, "on", actions[0].Params["state"])
}

func TestAnalyze_TurnOffKitchenLights(t *testing.T) {
	actions := Analyze("spegni la luce della cucina", testContext())

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionIoTControl, actions[0].Type)
	assert.Equal(t, "node-2", actions[0].Params["node_id"])
	assert.Equal(t, "off", actions[0].Params["state"])
}

func TestAnalyze_ControlWithoutMatchingNodeYieldsNothing(t *testing.T) {
	actions := Analyze("accendi la ventola del garage", testContext())

	assert.Empty(t, actions)
}

func TestAnalyze_SensorNodesAreNeverControllable(t *testing.T) {
	actions := Analyze("accendi il sensore temperatura", testContext())

	// "temperatura" also triggers a sensor read, but no control action may
	// target the sensor node.
	for _, a := range actions {
		assert.NotEqual(t, models.ActionIoTControl, a.Type)
	}
}

// ==========================
// Sensor Reading Tests
// ==========================

func TestAnalyze_TemperatureQuestion(t *testing.T) {
	actions := Analyze("Qual è la temperatura?", testContext())

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionSensorRead, actions[0].Type)
	assert.Equal(t, "temperature", actions[0].Params["sensor"])
}

func TestAnalyze_MultipleSensorsInOneUtterance(t *testing.T) {
	actions := Analyze("dimmi temperatura e umidità", testContext())

	require.Len(t, actions, 2)
	assert.Equal(t, "temperature", actions[0].Params["sensor"])
	assert.Equal(t, "humidity", actions[1].Params["sensor"])
}

// ==========================
// Other Category Tests
// ==========================

func TestAnalyze_SingleCategoryUtterances(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected models.ActionType
	}{
		{"bim conversion", "converti il modello", models.ActionBIMConversion},
		{"bim status", "stato della conversione", models.ActionBIMStatus},
		{"document list", "mostra i documenti", models.ActionDocumentList},
		{"document search", "cerca il certificato antincendio tra i documenti", models.ActionDocumentSearch},
		{"maintenance status", "stato delle manutenzioni", models.ActionMaintenanceStatus},
		{"maintenance create", "segnala un guasto in ascensore", models.ActionMaintenanceCreate},
		{"booking create", "prenota la sala riunioni", models.ActionBookingCreate},
		{"booking list", "le mie prenotazioni", models.ActionBookingList},
		{"system status", "stato del sistema", models.ActionSystemStatus},
		{"help", "aiuto", models.ActionHelp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions := Analyze(tt.text, testContext())

			require.NotEmpty(t, actions)
			assert.Equal(t, tt.expected, actions[0].Type)
		})
	}
}

func TestAnalyze_UrgentMaintenanceGetsHighPriority(t *testing.T) {
	actions := Analyze("segnala un guasto urgente alla caldaia", testContext())

	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionMaintenanceCreate, actions[0].Type)
	assert.Equal(t, "high", actions[0].Params["priority"])
}

func TestAnalyze_BookingResolvesKnownSpace(t *testing.T) {
	actions := Analyze("prenota la sala conferenze per il team", testContext())

	require.Len(t, actions, 1)
	assert.Equal(t, "Sala Conferenze", actions[0].Params["space"])
}

// ==========================
// Composition Tests
// ==========================

func TestAnalyze_CategoriesAreNonExclusive(t *testing.T) {
	actions := Analyze("accendi le luci del soggiorno e dimmi la temperatura", testContext())

	require.Len(t, actions, 2)
	// Table order fixes the action order: control first, then sensor read.
	assert.Equal(t, models.ActionIoTControl, actions[0].Type)
	assert.Equal(t, models.ActionSensorRead, actions[1].Type)
}

func TestAnalyze_NoMatchYieldsEmptyList(t *testing.T) {
	actions := Analyze("xyzzy frobnicate qwerty", testContext())

	assert.Empty(t, actions)
}

func TestAnalyze_IsDeterministic(t *testing.T) {
	first := Analyze("accendi le luci del soggiorno e dimmi la temperatura", testContext())
	second := Analyze("accendi le luci del soggiorno e dimmi la temperatura", testContext())

	assert.Equal(t, first, second)
}

// ==========================
// Token Matching Tests
// ==========================

func TestStemMatch(t *testing.T) {
	tests := []struct {
		a, b     string
		expected bool
	}{
		{"luce", "luci", true},
		{"porta", "porte", true},
		{"luce", "luce", true},
		{"luce", "cucina", false},
		{"sala", "sale", true},
		{"la", "le", false}, // short words must match exactly
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, stemMatch(tt.a, tt.b), "%s vs %s", tt.a, tt.b)
	}
}
