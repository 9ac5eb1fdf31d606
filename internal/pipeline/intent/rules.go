// internal/pipeline/intent/rules.go
package intent

import (
	"fmt"

	"smartbuilding-workers/internal/models"
)

// rule pairs a category predicate with its action builder. The table is
// evaluated top to bottom; the resulting action order is part of the
// pipeline contract.
type rule struct {
	category models.ActionType
	match    func(u *utterance) bool
	build    func(u *utterance, rctx Context) []models.Action
}

var rules = []rule{
	{models.ActionIoTControl, matchIoTControl, buildIoTControl},
	{models.ActionBIMConversion, matchBIMConversion, buildBIMConversion},
	{models.ActionBIMStatus, matchBIMStatus, buildBIMStatus},
	{models.ActionDocumentList, matchDocumentList, buildDocumentList},
	{models.ActionDocumentSearch, matchDocumentSearch, buildDocumentSearch},
	{models.ActionMaintenanceStatus, matchMaintenanceStatus, buildMaintenanceStatus},
	{models.ActionMaintenanceCreate, matchMaintenanceCreate, buildMaintenanceCreate},
	{models.ActionBookingCreate, matchBookingCreate, buildBookingCreate},
	{models.ActionBookingList, matchBookingList, buildBookingList},
	{models.ActionSensorRead, matchSensorRead, buildSensorRead},
	{models.ActionSystemStatus, matchSystemStatus, buildSystemStatus},
	{models.ActionHelp, matchHelp, buildHelp},
}

// --- iot_control ---

var (
	turnOnWords  = []string{"accendi", "accendere", "attiva", "attivare"}
	turnOffWords = []string{"spegni", "spegnere", "disattiva", "disattivare"}
)

func wantsOn(u *utterance) bool {
	return u.hasAny(turnOnWords...) || u.hasPhrase("turn on") || u.hasPhrase("switch on")
}

func wantsOff(u *utterance) bool {
	return u.hasAny(turnOffWords...) || u.hasPhrase("turn off") || u.hasPhrase("switch off")
}

func matchIoTControl(u *utterance) bool {
	return wantsOn(u) || wantsOff(u)
}

// buildIoTControl resolves the candidate nodes for the utterance. No
// matching controllable node means zero actions, not an error.
func buildIoTControl(u *utterance, rctx Context) []models.Action {
	var states []string
	if wantsOn(u) {
		states = append(states, "on")
	}
	if wantsOff(u) {
		states = append(states, "off")
	}

	var actions []models.Action
	for _, state := range states {
		for _, n := range rctx.Nodes {
			if !n.Controllable() || !u.matchesNode(n) {
				continue
			}
			actions = append(actions, models.Action{
				Type:        models.ActionIoTControl,
				Description: fmt.Sprintf("Turn %s %q", state, n.Name),
				Params: map[string]string{
					"node_id":   n.ID,
					"node_name": n.Name,
					"state":     state,
				},
			})
		}
	}
	return actions
}

// --- bim_conversion ---

func matchBIMConversion(u *utterance) bool {
	return u.hasAny("converti", "convertire", "convert") ||
		u.hasPhrase("avvia la conversione") || u.hasPhrase("start conversion")
}

func buildBIMConversion(u *utterance, rctx Context) []models.Action {
	target := rctx.NodeID
	if target == "" {
		target = "latest"
	}
	return []models.Action{{
		Type:        models.ActionBIMConversion,
		Description: fmt.Sprintf("Start BIM conversion for %q", target),
		Params:      map[string]string{"target": target},
	}}
}

// --- bim_status ---

func matchBIMStatus(u *utterance) bool {
	return u.hasAnyPhrase("stato della conversione", "conversion status", "avanzamento della conversione") ||
		(u.hasAny("conversione", "conversioni") && u.hasAny("stato", "avanzamento", "status"))
}

func buildBIMStatus(_ *utterance, _ Context) []models.Action {
	return []models.Action{{
		Type:        models.ActionBIMStatus,
		Description: "Report latest BIM conversion status",
	}}
}

// --- document_list ---

func matchDocumentList(u *utterance) bool {
	return (u.hasAny("elenco", "lista", "mostra", "mostrami", "list", "show") &&
		u.hasAny("documenti", "documento", "documents")) ||
		u.hasPhrase("documenti disponibili")
}

func buildDocumentList(_ *utterance, _ Context) []models.Action {
	return []models.Action{{
		Type:        models.ActionDocumentList,
		Description: "List archived documents",
	}}
}

// --- document_search ---

func matchDocumentSearch(u *utterance) bool {
	return u.hasAny("cerca", "trova", "search", "find") &&
		u.hasAny("documento", "documenti", "document", "documents",
			"planimetria", "planimetrie", "certificato", "certificati", "manuale", "manuali")
}

func buildDocumentSearch(u *utterance, _ Context) []models.Action {
	return []models.Action{{
		Type:        models.ActionDocumentSearch,
		Description: "Search archived documents",
		Params:      map[string]string{"query": u.text},
	}}
}

// --- maintenance_status ---

func matchMaintenanceStatus(u *utterance) bool {
	return u.hasAnyPhrase("richieste di manutenzione", "maintenance status", "interventi aperti") ||
		(u.hasAny("manutenzione", "manutenzioni", "maintenance") &&
			u.hasAny("stato", "status", "aperte", "aperti"))
}

func buildMaintenanceStatus(_ *utterance, _ Context) []models.Action {
	return []models.Action{{
		Type:        models.ActionMaintenanceStatus,
		Description: "Summarize maintenance requests",
	}}
}

// --- maintenance_create ---

func matchMaintenanceCreate(u *utterance) bool {
	return u.hasAny("guasto", "guasta", "rotto", "rotta", "riparare", "segnala", "segnalare", "broken", "repair") ||
		u.hasPhrase("non funziona")
}

func buildMaintenanceCreate(u *utterance, _ Context) []models.Action {
	priority := "normal"
	if u.hasAny("urgente", "urgent", "subito") {
		priority = "high"
	}
	return []models.Action{{
		Type:        models.ActionMaintenanceCreate,
		Description: "Open a maintenance request",
		Params: map[string]string{
			"description": u.text,
			"priority":    priority,
		},
	}}
}

// --- booking_create ---

// knownSpaces maps utterance phrases to bookable space names, checked in
// order so the reported space is deterministic.
var knownSpaces = []struct {
	phrase string
	space  string
}{
	{"sala riunioni", "Sala Riunioni"},
	{"sala conferenze", "Sala Conferenze"},
	{"meeting room", "Sala Riunioni"},
	{"palestra", "Palestra"},
	{"cortile", "Cortile"},
}

func matchBookingCreate(u *utterance) bool {
	return u.hasAny("prenota", "prenotami", "prenotare", "book", "riserva", "riservare")
}

func buildBookingCreate(u *utterance, _ Context) []models.Action {
	space := "Sala Riunioni"
	for _, s := range knownSpaces {
		if u.hasPhrase(s.phrase) {
			space = s.space
			break
		}
	}
	return []models.Action{{
		Type:        models.ActionBookingCreate,
		Description: fmt.Sprintf("Book %q", space),
		Params:      map[string]string{"space": space},
	}}
}

// --- booking_list ---

func matchBookingList(u *utterance) bool {
	return u.hasAny("prenotazioni", "bookings") ||
		u.hasAnyPhrase("le mie prenotazioni", "my bookings")
}

func buildBookingList(_ *utterance, _ Context) []models.Action {
	return []models.Action{{
		Type:        models.ActionBookingList,
		Description: "List upcoming bookings",
	}}
}

// --- sensor_read ---

// sensorKinds is ordered so multi-sensor utterances produce a stable
// action sequence.
var sensorKinds = []struct {
	kind  string
	words []string
}{
	{"temperature", []string{"temperatura", "temperature", "gradi"}},
	{"humidity", []string{"umidita", "umidità", "humidity"}},
	{"air_quality", []string{"aria", "co2", "air"}},
}

func matchSensorRead(u *utterance) bool {
	for _, s := range sensorKinds {
		if u.hasAny(s.words...) {
			return true
		}
	}
	return false
}

func buildSensorRead(u *utterance, _ Context) []models.Action {
	var actions []models.Action
	for _, s := range sensorKinds {
		if u.hasAny(s.words...) {
			actions = append(actions, models.Action{
				Type:        models.ActionSensorRead,
				Description: fmt.Sprintf("Read %s sensor", s.kind),
				Params:      map[string]string{"sensor": s.kind},
			})
		}
	}
	return actions
}

// --- system_status ---

func matchSystemStatus(u *utterance) bool {
	return u.hasAnyPhrase("stato del sistema", "system status", "stato generale", "stato dell edificio") ||
		(u.has("stato") && u.hasAny("sistema", "edificio", "casa"))
}

func buildSystemStatus(_ *utterance, _ Context) []models.Action {
	return []models.Action{{
		Type:        models.ActionSystemStatus,
		Description: "Report overall system status",
	}}
}

// --- help ---

func matchHelp(u *utterance) bool {
	return u.hasAny("aiuto", "help") ||
		u.hasAnyPhrase("cosa puoi fare", "comandi disponibili")
}

func buildHelp(_ *utterance, _ Context) []models.Action {
	return []models.Action{{
		Type:        models.ActionHelp,
		Description: "List available commands",
	}}
}
