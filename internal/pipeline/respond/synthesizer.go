// internal/pipeline/respond/synthesizer.go
package respond

import (
	"fmt"
	"strings"

	"smartbuilding-workers/internal/models"
)

// NotRecognized is the reply for commands that matched no category.
const NotRecognized = "Non ho riconosciuto il comando. Dì \"aiuto\" per l'elenco dei comandi disponibili."

const separator = " "

// Render turns an ordered list of action results into one reply string.
// Pure function of (type, success, payload): the same input list always
// yields the same string.
func Render(results []models.ActionResult) string {
	if len(results) == 0 {
		return NotRecognized
	}

	fragments := make([]string, 0, len(results))
	for _, r := range results {
		fragments = append(fragments, renderFragment(r))
	}
	return strings.Join(fragments, separator)
}

func renderFragment(r models.ActionResult) string {
	if !r.OK {
		return fmt.Sprintf("Non sono riuscito a eseguire l'azione %s: %s.", r.Action.Type, r.Error)
	}
	if isDuplicate(r.Payload) {
		return "Richiesta già elaborata in un tentativo precedente."
	}

	switch r.Action.Type {
	case models.ActionIoTControl:
		verb := "acceso"
		if asString(r.Payload["state"]) == "off" {
			verb = "spento"
		}
		return fmt.Sprintf("Ho %s %s.", verb, asString(r.Payload["nodeName"]))

	case models.ActionBIMConversion:
		return fmt.Sprintf("Conversione del modello avviata (job %s).", asString(r.Payload["jobId"]))

	case models.ActionBIMStatus:
		if asString(r.Payload["status"]) == "none" {
			return "Nessuna conversione trovata."
		}
		return fmt.Sprintf("La conversione di %s è %s (%v%%).",
			asString(r.Payload["target"]), asString(r.Payload["status"]), r.Payload["progress"])

	case models.ActionDocumentList:
		count := asInt(r.Payload["count"])
		if count == 0 {
			return "Nessun documento in archivio."
		}
		return fmt.Sprintf("Ci sono %d documenti disponibili: %s.", count, joinNames(r.Payload["names"]))

	case models.ActionDocumentSearch:
		count := asInt(r.Payload["count"])
		if count == 0 {
			return "Nessun documento corrisponde alla ricerca."
		}
		return fmt.Sprintf("Ho trovato %d documenti: %s.", count, joinNames(r.Payload["names"]))

	case models.ActionMaintenanceStatus:
		return fmt.Sprintf("Manutenzioni: %d aperte, %d in corso, %d chiuse.",
			asInt(r.Payload["open"]), asInt(r.Payload["inProgress"]), asInt(r.Payload["closed"]))

	case models.ActionMaintenanceCreate:
		return fmt.Sprintf("Ho aperto la segnalazione di manutenzione %s.", asString(r.Payload["requestId"]))

	case models.ActionBookingCreate:
		return fmt.Sprintf("Ho prenotato %s a partire dalle %s.",
			asString(r.Payload["space"]), asString(r.Payload["startsAt"]))

	case models.ActionBookingList:
		count := asInt(r.Payload["count"])
		if count == 0 {
			return "Non hai prenotazioni in programma."
		}
		return fmt.Sprintf("Hai %d prenotazioni: %s.", count, joinNames(r.Payload["bookings"]))

	case models.ActionSensorRead:
		return sensorFragment(r.Payload)

	case models.ActionSystemStatus:
		return fmt.Sprintf("Sistema operativo: %d dispositivi su %d online.",
			asInt(r.Payload["online"]), asInt(r.Payload["nodes"]))

	case models.ActionHelp:
		return "Posso aiutarti con: " + joinNames(r.Payload["commands"]) + "."
	}

	// Unreachable for the closed action set; keep the reply well-formed
	// anyway.
	return fmt.Sprintf("Azione %s eseguita.", r.Action.Type)
}

func sensorFragment(payload map[string]interface{}) string {
	value := fmt.Sprintf("%v %s", payload["value"], asString(payload["unit"]))
	switch asString(payload["sensor"]) {
	case "temperature":
		return fmt.Sprintf("La temperatura attuale è %s.", value)
	case "humidity":
		return fmt.Sprintf("L'umidità attuale è %s.", value)
	case "air_quality":
		return fmt.Sprintf("La qualità dell'aria è %s.", value)
	}
	return fmt.Sprintf("Lettura sensore: %s.", value)
}

func isDuplicate(payload map[string]interface{}) bool {
	dup, _ := payload["duplicate"].(bool)
	return dup
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func joinNames(v interface{}) string {
	names, _ := v.([]string)
	return strings.Join(names, ", ")
}
