// internal/pipeline/dispatch/handlers.go
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartbuilding-workers/internal/common/logger"
	"smartbuilding-workers/internal/conversion"
	"smartbuilding-workers/internal/models"
	"smartbuilding-workers/internal/store"
)

const listLimit = 10

// RegisterAll binds one handler per action type in the closed set.
func RegisterAll(
	d *Dispatcher,
	nodes store.NodeStore,
	documents store.DocumentStore,
	maintenance store.MaintenanceStore,
	bookings store.BookingStore,
	conversions store.ConversionStore,
	trigger conversion.Trigger,
	log logger.Logger,
) {
	d.Register(models.ActionIoTControl, &IoTControlHandler{logger: log})
	d.Register(models.ActionBIMConversion, &BIMConversionHandler{trigger: trigger})
	d.Register(models.ActionBIMStatus, &BIMStatusHandler{conversions: conversions})
	d.Register(models.ActionDocumentList, &DocumentListHandler{documents: documents})
	d.Register(models.ActionDocumentSearch, &DocumentSearchHandler{documents: documents})
	d.Register(models.ActionMaintenanceStatus, &MaintenanceStatusHandler{maintenance: maintenance})
	d.Register(models.ActionMaintenanceCreate, &MaintenanceCreateHandler{maintenance: maintenance})
	d.Register(models.ActionBookingCreate, &BookingCreateHandler{bookings: bookings})
	d.Register(models.ActionBookingList, &BookingListHandler{bookings: bookings})
	d.Register(models.ActionSensorRead, &SensorReadHandler{})
	d.Register(models.ActionSystemStatus, &SystemStatusHandler{nodes: nodes})
	d.Register(models.ActionHelp, &HelpHandler{})
}

// IoTControlHandler simulates device control: the platform's device bus
// is not wired into this core, so the handler acknowledges the switch.
type IoTControlHandler struct {
	logger logger.Logger
}

func (h *IoTControlHandler) Execute(_ context.Context, _ *models.CommandEnvelope, action models.Action) (map[string]interface{}, error) {
	nodeName := action.Params["node_name"]
	state := action.Params["state"]
	if nodeName == "" || (state != "on" && state != "off") {
		return nil, fmt.Errorf("malformed iot_control params: %v", action.Params)
	}

	h.logger.Info("device control simulated", map[string]interface{}{
		"nodeId": action.Params["node_id"],
		"state":  state,
	})
	return map[string]interface{}{
		"nodeId":   action.Params["node_id"],
		"nodeName": nodeName,
		"state":    state,
	}, nil
}

// BIMConversionHandler enqueues a long-running conversion job.
type BIMConversionHandler struct {
	trigger conversion.Trigger
}

func (h *BIMConversionHandler) Execute(ctx context.Context, env *models.CommandEnvelope, action models.Action) (map[string]interface{}, error) {
	if h.trigger == nil {
		return nil, errors.New("conversion pipeline not configured")
	}

	target := action.Params["target"]
	jobID, err := h.trigger.Start(ctx, env.TenantID, target)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"jobId":  jobID,
		"target": target,
	}, nil
}

// BIMStatusHandler reports the tenant's latest conversion job.
type BIMStatusHandler struct {
	conversions store.ConversionStore
}

func (h *BIMStatusHandler) Execute(ctx context.Context, env *models.CommandEnvelope, _ models.Action) (map[string]interface{}, error) {
	job, err := h.conversions.Latest(ctx, env.TenantID)
	if errors.Is(err, store.ErrNoConversions) {
		return map[string]interface{}{"status": "none"}, nil
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"jobId":    job.ID,
		"target":   job.TargetID,
		"status":   job.Status,
		"progress": job.Progress,
	}, nil
}

type DocumentListHandler struct {
	documents store.DocumentStore
}

func (h *DocumentListHandler) Execute(ctx context.Context, env *models.CommandEnvelope, _ models.Action) (map[string]interface{}, error) {
	docs, err := h.documents.List(ctx, env.TenantID, listLimit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"count": len(docs),
		"names": documentNames(docs),
	}, nil
}

type DocumentSearchHandler struct {
	documents store.DocumentStore
}

func (h *DocumentSearchHandler) Execute(ctx context.Context, env *models.CommandEnvelope, action models.Action) (map[string]interface{}, error) {
	query := action.Params["query"]
	docs, err := h.documents.Search(ctx, env.TenantID, query, listLimit)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"query": query,
		"count": len(docs),
		"names": documentNames(docs),
	}, nil
}

func documentNames(docs []models.Document) []string {
	names := make([]string, 0, len(docs))
	for _, d := range docs {
		names = append(names, d.Name)
	}
	return names
}

type MaintenanceStatusHandler struct {
	maintenance store.MaintenanceStore
}

func (h *MaintenanceStatusHandler) Execute(ctx context.Context, env *models.CommandEnvelope, _ models.Action) (map[string]interface{}, error) {
	counts, err := h.maintenance.CountByStatus(ctx, env.TenantID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"open":       counts.Open,
		"inProgress": counts.InProgress,
		"closed":     counts.Closed,
	}, nil
}

type MaintenanceCreateHandler struct {
	maintenance store.MaintenanceStore
}

func (h *MaintenanceCreateHandler) Execute(ctx context.Context, env *models.CommandEnvelope, action models.Action) (map[string]interface{}, error) {
	id, err := h.maintenance.Create(ctx, models.MaintenanceRequest{
		TenantID:    env.TenantID,
		UserID:      env.UserID,
		Description: action.Params["description"],
		Priority:    action.Params["priority"],
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"requestId": id,
		"priority":  action.Params["priority"],
	}, nil
}

type BookingCreateHandler struct {
	bookings store.BookingStore
}

func (h *BookingCreateHandler) Execute(ctx context.Context, env *models.CommandEnvelope, action models.Action) (map[string]interface{}, error) {
	space := action.Params["space"]

	// Default slot: the next full hour, one hour long.
	start := time.Now().UTC().Truncate(time.Hour).Add(time.Hour)
	id, err := h.bookings.Create(ctx, models.Booking{
		TenantID: env.TenantID,
		UserID:   env.UserID,
		Space:    space,
		StartsAt: start,
		EndsAt:   start.Add(time.Hour),
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"bookingId": id,
		"space":     space,
		"startsAt":  start.Format(time.RFC3339),
	}, nil
}

type BookingListHandler struct {
	bookings store.BookingStore
}

func (h *BookingListHandler) Execute(ctx context.Context, env *models.CommandEnvelope, _ models.Action) (map[string]interface{}, error) {
	list, err := h.bookings.ListUpcoming(ctx, env.TenantID, env.UserID, listLimit)
	if err != nil {
		return nil, err
	}

	spaces := make([]string, 0, len(list))
	for _, b := range list {
		spaces = append(spaces, fmt.Sprintf("%s (%s)", b.Space, b.StartsAt.Format("02/01 15:04")))
	}
	return map[string]interface{}{
		"count":    len(list),
		"bookings": spaces,
	}, nil
}

// simulatedReadings are the fixed sensor values used until the telemetry
// bus is wired in; they keep responses deterministic and testable.
var simulatedReadings = map[string]struct {
	value float64
	unit  string
}{
	"temperature": {21.5, "°C"},
	"humidity":    {45, "%"},
	"air_quality": {23, "AQI"},
}

type SensorReadHandler struct{}

func (h *SensorReadHandler) Execute(_ context.Context, _ *models.CommandEnvelope, action models.Action) (map[string]interface{}, error) {
	sensor := action.Params["sensor"]
	reading, ok := simulatedReadings[sensor]
	if !ok {
		return nil, fmt.Errorf("unknown sensor kind %q", sensor)
	}
	return map[string]interface{}{
		"sensor": sensor,
		"value":  reading.value,
		"unit":   reading.unit,
	}, nil
}

type SystemStatusHandler struct {
	nodes store.NodeStore
}

func (h *SystemStatusHandler) Execute(ctx context.Context, env *models.CommandEnvelope, _ models.Action) (map[string]interface{}, error) {
	nodes, err := h.nodes.ListByTenant(ctx, env.TenantID)
	if err != nil {
		return nil, err
	}

	online := 0
	for _, n := range nodes {
		if n.Online {
			online++
		}
	}
	return map[string]interface{}{
		"nodes":  len(nodes),
		"online": online,
	}, nil
}

type HelpHandler struct{}

func (h *HelpHandler) Execute(_ context.Context, _ *models.CommandEnvelope, _ models.Action) (map[string]interface{}, error) {
	return map[string]interface{}{
		"commands": []string{
			"accendi/spegni <dispositivo>",
			"qual è la temperatura / l'umidità",
			"converti il modello BIM",
			"stato della conversione",
			"mostra i documenti / cerca un documento",
			"segnala un guasto",
			"stato delle manutenzioni",
			"prenota la sala riunioni",
			"le mie prenotazioni",
			"stato del sistema",
		},
	}, nil
}
