package httpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/name-registrar/api"
	"github.com/ruteri/name-registrar/events"
	"github.com/ruteri/name-registrar/interfaces"
	"github.com/ruteri/name-registrar/registrar"
)

// AdminHandler persists registrar state to the configured storage backends.
// Every endpoint requires the protocol admin as caller.
type AdminHandler struct {
	calls      *Handler
	dispatcher *api.Dispatcher
	storage    interfaces.StorageBackend
	recorder   *events.Recorder
	log        *slog.Logger
}

// NewAdminHandler creates the admin endpoints. calls supplies the
// authentication policy; recorder may be nil, in which case event exports
// are empty.
func NewAdminHandler(calls *Handler, storage interfaces.StorageBackend, recorder *events.Recorder, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		calls:      calls,
		dispatcher: calls.dispatcher,
		storage:    storage,
		recorder:   recorder,
		log:        log,
	}
}

// AdminRouter returns a router for the admin API, mounted under /api/admin.
func (h *AdminHandler) AdminRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/snapshot", h.handleSnapshot)
	r.Post("/events/export", h.handleExportEvents)
	return r
}

// handleSnapshot stores the full registrar state and returns its content id.
//
// Endpoint: POST /api/admin/snapshot
func (h *AdminHandler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, api.AdminSnapshotPath, func(ctx context.Context, now interfaces.Timestamp) ([]byte, interfaces.ContentType, error) {
		data, err := registrar.MarshalSnapshot(h.dispatcher.Registrar().Snapshot(now))
		return data, interfaces.SnapshotType, err
	})
}

// handleExportEvents stores the retained event log.
//
// Endpoint: POST /api/admin/events/export
func (h *AdminHandler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, api.AdminEventsPath, func(ctx context.Context, now interfaces.Timestamp) ([]byte, interfaces.ContentType, error) {
		if h.recorder == nil {
			return []byte("[]"), interfaces.EventLogType, nil
		}
		data, err := h.recorder.Export()
		return data, interfaces.EventLogType, err
	})
}

func (h *AdminHandler) serveExport(w http.ResponseWriter, r *http.Request, path string, export func(context.Context, interfaces.Timestamp) ([]byte, interfaces.ContentType, error)) {
	body, err := io.ReadAll(io.LimitReader(r.Body, api.MaxRequestBodySize))
	if err != nil {
		h.calls.writeError(w, &RequestError{StatusCode: http.StatusBadRequest, Err: err})
		return
	}
	payment, err := api.ParsePayment(r.Header.Get(api.HeaderPayment))
	if err != nil {
		h.calls.writeError(w, err)
		return
	}
	caller, err := h.calls.authenticate(r, path, body, payment, true)
	if err != nil {
		h.calls.writeError(w, err)
		return
	}
	if caller != h.dispatcher.Registrar().Config().Admin {
		h.calls.writeError(w, fmt.Errorf("%w: admin only", interfaces.ErrUnauthorized))
		return
	}
	if h.storage == nil {
		h.calls.writeError(w, &RequestError{StatusCode: http.StatusServiceUnavailable, Err: interfaces.ErrBackendUnavailable})
		return
	}

	ctx := r.Context()
	now, err := h.dispatcher.Now(ctx)
	if err != nil {
		h.calls.writeError(w, err)
		return
	}
	data, contentType, err := export(ctx, now)
	if err != nil {
		h.calls.writeError(w, err)
		return
	}

	id, err := h.storage.Store(ctx, data, contentType)
	if err != nil {
		h.log.Error("Failed to store export", slog.String("type", contentType.String()), "err", err)
		h.calls.writeError(w, &RequestError{StatusCode: http.StatusBadGateway, Err: err})
		return
	}

	h.log.Info("Stored export",
		slog.String("type", contentType.String()),
		slog.String("id", id.String()),
		slog.Int("size", len(data)))

	h.calls.writeResult(w, api.SnapshotResponse{
		ContentID: id.String(),
		Backends:  backendLocations(h.storage),
		TakenAt:   now,
	})
}

func backendLocations(backend interfaces.StorageBackend) []string {
	if multi, ok := backend.(interface{ Locations() []string }); ok {
		return multi.Locations()
	}
	return []string{backend.LocationURI()}
}
