package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/ws"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Broadcaster publishes realtime events to role rooms.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	Broadcast(roles []string, event ws.Event)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func internalError(w http.ResponseWriter, logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// publish sends an event to the given rooms. A nil hub is allowed in tests.
func publish(hub Broadcaster, logger *zap.Logger, roles []string, eventType string, payload interface{}) {
	if hub == nil {
		return
	}
	event, err := ws.NewEvent(eventType, payload)
	if err != nil {
		logger.Warn("encode event", zap.String("type", eventType), zap.Error(err))
		return
	}
	hub.Broadcast(roles, event)
}

func urlID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

// pagination reads limit and offset query params.
func pagination(r *http.Request) (int32, int32) {
	limit := int32(defaultPageSize)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = int32(min(n, maxPageSize))
		}
	}
	var offset int32
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil && n >= 0 {
			offset = int32(n)
		}
	}
	return limit, offset
}

func money(n pgtype.Numeric) string {
	return database.ToDecimal(n).StringFixed(database.MoneyPlaces)
}

func quantity(n pgtype.Numeric) string {
	return database.ToDecimal(n).StringFixed(database.QuantityPlaces)
}

func optionalText(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func optionalUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func optionalTime(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	return &ts.Time
}
