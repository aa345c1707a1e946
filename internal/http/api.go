package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/manav03panchal/nodiverse/internal/store"
	"github.com/manav03panchal/nodiverse/internal/ws"
)

// Store is the persistence surface behind the REST handlers.
type Store interface {
	CreateUser(ctx context.Context, nu store.NewUser) (store.User, error)
	GetUser(ctx context.Context, id string) (store.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]store.User, error)

	CreateEvent(ctx context.Context, ne store.NewEvent) (store.Event, error)
	GetEvent(ctx context.Context, id string) (store.Event, error)
	ListEvents(ctx context.Context, limit, offset int) ([]store.Event, error)
	AddParticipant(ctx context.Context, eventID, userID, role string) (store.EventParticipant, error)
	ListEventParticipants(ctx context.Context, eventID string) ([]store.Participant, error)

	CreateConnection(ctx context.Context, nc store.NewConnection) (store.Connection, error)
	UpdateConnectionStatus(ctx context.Context, id int64, status string) (store.Connection, error)
	ListEventConnections(ctx context.Context, eventID string) ([]store.Connection, error)

	Ping(ctx context.Context) error
}

// Broadcaster pushes REST-side changes into live event rooms.
type Broadcaster interface {
	BroadcastToEvent(eventID string, msg ws.Message) error
}

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

var validate = newValidator()

// newValidator reports json field names in validation errors
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decode reads a JSON body into v and validates it
func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid payload")
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q", fe.Field(), fe.Tag()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// page parses limit/offset query params
func page(r *http.Request) (limit, offset int) {
	limit, offset = defaultPageSize, 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageSize)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// send JSON with proper headers
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStoreErr maps store sentinels to status codes
func writeStoreErr(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error("http.store", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
