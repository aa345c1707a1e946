package httpx

import (
	"log/slog"
	"net/http"

	"github.com/manav03panchal/nodiverse/internal/store"
)

type UsersAPI struct {
	DB  Store
	Log *slog.Logger
}

type createUserReq struct {
	Name    string         `json:"name" validate:"required,max=200"`
	Email   string         `json:"email" validate:"omitempty,email"`
	Role    string         `json:"role" validate:"omitempty,oneof=participant mentor organizer"`
	Profile map[string]any `json:"profile"`
}

// Create registers a user; the id is assigned server side
func (a *UsersAPI) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserReq
	if err := decode(r, &req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = store.RoleParticipant
	}

	u, err := a.DB.CreateUser(r.Context(), store.NewUser{
		Name: req.Name, Email: req.Email, Role: req.Role, Profile: req.Profile,
	})
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List returns a page of users
func (a *UsersAPI) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r)
	users, err := a.DB.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Get returns one user
func (a *UsersAPI) Get(w http.ResponseWriter, r *http.Request) {
	u, err := a.DB.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreErr(w, a.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
