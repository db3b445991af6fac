package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kitchenops/api/internal/auth"
	"github.com/kitchenops/api/internal/database"
	"github.com/kitchenops/api/internal/enum"
	"go.uber.org/zap"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context, role pgtype.Text) ([]database.User, error)
	CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error)
	UpdateUser(ctx context.Context, arg database.UpdateUserParams) (database.User, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListDeliveryCandidates(ctx context.Context) ([]database.ListDeliveryCandidatesRow, error)
}

// UserHandler handles staff account management.
type UserHandler struct {
	store  UserStore
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore, logger *zap.Logger) *UserHandler {
	return &UserHandler{store: store, logger: logger}
}

// RegisterRoutes registers user CRUD endpoints. Mounted under /users.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	// Password is optional; empty keeps the current one.
	Password string `json:"password"`
}

type userDetailResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     *string   `json:"phone"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type deliveryStaffResponse struct {
	ID               uuid.UUID  `json:"id"`
	FullName         string     `json:"full_name"`
	ActiveOrders     int64      `json:"active_orders"`
	LastDispatchedAt *time.Time `json:"last_dispatched_at"`
}

func toUserDetailResponse(u database.User) userDetailResponse {
	return userDetailResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     optionalText(u.Phone),
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// --- Handlers ---

// List returns active users, optionally filtered by ?role=.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !enum.IsRole(role) {
		writeError(w, http.StatusBadRequest, "invalid role")
		return
	}

	users, err := h.store.ListUsers(r.Context(), database.Text(role))
	if err != nil {
		internalError(w, h.logger, "list users", err)
		return
	}

	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new staff account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" || req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email, password, full_name, and role are required")
		return
	}
	if msg := validateUserFields(req.Email, req.Role); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		internalError(w, h.logger, "create user: hash password", err)
		return
	}

	user, err := h.store.CreateUser(r.Context(), database.CreateUserParams{
		Email:          req.Email,
		HashedPassword: hashed,
		FullName:       req.FullName,
		Phone:          database.Text(req.Phone),
		Role:           req.Role,
	})
	if err != nil {
		if database.IsViolation(err, database.UniqueViolation, "users_email_key") {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		internalError(w, h.logger, "create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// Update modifies an existing staff account.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.FullName == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "email, full_name, and role are required")
		return
	}
	if msg := validateUserFields(req.Email, req.Role); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var hashed pgtype.Text
	if req.Password != "" {
		if len(req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		p, err := auth.HashPassword(req.Password)
		if err != nil {
			internalError(w, h.logger, "update user: hash password", err)
			return
		}
		hashed = database.Text(p)
	}

	user, err := h.store.UpdateUser(r.Context(), database.UpdateUserParams{
		ID:             userID,
		Email:          req.Email,
		FullName:       req.FullName,
		Phone:          database.Text(req.Phone),
		Role:           req.Role,
		HashedPassword: hashed,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if database.IsViolation(err, database.UniqueViolation, "users_email_key") {
			writeError(w, http.StatusConflict, "email already exists")
			return
		}
		internalError(w, h.logger, "update user", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Delete deactivates a user. Their order history is kept.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	if _, err := h.store.DeactivateUser(r.Context(), userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		internalError(w, h.logger, "deactivate user", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeliveryStaff lists active delivery staff with their current load.
func (h *UserHandler) DeliveryStaff(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListDeliveryCandidates(r.Context())
	if err != nil {
		internalError(w, h.logger, "list delivery staff", err)
		return
	}

	resp := make([]deliveryStaffResponse, len(rows))
	for i, row := range rows {
		resp[i] = deliveryStaffResponse{
			ID:               row.ID,
			FullName:         row.FullName,
			ActiveOrders:     row.ActiveOrders,
			LastDispatchedAt: optionalTime(row.LastDispatchedAt),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func validateUserFields(email, role string) string {
	if !strings.Contains(email, "@") {
		return "invalid email format"
	}
	if !enum.IsRole(role) {
		return "invalid role"
	}
	return ""
}
