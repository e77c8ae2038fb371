package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"triptales/catalog-service/internal/catalog"
	"triptales/catalog-service/internal/models"
	"triptales/catalog-service/internal/policy"
	"triptales/catalog-service/internal/session"
	"triptales/catalog-service/internal/store"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	svc *catalog.Service
}

type messageResponse struct {
	Message string `json:"message"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type listResponse struct {
	Items []models.ItineraryListing `json:"items"`
}

type createResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type statusResponse struct {
	Message string `json:"message"`
	By      string `json:"by"`
}

type errorResponse struct {
	RequestID string        `json:"request_id,omitempty"`
	Error     responseError `json:"error"`
}

type responseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", h.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/auth/register", h.handleRegister)
	mux.HandleFunc("/api/auth/login", h.handleLogin)
	mux.HandleFunc("/api/auth/logout", h.handleLogout)
	mux.HandleFunc("/api/auth/me", h.handleMe)
	mux.HandleFunc("/api/itineraries", h.handleItineraries)
	mux.HandleFunc("/api/itineraries/", h.handleItineraryActions)
	return mux
}

// NewRouter assembles the middleware chain around the routes: request
// logging and metrics outermost, then CORS, then bearer authentication.
func NewRouter(svc *catalog.Service, allowedOrigins []string) http.Handler {
	routes := NewHandler(svc).Routes()
	return LoggingMiddleware(CORSMiddleware(allowedOrigins, AuthMiddleware(svc, routes)))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	_, err := h.svc.Register(r.Context(), catalog.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Registration successful"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: result.Token, User: toUserResponse(result.User)})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := authFromContext(r.Context())
	if !ok {
		writeFailure(w, r, session.ErrUnauthenticated)
		return
	}
	if err := h.svc.Logout(r.Context(), info.Token); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	info, ok := authFromContext(r.Context())
	if !ok {
		writeFailure(w, r, session.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(info.User))
}

func (h *Handler) handleItineraries(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listItineraries(w, r)
	case http.MethodPost:
		h.createItinerary(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) listItineraries(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	query := policy.ListQuery{
		Query:  strings.TrimSpace(values.Get("q")),
		Region: strings.TrimSpace(values.Get("region")),
		Status: strings.TrimSpace(values.Get("status")),
	}
	if raw := strings.TrimSpace(values.Get("mine")); raw != "" {
		mine, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "mine must be a boolean")
			return
		}
		query.Mine = mine
	}

	items, err := h.svc.ListItineraries(r.Context(), actorFromRequest(r), query)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items})
}

func (h *Handler) createItinerary(w http.ResponseWriter, r *http.Request) {
	var req itineraryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := req.content()
	if err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	created, err := h.svc.CreateItinerary(r.Context(), actorFromRequest(r), content)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ID: created.ItineraryID, Message: "Itinerary submitted for review"})
}

func (h *Handler) handleItineraryActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/itineraries/")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "status") {
		writeError(w, requestIDFromRequest(r), http.StatusNotFound, "not_found", "route not found")
		return
	}

	parsed, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", "itinerary id must be a UUID")
		return
	}
	itineraryID := parsed.String()

	if len(parts) == 2 {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.setStatus(w, r, itineraryID)
		return
	}

	switch r.Method {
	case http.MethodPut:
		h.updateItinerary(w, r, itineraryID)
	case http.MethodDelete:
		h.deleteItinerary(w, r, itineraryID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) updateItinerary(w http.ResponseWriter, r *http.Request, itineraryID string) {
	var req itineraryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	content, err := req.content()
	if err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if _, err := h.svc.UpdateItinerary(r.Context(), actorFromRequest(r), itineraryID, content); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Itinerary updated"})
}

func (h *Handler) deleteItinerary(w http.ResponseWriter, r *http.Request, itineraryID string) {
	if err := h.svc.DeleteItinerary(r.Context(), actorFromRequest(r), itineraryID); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Itinerary deleted"})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request, itineraryID string) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.svc.SetStatus(r.Context(), actorFromRequest(r), itineraryID, req.Status)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	info, _ := authFromContext(r.Context())
	writeJSON(w, http.StatusOK, statusResponse{
		Message: fmt.Sprintf("Itinerary marked as %s", updated.Status),
		By:      info.User.Email,
	})
}

func toUserResponse(user models.User) userResponse {
	return userResponse{ID: user.UserID, Name: user.Name, Email: user.Email, Role: user.Role}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, requestIDFromRequest(r), http.StatusBadRequest, "invalid_json", "invalid JSON payload")
		return false
	}
	return true
}

func mapError(err error) (int, string, string) {
	var denial *policy.Error
	switch {
	case errors.Is(err, session.ErrMalformedAuth):
		return http.StatusUnauthorized, "unauthorized", "Invalid authorization format"
	case errors.Is(err, session.ErrInvalidToken):
		return http.StatusUnauthorized, "unauthorized", "Invalid or expired token"
	case errors.Is(err, session.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized", "Missing Authorization header"
	case errors.Is(err, catalog.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"
	case errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict, "conflict", "Email already registered"
	case errors.Is(err, store.ErrItineraryNotFound):
		return http.StatusNotFound, "not_found", "Itinerary not found"
	case errors.As(err, &denial):
		status, code := policyStatus(denial.Kind)
		return status, code, denial.Reason
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func policyStatus(kind error) (int, string) {
	switch {
	case errors.Is(kind, policy.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(kind, policy.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(kind, policy.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := mapError(err)
	requestID := requestIDFromRequest(r)
	if status == http.StatusInternalServerError {
		log.Printf("request failed method=%s path=%s request_id=%s error=%v", r.Method, r.URL.Path, requestID, err)
	}
	writeError(w, requestID, status, code, message)
}

func writeError(w http.ResponseWriter, requestID string, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		RequestID: requestID,
		Error: responseError{
			Code:    code,
			Message: message,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}
