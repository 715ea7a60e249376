package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/healthchain/ledger-client/internal/session"
	"github.com/healthchain/ledger-client/internal/transfer"
	"github.com/healthchain/ledger-client/pkg/config"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

// Handlers handles HTTP requests for the ledger client service
type Handlers struct {
	sessions  *session.Manager
	logger    *logger.Logger
	jwtSecret string
	jwtIssuer string
}

// NewHandlers creates new HTTP handlers
func NewHandlers(sessions *session.Manager, cfg *config.AuthConfig, log *logger.Logger) *Handlers {
	return &Handlers{
		sessions:  sessions,
		logger:    log,
		jwtSecret: cfg.JWTSecret,
		jwtIssuer: cfg.Issuer,
	}
}

// RegisterRoutes registers HTTP routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.Use(h.loggingMiddleware)
	router.Use(h.authMiddleware)

	// Session routes
	router.HandleFunc("/session", h.ActivateSession).Methods("POST")
	router.HandleFunc("/session", h.GetSession).Methods("GET")

	// Directory routes
	router.HandleFunc("/doctors", h.ListDoctors).Methods("GET")
	router.HandleFunc("/patients", h.ListPatients).Methods("GET")
	router.HandleFunc("/directory/refresh", h.RefreshDirectory).Methods("POST")

	// Registration routes
	router.HandleFunc("/register/patient", h.RegisterPatient).Methods("POST")
	router.HandleFunc("/doctors", h.RegisterDoctor).Methods("POST")
	router.HandleFunc("/doctors/{address}/activate", h.ActivateDoctor).Methods("POST")
	router.HandleFunc("/doctors/{address}/deactivate", h.DeactivateDoctor).Methods("POST")

	// Record routes
	router.HandleFunc("/records", h.GetMyRecords).Methods("GET")
	router.HandleFunc("/patients/{address}/records", h.GetPatientRecords).Methods("GET")
	router.HandleFunc("/patients/{address}/records", h.AddRecord).Methods("POST")

	// Access grant routes
	router.HandleFunc("/access/authorized", h.GetAuthorizedDoctors).Methods("GET")
	router.HandleFunc("/access/shared", h.GetSharedPatients).Methods("GET")
	router.HandleFunc("/access/grants", h.GrantAccess).Methods("POST")
	router.HandleFunc("/access/grants/{address}", h.RevokeAccess).Methods("DELETE")

	// Transfer request routes
	router.HandleFunc("/transfers", h.ListTransferRequests).Methods("GET")
	router.HandleFunc("/transfers", h.CreateTransferRequest).Methods("POST")
	router.HandleFunc("/transfers/{id}/approve", h.ApproveTransferRequest).Methods("POST")
	router.HandleFunc("/transfers/{id}/reject", h.RejectTransferRequest).Methods("POST")

	// Event log route
	router.HandleFunc("/events", h.GetEventLog).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}

// ActivateSession connects an identity: resolves its role and loads the
// role's projections. Re-posting with a different account switches the
// active identity.
func (h *Handlers) ActivateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Account string `json:"account"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.Account == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Account is required")
		return
	}

	s, err := h.sessions.Activate(r.Context(), types.Address(req.Account))
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.sessionResponse(s))
}

// GetSession returns the active session
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Current()
	if s == nil {
		h.writeError(w, http.StatusNotFound, "no_session", "No active session")
		return
	}
	h.writeJSON(w, http.StatusOK, h.sessionResponse(s))
}

func (h *Handlers) sessionResponse(s *session.Session) map[string]interface{} {
	return map[string]interface{}{
		"session_id":    s.ID,
		"account":       s.Account,
		"account_short": s.Account.Short(),
		"role":          s.Role,
	}
}

// ListDoctors returns the cached doctor directory
func (h *Handlers) ListDoctors(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireSession(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Directory.Doctors())
}

// ListPatients returns the cached patient directory
func (h *Handlers) ListPatients(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireSession(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, s.Directory.Patients())
}

// RefreshDirectory reloads both registries on explicit user action
func (h *Handlers) RefreshDirectory(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireSession(w)
	if !ok {
		return
	}

	if err := s.Directory.Refresh(r.Context()); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Directory refreshed"})
}

// RegisterPatient self-registers the connected identity as a patient and
// re-resolves its role.
func (h *Handlers) RegisterPatient(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RoleUnregistered)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
		Age  uint64 `json:"age"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Name is required")
		return
	}

	if _, err := s.Gateway.RegisterPatient(r.Context(), req.Name, req.Age); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	// Registration changes the identity's role; rebuild the session.
	refreshed, err := h.sessions.Activate(r.Context(), s.Account)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.sessionResponse(refreshed))
}

// RegisterDoctor registers a doctor (owner only)
func (h *Handlers) RegisterDoctor(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RoleOwner)
	if !ok {
		return
	}

	var req struct {
		Address        string `json:"address"`
		Name           string `json:"name"`
		Specialization string `json:"specialization"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.Address == "" || req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Address and name are required")
		return
	}
	if !types.IsValidSpecialization(req.Specialization) {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Unknown specialization")
		return
	}

	if _, err := s.Gateway.RegisterDoctor(r.Context(), types.Address(req.Address), req.Name, req.Specialization); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	// The registration changed the directory; refresh once.
	if err := s.Directory.RefreshDoctors(r.Context()); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{"message": "Doctor registered"})
}

// ActivateDoctor re-enables a doctor (owner only)
func (h *Handlers) ActivateDoctor(w http.ResponseWriter, r *http.Request) {
	h.toggleDoctor(w, r, true)
}

// DeactivateDoctor disables a doctor (owner only)
func (h *Handlers) DeactivateDoctor(w http.ResponseWriter, r *http.Request) {
	h.toggleDoctor(w, r, false)
}

func (h *Handlers) toggleDoctor(w http.ResponseWriter, r *http.Request, active bool) {
	s, ok := h.requireRole(w, types.RoleOwner)
	if !ok {
		return
	}

	addr := types.Address(mux.Vars(r)["address"])

	var err error
	if active {
		_, err = s.Gateway.ActivateDoctor(r.Context(), addr)
	} else {
		_, err = s.Gateway.DeactivateDoctor(r.Context(), addr)
	}
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	if err := s.Directory.RefreshDoctors(r.Context()); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

// GetMyRecords returns the patient's own record projection
func (h *Handlers) GetMyRecords(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RolePatient)
	if !ok {
		return
	}

	if err := s.ReloadRecords(r.Context()); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Records())
}

// GetPatientRecords returns a shared patient's records (doctor only).
// The ledger enforces the access grant; a revert surfaces as rejection.
func (h *Handlers) GetPatientRecords(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RoleDoctor)
	if !ok {
		return
	}

	patient := types.Address(mux.Vars(r)["address"])
	records, err := s.Gateway.GetRecordsForPatient(r.Context(), patient)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, records)
}

// AddRecord creates a medical record for a shared patient (doctor only)
func (h *Handlers) AddRecord(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RoleDoctor)
	if !ok {
		return
	}

	var req struct {
		Disease   string `json:"disease"`
		Diagnosis string `json:"diagnosis"`
		Treatment string `json:"treatment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.Disease == "" || req.Diagnosis == "" || req.Treatment == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Disease, diagnosis and treatment are required")
		return
	}

	patient := types.Address(mux.Vars(r)["address"])
	receipt, err := s.Gateway.AddRecord(r.Context(), patient, req.Disease, req.Diagnosis, req.Treatment, s.Account)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, receipt)
}

// GetAuthorizedDoctors returns the patient's current authorized-doctor
// view, re-derived from the ledger.
func (h *Handlers) GetAuthorizedDoctors(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RolePatient)
	if !ok {
		return
	}

	doctors, err := s.Access.AuthorizedDoctorsOf(r.Context(), s.Account)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, doctors)
}

// GetSharedPatients returns the doctor's current shared-patient view,
// re-derived by scanning the access relation.
func (h *Handlers) GetSharedPatients(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RoleDoctor)
	if !ok {
		return
	}

	patients, err := s.Access.SharedPatientsOf(r.Context(), s.Account)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, patients)
}

// GrantAccess shares the patient's records with a doctor
func (h *Handlers) GrantAccess(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RolePatient)
	if !ok {
		return
	}

	var req struct {
		Doctor string `json:"doctor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.Doctor == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Doctor address is required")
		return
	}

	if err := s.Access.Grant(r.Context(), s.Account, types.Address(req.Doctor)); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Access.CachedAuthorizedDoctors())
}

// RevokeAccess revokes a doctor's access to the patient's records
func (h *Handlers) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RolePatient)
	if !ok {
		return
	}

	doctor := types.Address(mux.Vars(r)["address"])
	if err := s.Access.Revoke(r.Context(), s.Account, doctor); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Access.CachedAuthorizedDoctors())
}

// ListTransferRequests returns the patient's transfer requests with
// display state and countdowns.
func (h *Handlers) ListTransferRequests(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RolePatient)
	if !ok {
		return
	}

	if err := s.Transfers.Reload(r.Context()); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Transfers.Views())
}

// CreateTransferRequest opens a transfer request (doctor only)
func (h *Handlers) CreateTransferRequest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RoleDoctor)
	if !ok {
		return
	}

	var req struct {
		RecordID uint64 `json:"record_id"`
		ToDoctor string `json:"to_doctor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}
	if req.ToDoctor == "" {
		h.writeError(w, http.StatusBadRequest, "validation_error", "Target doctor is required")
		return
	}

	if err := s.Transfers.Create(r.Context(), req.RecordID, types.Address(req.ToDoctor)); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"message": "Transfer requested"})
}

// ApproveTransferRequest approves a pending transfer (patient only)
func (h *Handlers) ApproveTransferRequest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RolePatient)
	if !ok {
		return
	}

	requestID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request id")
		return
	}

	if err := s.Transfers.Approve(r.Context(), requestID); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Transfers.Views())
}

// RejectTransferRequest rejects a pending transfer (patient only)
func (h *Handlers) RejectTransferRequest(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RolePatient)
	if !ok {
		return
	}

	requestID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request id")
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload")
		return
	}

	if err := s.Transfers.Reject(r.Context(), requestID, req.Reason); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s.Transfers.Views())
}

// GetEventLog returns the reconciled event log (owner only)
func (h *Handlers) GetEventLog(w http.ResponseWriter, r *http.Request) {
	s, ok := h.requireRole(w, types.RoleOwner)
	if !ok {
		return
	}

	if s.Reconciler == nil {
		h.writeError(w, http.StatusInternalServerError, "reconciler_unavailable", "Event reconciler is not running")
		return
	}
	h.writeJSON(w, http.StatusOK, s.Reconciler.Log())
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ledger-client",
	})
}

func (h *Handlers) requireSession(w http.ResponseWriter) (*session.Session, bool) {
	s := h.sessions.Current()
	if s == nil {
		h.writeError(w, http.StatusConflict, "no_session", "Connect an identity first")
		return nil, false
	}
	return s, true
}

func (h *Handlers) requireRole(w http.ResponseWriter, role types.Role) (*session.Session, bool) {
	s, ok := h.requireSession(w)
	if !ok {
		return nil, false
	}
	if s.Role != role {
		h.writeError(w, http.StatusForbidden, "forbidden", "Active role does not permit this operation")
		return nil, false
	}
	return s, true
}

// writeLedgerError maps the error taxonomy onto HTTP statuses. Prior
// projections stay displayed; the response is the notice.
func (h *Handlers) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transfer.ErrNotPending):
		h.writeError(w, http.StatusConflict, "not_pending", err.Error())
	case errors.Is(err, transfer.ErrEmptyReason):
		h.writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case types.IsAbsence(err):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error())
	case types.IsUserDeclined(err):
		h.writeError(w, http.StatusBadRequest, "user_declined", err.Error())
	case types.IsLedgerRejected(err):
		h.writeError(w, http.StatusUnprocessableEntity, "ledger_rejected", err.Error())
	case types.IsConnectivity(err):
		h.writeError(w, http.StatusServiceUnavailable, "connectivity", err.Error())
	case types.IsIntegrity(err):
		h.writeError(w, http.StatusInternalServerError, "integrity", err.Error())
	default:
		h.writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, code, message string) {
	errorResponse := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, status, errorResponse)
}
