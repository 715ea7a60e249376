package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthchain/ledger-client/internal/session"
	"github.com/healthchain/ledger-client/internal/transfer"
	"github.com/healthchain/ledger-client/pkg/config"
	"github.com/healthchain/ledger-client/pkg/interfaces/mocks"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

const (
	testSecret = "test-secret"
	testIssuer = "healthchain-ledger-client"
)

var (
	ownerAddr   = types.Address("0x1111111111111111111111111111111111111111")
	patientAddr = types.Address("0x2222222222222222222222222222222222222222")
	doctorAddr  = types.Address("0x3333333333333333333333333333333333333333")
)

func newTestRouter(gateway *mocks.LedgerGateway) (*mux.Router, *session.Manager) {
	log := logger.New("error")
	sessions := session.NewManager(gateway, log, nil)
	handlers := NewHandlers(sessions, &config.AuthConfig{JWTSecret: testSecret, Issuer: testIssuer}, log)

	router := mux.NewRouter()
	handlers.RegisterRoutes(router)
	return router, sessions
}

func signToken(t *testing.T) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"iss": testIssuer,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doRequest(t *testing.T, router *mux.Router, method, path, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if authed {
		req.Header.Set("Authorization", "Bearer "+signToken(t))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// expectDirectory stubs the registry listings every activation loads.
func expectDirectory(gateway *mocks.LedgerGateway) {
	gateway.On("GetAllDoctors", mock.Anything).Return(
		[]types.Address{doctorAddr}, []string{"Dr. Carter"}, []string{"Cardiology"}, []bool{true}, nil)
	gateway.On("GetAllPatients", mock.Anything).Return(
		[]types.Address{patientAddr}, []string{"Alice"}, []uint64{34}, nil)
}

// expectPatientActivation stubs a full patient session activation.
func expectPatientActivation(gateway *mocks.LedgerGateway) {
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, patientAddr).
		Return(&types.Patient{Address: patientAddr, Name: "Alice", Age: 34}, nil)
	gateway.On("GetRecordsForPatient", mock.Anything, patientAddr).
		Return([]types.MedicalRecord{}, nil)
	gateway.On("GetAuthorizedDoctorsForPatient", mock.Anything, patientAddr).
		Return([]types.Address{}, nil)
	gateway.On("GetTransferRequestsForPatient", mock.Anything).
		Return([]types.TransferRequest{}, nil)
}

func TestHealthCheckBypassesAuth(t *testing.T) {
	router, _ := newTestRouter(new(mocks.LedgerGateway))

	rec := doRequest(t, router, http.MethodGet, "/health", "", false)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMissingTokenRejected(t *testing.T) {
	router, _ := newTestRouter(new(mocks.LedgerGateway))

	rec := doRequest(t, router, http.MethodGet, "/doctors", "", false)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMalformedAuthHeaderRejected(t *testing.T) {
	router, _ := newTestRouter(new(mocks.LedgerGateway))

	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWrongIssuerRejected(t *testing.T) {
	router, _ := newTestRouter(new(mocks.LedgerGateway))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"iss": "someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/doctors", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNoSessionIsConflict(t *testing.T) {
	router, _ := newTestRouter(new(mocks.LedgerGateway))

	rec := doRequest(t, router, http.MethodGet, "/doctors", "", true)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestActivateSession(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectPatientActivation(gateway)
	router, _ := newTestRouter(gateway)

	rec := doRequest(t, router, http.MethodPost, "/session",
		`{"account":"`+patientAddr.String()+`"}`, true)

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(types.RolePatient), resp["role"])
	assert.Equal(t, patientAddr.String(), resp["account"])
}

func TestActivateSessionRequiresAccount(t *testing.T) {
	router, _ := newTestRouter(new(mocks.LedgerGateway))

	rec := doRequest(t, router, http.MethodPost, "/session", `{}`, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSessionWithoutActivation(t *testing.T) {
	router, _ := newTestRouter(new(mocks.LedgerGateway))

	rec := doRequest(t, router, http.MethodGet, "/session", "", true)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoleGating(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectPatientActivation(gateway)
	router, sessions := newTestRouter(gateway)

	_, err := sessions.Activate(context.Background(), patientAddr)
	require.NoError(t, err)

	// Doctor-only surface refused for a patient session
	rec := doRequest(t, router, http.MethodGet, "/access/shared", "", true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Owner-only surface likewise
	rec = doRequest(t, router, http.MethodGet, "/events", "", true)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListDoctorsFromCache(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectPatientActivation(gateway)
	router, sessions := newTestRouter(gateway)

	_, err := sessions.Activate(context.Background(), patientAddr)
	require.NoError(t, err)

	rec := doRequest(t, router, http.MethodGet, "/doctors", "", true)

	require.Equal(t, http.StatusOK, rec.Code)
	var doctors []types.Doctor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doctors))
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Carter", doctors[0].Name)
}

func TestRegisterDoctorValidatesSpecialization(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("SubscribeEvents", mock.Anything, types.AllEventKinds).
		Return(mocks.NewEventSubscription(4), nil)
	gateway.On("FilterEvents", mock.Anything, mock.Anything).Return([]types.Event{}, nil)

	router, sessions := newTestRouter(gateway)
	s, err := sessions.Activate(context.Background(), ownerAddr)
	require.NoError(t, err)
	defer s.Close()

	rec := doRequest(t, router, http.MethodPost, "/doctors",
		`{"address":"`+doctorAddr.String()+`","name":"Dr. New","specialization":"Wizardry"}`, true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	gateway.AssertNotCalled(t, "RegisterDoctor", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOwnerRegistersAndDeactivatesDoctor(t *testing.T) {
	newDoctor := types.Address("0x5555555555555555555555555555555555555555")

	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("SubscribeEvents", mock.Anything, types.AllEventKinds).
		Return(mocks.NewEventSubscription(4), nil)
	gateway.On("FilterEvents", mock.Anything, mock.Anything).Return([]types.Event{}, nil)
	gateway.On("RegisterDoctor", mock.Anything, newDoctor, "Dr. New", "Cardiology").
		Return(&types.CommandReceipt{TxHash: "0xr1", BlockNumber: 30}, nil)
	gateway.On("DeactivateDoctor", mock.Anything, newDoctor).
		Return(&types.CommandReceipt{TxHash: "0xr2", BlockNumber: 31}, nil)

	router, sessions := newTestRouter(gateway)
	s, err := sessions.Activate(context.Background(), ownerAddr)
	require.NoError(t, err)
	defer s.Close()

	rec := doRequest(t, router, http.MethodPost, "/doctors",
		`{"address":"`+newDoctor.String()+`","name":"Dr. New","specialization":"Cardiology"}`, true)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/doctors/"+newDoctor.String()+"/deactivate", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)

	gateway.AssertCalled(t, "RegisterDoctor", mock.Anything, newDoctor, "Dr. New", "Cardiology")
	gateway.AssertCalled(t, "DeactivateDoctor", mock.Anything, newDoctor)
}

func TestLedgerErrorStatusMapping(t *testing.T) {
	log := logger.New("error")
	h := NewHandlers(nil, &config.AuthConfig{JWTSecret: testSecret, Issuer: testIssuer}, log)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"absence", types.NewAbsenceError("getPatientInfo", "not found"), http.StatusNotFound},
		{"user declined", types.NewUserDeclinedError("shareRecords", "rejected"), http.StatusBadRequest},
		{"ledger rejected", types.NewLedgerRejectedError("addRecord", "no access", nil), http.StatusUnprocessableEntity},
		{"connectivity", types.NewConnectivityError("getOwner", assert.AnError), http.StatusServiceUnavailable},
		{"integrity", types.NewIntegrityError("getAllDoctors", "mismatch"), http.StatusInternalServerError},
		{"not pending", transfer.ErrNotPending, http.StatusConflict},
		{"empty reason", transfer.ErrEmptyReason, http.StatusBadRequest},
		{"unclassified", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.writeLedgerError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
