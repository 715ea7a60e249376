package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/healthchain/ledger-client/pkg/interfaces/mocks"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

var (
	ownerAddr   = types.Address("0x1111111111111111111111111111111111111111")
	patientAddr = types.Address("0x2222222222222222222222222222222222222222")
	doctorAddr  = types.Address("0x3333333333333333333333333333333333333333")
)

// expectDirectory stubs the registry listings every activation loads.
func expectDirectory(gateway *mocks.LedgerGateway) {
	gateway.On("GetAllDoctors", mock.Anything).Return(
		[]types.Address{doctorAddr}, []string{"Dr. Carter"}, []string{"Cardiology"}, []bool{true}, nil)
	gateway.On("GetAllPatients", mock.Anything).Return(
		[]types.Address{patientAddr}, []string{"Alice"}, []uint64{34}, nil)
}

func newTestManager(gateway *mocks.LedgerGateway) *Manager {
	return NewManager(gateway, logger.New("error"), nil)
}

func TestActivatePatientLoadsProjections(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, patientAddr).
		Return(&types.Patient{Address: patientAddr, Name: "Alice", Age: 34}, nil)
	gateway.On("GetRecordsForPatient", mock.Anything, patientAddr).
		Return([]types.MedicalRecord{{ID: 1, Disease: "Flu"}}, nil)
	gateway.On("GetAuthorizedDoctorsForPatient", mock.Anything, patientAddr).
		Return([]types.Address{doctorAddr}, nil)
	gateway.On("GetTransferRequestsForPatient", mock.Anything).
		Return([]types.TransferRequest{}, nil)

	mgr := newTestManager(gateway)
	s, err := mgr.Activate(context.Background(), patientAddr)

	require.NoError(t, err)
	assert.Equal(t, types.RolePatient, s.Role)
	assert.Len(t, s.Records(), 1)
	assert.Len(t, s.Access.CachedAuthorizedDoctors(), 1)
	assert.Nil(t, s.Reconciler)
	assert.Same(t, s, mgr.Current())
}

func TestActivateDoctorScansSharedPatients(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, doctorAddr).
		Return(nil, types.NewAbsenceError("getPatientInfo", "not registered"))
	gateway.On("GetDoctorInfo", mock.Anything, doctorAddr).
		Return(&types.Doctor{Address: doctorAddr, Name: "Dr. Carter"}, nil)
	gateway.On("HasAccess", mock.Anything, patientAddr, doctorAddr).Return(true, nil)

	mgr := newTestManager(gateway)
	s, err := mgr.Activate(context.Background(), doctorAddr)

	require.NoError(t, err)
	assert.Equal(t, types.RoleDoctor, s.Role)
	shared := s.Access.CachedSharedPatients()
	require.Len(t, shared, 1)
	assert.Equal(t, patientAddr, shared[0].Address)
}

func TestActivateOwnerStartsReconciler(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("SubscribeEvents", mock.Anything, types.AllEventKinds).
		Return(mocks.NewEventSubscription(4), nil)
	gateway.On("FilterEvents", mock.Anything, mock.Anything).Return([]types.Event{}, nil)

	mgr := newTestManager(gateway)
	s, err := mgr.Activate(context.Background(), ownerAddr)

	require.NoError(t, err)
	assert.Equal(t, types.RoleOwner, s.Role)
	require.NotNil(t, s.Reconciler)

	s.Close()
}

func TestActivateUnregistered(t *testing.T) {
	unknown := types.Address("0x4444444444444444444444444444444444444444")

	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, unknown).
		Return(nil, types.NewAbsenceError("getPatientInfo", "not registered"))
	gateway.On("GetDoctorInfo", mock.Anything, unknown).
		Return(nil, types.NewAbsenceError("getDoctorInfo", "not registered"))

	mgr := newTestManager(gateway)
	s, err := mgr.Activate(context.Background(), unknown)

	require.NoError(t, err)
	assert.Equal(t, types.RoleUnregistered, s.Role)
	assert.Empty(t, s.Records())
}

func TestActivateReplacesPreviousSession(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, patientAddr).
		Return(&types.Patient{Address: patientAddr, Name: "Alice"}, nil)
	gateway.On("GetRecordsForPatient", mock.Anything, patientAddr).
		Return([]types.MedicalRecord{}, nil)
	gateway.On("GetAuthorizedDoctorsForPatient", mock.Anything, patientAddr).
		Return([]types.Address{}, nil)
	gateway.On("GetTransferRequestsForPatient", mock.Anything).
		Return([]types.TransferRequest{}, nil)
	gateway.On("GetPatientInfo", mock.Anything, doctorAddr).
		Return(nil, types.NewAbsenceError("getPatientInfo", "not registered"))
	gateway.On("GetDoctorInfo", mock.Anything, doctorAddr).
		Return(&types.Doctor{Address: doctorAddr, Name: "Dr. Carter"}, nil)
	gateway.On("HasAccess", mock.Anything, patientAddr, doctorAddr).Return(false, nil)

	mgr := newTestManager(gateway)
	ctx := context.Background()

	first, err := mgr.Activate(ctx, patientAddr)
	require.NoError(t, err)

	second, err := mgr.Activate(ctx, doctorAddr)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.Same(t, second, mgr.Current())
}

func TestActivateFailureKeepsCurrentSession(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil).Once()
	gateway.On("GetPatientInfo", mock.Anything, patientAddr).
		Return(&types.Patient{Address: patientAddr, Name: "Alice"}, nil)
	gateway.On("GetRecordsForPatient", mock.Anything, patientAddr).
		Return([]types.MedicalRecord{}, nil)
	gateway.On("GetAuthorizedDoctorsForPatient", mock.Anything, patientAddr).
		Return([]types.Address{}, nil)
	gateway.On("GetTransferRequestsForPatient", mock.Anything).
		Return([]types.TransferRequest{}, nil)

	mgr := newTestManager(gateway)
	ctx := context.Background()

	first, err := mgr.Activate(ctx, patientAddr)
	require.NoError(t, err)

	// The next activation fails at role resolution and must not
	// disturb the session in place
	gateway.On("GetOwner", mock.Anything).
		Return(types.Address(""), types.NewConnectivityError("getOwner", assert.AnError))

	_, err = mgr.Activate(ctx, doctorAddr)
	assert.Error(t, err)
	assert.Same(t, first, mgr.Current())
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	expectDirectory(gateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("SubscribeEvents", mock.Anything, types.AllEventKinds).
		Return(mocks.NewEventSubscription(4), nil)
	gateway.On("FilterEvents", mock.Anything, mock.Anything).Return([]types.Event{}, nil)

	mgr := newTestManager(gateway)
	s, err := mgr.Activate(context.Background(), ownerAddr)
	require.NoError(t, err)

	s.Close()
	s.Close()
}
