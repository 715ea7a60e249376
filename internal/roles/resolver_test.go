package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/healthchain/ledger-client/pkg/interfaces/mocks"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

const (
	ownerAddr   = types.Address("0x1111111111111111111111111111111111111111")
	patientAddr = types.Address("0x2222222222222222222222222222222222222222")
	doctorAddr  = types.Address("0x3333333333333333333333333333333333333333")
	unknownAddr = types.Address("0x4444444444444444444444444444444444444444")
)

func newResolver(gateway *mocks.LedgerGateway) *Resolver {
	return NewResolver(gateway, logger.New("error"))
}

func TestResolveOwner(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)

	role, err := newResolver(gateway).Resolve(context.Background(), ownerAddr)

	assert.NoError(t, err)
	assert.Equal(t, types.RoleOwner, role)
	gateway.AssertNotCalled(t, "GetPatientInfo", mock.Anything, mock.Anything)
	gateway.AssertExpectations(t)
}

func TestResolveOwnerIgnoresCase(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(types.Address("0xAAAA111111111111111111111111111111111111"), nil)

	role, err := newResolver(gateway).Resolve(context.Background(), types.Address("0xaaaa111111111111111111111111111111111111"))

	assert.NoError(t, err)
	assert.Equal(t, types.RoleOwner, role)
}

func TestResolvePatient(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, patientAddr).
		Return(&types.Patient{Address: patientAddr, Name: "Alice", Age: 34}, nil)

	role, err := newResolver(gateway).Resolve(context.Background(), patientAddr)

	assert.NoError(t, err)
	assert.Equal(t, types.RolePatient, role)
	gateway.AssertNotCalled(t, "GetDoctorInfo", mock.Anything, mock.Anything)
}

func TestResolveDoctorAfterPatientAbsence(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, doctorAddr).
		Return(nil, types.NewAbsenceError("getPatientInfo", "not registered"))
	gateway.On("GetDoctorInfo", mock.Anything, doctorAddr).
		Return(&types.Doctor{Address: doctorAddr, Name: "Dr. Bob", Specialization: "Cardiology"}, nil)

	role, err := newResolver(gateway).Resolve(context.Background(), doctorAddr)

	assert.NoError(t, err)
	assert.Equal(t, types.RoleDoctor, role)
}

func TestResolveUnregistered(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, unknownAddr).
		Return(nil, types.NewAbsenceError("getPatientInfo", "not registered"))
	gateway.On("GetDoctorInfo", mock.Anything, unknownAddr).
		Return(nil, types.NewAbsenceError("getDoctorInfo", "not registered"))

	role, err := newResolver(gateway).Resolve(context.Background(), unknownAddr)

	assert.NoError(t, err)
	assert.Equal(t, types.RoleUnregistered, role)
}

func TestResolveEmptyNameFallsThrough(t *testing.T) {
	// A registry entry with an empty name does not count as registered
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, unknownAddr).
		Return(&types.Patient{Address: unknownAddr}, nil)
	gateway.On("GetDoctorInfo", mock.Anything, unknownAddr).
		Return(&types.Doctor{Address: unknownAddr}, nil)

	role, err := newResolver(gateway).Resolve(context.Background(), unknownAddr)

	assert.NoError(t, err)
	assert.Equal(t, types.RoleUnregistered, role)
}

func TestResolveOwnerLookupFailure(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).
		Return(types.Address(""), types.NewConnectivityError("getOwner", assert.AnError))

	role, err := newResolver(gateway).Resolve(context.Background(), patientAddr)

	assert.Error(t, err)
	assert.Empty(t, role)
	assert.True(t, types.IsConnectivity(err))
}

func TestResolvePatientProbeFailure(t *testing.T) {
	// A non-absence probe failure stops resolution instead of
	// misclassifying the identity further down the chain
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, patientAddr).
		Return(nil, types.NewConnectivityError("getPatientInfo", assert.AnError))

	role, err := newResolver(gateway).Resolve(context.Background(), patientAddr)

	assert.Error(t, err)
	assert.Empty(t, role)
	gateway.AssertNotCalled(t, "GetDoctorInfo", mock.Anything, mock.Anything)
}

func TestResolveIdempotent(t *testing.T) {
	gateway := new(mocks.LedgerGateway)
	gateway.On("GetOwner", mock.Anything).Return(ownerAddr, nil)
	gateway.On("GetPatientInfo", mock.Anything, patientAddr).
		Return(&types.Patient{Address: patientAddr, Name: "Alice"}, nil)

	resolver := newResolver(gateway)

	first, err := resolver.Resolve(context.Background(), patientAddr)
	assert.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), patientAddr)
	assert.NoError(t, err)

	assert.Equal(t, first, second)
}
