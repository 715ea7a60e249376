// Package mocks provides testify-based mock implementations of the
// gateway interfaces for use in unit tests.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/types"
)

// LedgerGateway is a mock implementation of interfaces.LedgerGateway
type LedgerGateway struct {
	mock.Mock
}

func (m *LedgerGateway) GetOwner(ctx context.Context) (types.Address, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.Address), args.Error(1)
}

func (m *LedgerGateway) GetPatientInfo(ctx context.Context, patient types.Address) (*types.Patient, error) {
	args := m.Called(ctx, patient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Patient), args.Error(1)
}

func (m *LedgerGateway) GetDoctorInfo(ctx context.Context, doctor types.Address) (*types.Doctor, error) {
	args := m.Called(ctx, doctor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Doctor), args.Error(1)
}

func (m *LedgerGateway) GetAllDoctors(ctx context.Context) ([]types.Address, []string, []string, []bool, error) {
	args := m.Called(ctx)
	var addrs []types.Address
	if v := args.Get(0); v != nil {
		addrs = v.([]types.Address)
	}
	var names, specializations []string
	if v := args.Get(1); v != nil {
		names = v.([]string)
	}
	if v := args.Get(2); v != nil {
		specializations = v.([]string)
	}
	var active []bool
	if v := args.Get(3); v != nil {
		active = v.([]bool)
	}
	return addrs, names, specializations, active, args.Error(4)
}

func (m *LedgerGateway) GetAllPatients(ctx context.Context) ([]types.Address, []string, []uint64, error) {
	args := m.Called(ctx)
	var addrs []types.Address
	if v := args.Get(0); v != nil {
		addrs = v.([]types.Address)
	}
	var names []string
	if v := args.Get(1); v != nil {
		names = v.([]string)
	}
	var ages []uint64
	if v := args.Get(2); v != nil {
		ages = v.([]uint64)
	}
	return addrs, names, ages, args.Error(3)
}

func (m *LedgerGateway) HasAccess(ctx context.Context, patient, doctor types.Address) (bool, error) {
	args := m.Called(ctx, patient, doctor)
	return args.Bool(0), args.Error(1)
}

func (m *LedgerGateway) GetAuthorizedDoctorsForPatient(ctx context.Context, patient types.Address) ([]types.Address, error) {
	args := m.Called(ctx, patient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Address), args.Error(1)
}

func (m *LedgerGateway) GetRecordsForPatient(ctx context.Context, patient types.Address) ([]types.MedicalRecord, error) {
	args := m.Called(ctx, patient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.MedicalRecord), args.Error(1)
}

func (m *LedgerGateway) GetTransferRequestsForPatient(ctx context.Context) ([]types.TransferRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.TransferRequest), args.Error(1)
}

func (m *LedgerGateway) RegisterPatient(ctx context.Context, name string, age uint64) (*types.CommandReceipt, error) {
	args := m.Called(ctx, name, age)
	return receipt(args)
}

func (m *LedgerGateway) RegisterDoctor(ctx context.Context, doctor types.Address, name, specialization string) (*types.CommandReceipt, error) {
	args := m.Called(ctx, doctor, name, specialization)
	return receipt(args)
}

func (m *LedgerGateway) ActivateDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	args := m.Called(ctx, doctor)
	return receipt(args)
}

func (m *LedgerGateway) DeactivateDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	args := m.Called(ctx, doctor)
	return receipt(args)
}

func (m *LedgerGateway) AddRecord(ctx context.Context, patient types.Address, disease, diagnosis, treatment string, doctor types.Address) (*types.CommandReceipt, error) {
	args := m.Called(ctx, patient, disease, diagnosis, treatment, doctor)
	return receipt(args)
}

func (m *LedgerGateway) ShareRecordsWithDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	args := m.Called(ctx, doctor)
	return receipt(args)
}

func (m *LedgerGateway) RevokeShareAccessFromDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	args := m.Called(ctx, doctor)
	return receipt(args)
}

func (m *LedgerGateway) RequestTransfer(ctx context.Context, recordID uint64, toDoctor types.Address) (*types.CommandReceipt, error) {
	args := m.Called(ctx, recordID, toDoctor)
	return receipt(args)
}

func (m *LedgerGateway) ApproveTransferByPatient(ctx context.Context, requestID uint64) (*types.CommandReceipt, error) {
	args := m.Called(ctx, requestID)
	return receipt(args)
}

func (m *LedgerGateway) RejectTransferByPatient(ctx context.Context, requestID uint64, reason string) (*types.CommandReceipt, error) {
	args := m.Called(ctx, requestID, reason)
	return receipt(args)
}

func (m *LedgerGateway) FilterEvents(ctx context.Context, kind types.EventKind) ([]types.Event, error) {
	args := m.Called(ctx, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Event), args.Error(1)
}

func (m *LedgerGateway) SubscribeEvents(ctx context.Context, kinds []types.EventKind) (interfaces.EventSubscription, error) {
	args := m.Called(ctx, kinds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(interfaces.EventSubscription), args.Error(1)
}

func receipt(args mock.Arguments) (*types.CommandReceipt, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.CommandReceipt), args.Error(1)
}

// EventSubscription is a channel-backed stub subscription. Tests push
// events with Emit and failures with Fail.
type EventSubscription struct {
	events chan types.Event
	errs   chan error
	once   sync.Once
}

func NewEventSubscription(buffer int) *EventSubscription {
	return &EventSubscription{
		events: make(chan types.Event, buffer),
		errs:   make(chan error, 1),
	}
}

func (s *EventSubscription) Events() <-chan types.Event { return s.events }

func (s *EventSubscription) Err() <-chan error { return s.errs }

func (s *EventSubscription) Unsubscribe() {
	s.once.Do(func() { close(s.events) })
}

func (s *EventSubscription) Emit(event types.Event) { s.events <- event }

func (s *EventSubscription) Fail(err error) { s.errs <- err }
