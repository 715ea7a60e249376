package interfaces

import (
	"context"

	"github.com/healthchain/ledger-client/pkg/types"
)

// LedgerGateway is the capability-typed handle onto the authorization
// ledger. Queries are pure reads; commands submit a transaction and block
// until the ledger confirms it, so a nil error means the effects are
// visible to subsequent queries. Implementations classify failures with
// the types.LedgerError taxonomy.
type LedgerGateway interface {
	// Queries
	GetOwner(ctx context.Context) (types.Address, error)
	GetPatientInfo(ctx context.Context, patient types.Address) (*types.Patient, error)
	GetDoctorInfo(ctx context.Context, doctor types.Address) (*types.Doctor, error)
	// GetAllDoctors and GetAllPatients return the ledger's parallel
	// arrays as-is; callers zip them index-wise and must treat a length
	// mismatch as an integrity failure.
	GetAllDoctors(ctx context.Context) (addrs []types.Address, names, specializations []string, active []bool, err error)
	GetAllPatients(ctx context.Context) (addrs []types.Address, names []string, ages []uint64, err error)
	HasAccess(ctx context.Context, patient, doctor types.Address) (bool, error)
	GetAuthorizedDoctorsForPatient(ctx context.Context, patient types.Address) ([]types.Address, error)
	GetRecordsForPatient(ctx context.Context, patient types.Address) ([]types.MedicalRecord, error)
	GetTransferRequestsForPatient(ctx context.Context) ([]types.TransferRequest, error)

	// Commands
	RegisterPatient(ctx context.Context, name string, age uint64) (*types.CommandReceipt, error)
	RegisterDoctor(ctx context.Context, doctor types.Address, name, specialization string) (*types.CommandReceipt, error)
	ActivateDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error)
	DeactivateDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error)
	AddRecord(ctx context.Context, patient types.Address, disease, diagnosis, treatment string, doctor types.Address) (*types.CommandReceipt, error)
	ShareRecordsWithDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error)
	RevokeShareAccessFromDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error)
	RequestTransfer(ctx context.Context, recordID uint64, toDoctor types.Address) (*types.CommandReceipt, error)
	ApproveTransferByPatient(ctx context.Context, requestID uint64) (*types.CommandReceipt, error)
	RejectTransferByPatient(ctx context.Context, requestID uint64, reason string) (*types.CommandReceipt, error)

	// Events
	FilterEvents(ctx context.Context, kind types.EventKind) ([]types.Event, error)
	SubscribeEvents(ctx context.Context, kinds []types.EventKind) (EventSubscription, error)
}

// EventSubscription is a cancelable stream of live ledger events.
// Unsubscribe closes the Events channel; no events are delivered after it
// returns.
type EventSubscription interface {
	Events() <-chan types.Event
	Err() <-chan error
	Unsubscribe()
}
