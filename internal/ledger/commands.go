package ledger

import (
	"context"

	"github.com/healthchain/ledger-client/pkg/types"
)

// RegisterPatient self-registers the connected identity as a patient.
func (g *RPCGateway) RegisterPatient(ctx context.Context, name string, age uint64) (*types.CommandReceipt, error) {
	return g.command(ctx, "registerPatient", []interface{}{name, age})
}

// RegisterDoctor registers a doctor. Owner-only on the ledger side.
func (g *RPCGateway) RegisterDoctor(ctx context.Context, doctor types.Address, name, specialization string) (*types.CommandReceipt, error) {
	return g.command(ctx, "registerDoctor", []interface{}{doctor.String(), name, specialization})
}

// ActivateDoctor re-enables a doctor. Owner-only on the ledger side.
func (g *RPCGateway) ActivateDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	return g.command(ctx, "activateDoctor", []interface{}{doctor.String()})
}

// DeactivateDoctor disables a doctor. Owner-only on the ledger side.
func (g *RPCGateway) DeactivateDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	return g.command(ctx, "deactivateDoctor", []interface{}{doctor.String()})
}

// AddRecord creates a medical record for the patient, authored by the
// given doctor. The ledger enforces the access grant.
func (g *RPCGateway) AddRecord(ctx context.Context, patient types.Address, disease, diagnosis, treatment string, doctor types.Address) (*types.CommandReceipt, error) {
	return g.command(ctx, "addRecord", []interface{}{patient.String(), disease, diagnosis, treatment, doctor.String()})
}

// ShareRecordsWithDoctor grants the doctor standing read access to the
// caller's records.
func (g *RPCGateway) ShareRecordsWithDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	return g.command(ctx, "shareRecordsWithDoctor", []interface{}{doctor.String()})
}

// RevokeShareAccessFromDoctor revokes a previously granted access.
func (g *RPCGateway) RevokeShareAccessFromDoctor(ctx context.Context, doctor types.Address) (*types.CommandReceipt, error) {
	return g.command(ctx, "revokeShareAccessFromDoctor", []interface{}{doctor.String()})
}

// RequestTransfer opens a time-bounded request to reassign authorship of
// the record to another doctor. The ledger assigns the request id and
// expiry.
func (g *RPCGateway) RequestTransfer(ctx context.Context, recordID uint64, toDoctor types.Address) (*types.CommandReceipt, error) {
	return g.command(ctx, "requestTransfer", []interface{}{recordID, toDoctor.String()})
}

// ApproveTransferByPatient approves a pending transfer request.
func (g *RPCGateway) ApproveTransferByPatient(ctx context.Context, requestID uint64) (*types.CommandReceipt, error) {
	return g.command(ctx, "approveTransferByPatient", []interface{}{requestID})
}

// RejectTransferByPatient rejects a pending transfer request with a
// non-empty reason.
func (g *RPCGateway) RejectTransferByPatient(ctx context.Context, requestID uint64, reason string) (*types.CommandReceipt, error) {
	return g.command(ctx, "rejectTransferByPatient", []interface{}{requestID, reason})
}
