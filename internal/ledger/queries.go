package ledger

import (
	"context"
	"fmt"

	"github.com/healthchain/ledger-client/pkg/types"
)

// GetOwner resolves the ledger's designated owner identity.
func (g *RPCGateway) GetOwner(ctx context.Context) (types.Address, error) {
	var owner string
	if err := g.query(ctx, "getOwner", nil, &owner); err != nil {
		return "", err
	}
	return types.Address(owner), nil
}

type patientInfoResult struct {
	Name string `json:"name"`
	Age  uint64 `json:"age"`
}

// GetPatientInfo probes the patient registry for the given address. An
// absence error means the address is not a registered patient.
func (g *RPCGateway) GetPatientInfo(ctx context.Context, patient types.Address) (*types.Patient, error) {
	var info patientInfoResult
	if err := g.query(ctx, "getPatientInfo", []interface{}{patient.String()}, &info); err != nil {
		return nil, err
	}
	return &types.Patient{Address: patient, Name: info.Name, Age: info.Age}, nil
}

type doctorInfoResult struct {
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// GetDoctorInfo probes the doctor registry for the given address. The
// per-doctor read does not carry the active flag; the directory listing
// does.
func (g *RPCGateway) GetDoctorInfo(ctx context.Context, doctor types.Address) (*types.Doctor, error) {
	var info doctorInfoResult
	if err := g.query(ctx, "getDoctorInfo", []interface{}{doctor.String()}, &info); err != nil {
		return nil, err
	}
	return &types.Doctor{Address: doctor, Name: info.Name, Specialization: info.Specialization}, nil
}

type allDoctorsResult struct {
	Addresses       []string `json:"addresses"`
	Names           []string `json:"names"`
	Specializations []string `json:"specializations"`
	Active          []bool   `json:"active"`
}

// GetAllDoctors returns the doctor directory as the ledger's parallel
// arrays.
func (g *RPCGateway) GetAllDoctors(ctx context.Context) ([]types.Address, []string, []string, []bool, error) {
	var result allDoctorsResult
	if err := g.query(ctx, "getAllDoctors", nil, &result); err != nil {
		return nil, nil, nil, nil, err
	}

	addrs := make([]types.Address, len(result.Addresses))
	for i, a := range result.Addresses {
		addrs[i] = types.Address(a)
	}
	return addrs, result.Names, result.Specializations, result.Active, nil
}

type allPatientsResult struct {
	Addresses []string `json:"addresses"`
	Names     []string `json:"names"`
	Ages      []uint64 `json:"ages"`
}

// GetAllPatients returns the patient directory as the ledger's parallel
// arrays.
func (g *RPCGateway) GetAllPatients(ctx context.Context) ([]types.Address, []string, []uint64, error) {
	var result allPatientsResult
	if err := g.query(ctx, "getAllPatients", nil, &result); err != nil {
		return nil, nil, nil, err
	}

	addrs := make([]types.Address, len(result.Addresses))
	for i, a := range result.Addresses {
		addrs[i] = types.Address(a)
	}
	return addrs, result.Names, result.Ages, nil
}

// HasAccess probes the pairwise access relation.
func (g *RPCGateway) HasAccess(ctx context.Context, patient, doctor types.Address) (bool, error) {
	var allowed bool
	if err := g.query(ctx, "hasAccess", []interface{}{patient.String(), doctor.String()}, &allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// GetAuthorizedDoctorsForPatient returns the patient's authorized-doctor
// address list. This direction has a direct ledger query; the reverse
// direction does not and is computed by scanning.
func (g *RPCGateway) GetAuthorizedDoctorsForPatient(ctx context.Context, patient types.Address) ([]types.Address, error) {
	var raw []string
	if err := g.query(ctx, "getAuthorizedDoctorsForPatient", []interface{}{patient.String()}, &raw); err != nil {
		return nil, err
	}

	addrs := make([]types.Address, len(raw))
	for i, a := range raw {
		addrs[i] = types.Address(a)
	}
	return addrs, nil
}

type wireRecord struct {
	RecordID    uint64 `json:"record_id"`
	Disease     string `json:"disease"`
	Diagnosis   string `json:"diagnosis"`
	Treatment   string `json:"treatment"`
	Timestamp   int64  `json:"timestamp"`
	DiagnosedBy string `json:"diagnosed_by"`
}

// GetRecordsForPatient lists the patient's medical records.
func (g *RPCGateway) GetRecordsForPatient(ctx context.Context, patient types.Address) ([]types.MedicalRecord, error) {
	var raw []wireRecord
	if err := g.query(ctx, "getRecordsForPatient", []interface{}{patient.String()}, &raw); err != nil {
		return nil, err
	}

	records := make([]types.MedicalRecord, len(raw))
	for i, r := range raw {
		records[i] = types.MedicalRecord{
			ID:          r.RecordID,
			Disease:     r.Disease,
			Diagnosis:   r.Diagnosis,
			Treatment:   r.Treatment,
			Timestamp:   r.Timestamp,
			DiagnosedBy: types.Address(r.DiagnosedBy),
		}
	}
	return records, nil
}

// Transfer requests come over the wire in the ledger's nested shape: an
// outer request id wrapping the per-record request tuple.
type wireTransferRequest struct {
	RequestID uint64 `json:"request_id"`
	Request   struct {
		RecordID        uint64 `json:"record_id"`
		PatientAddress  string `json:"patient_address"`
		FromDoctor      string `json:"from_doctor"`
		ToDoctor        string `json:"to_doctor"`
		Approved        bool   `json:"approved"`
		ExpiryTimestamp int64  `json:"expiry_timestamp"`
		RejectionReason string `json:"rejection_reason"`
	} `json:"request"`
}

// GetTransferRequestsForPatient lists transfer requests for the caller's
// patient context.
func (g *RPCGateway) GetTransferRequestsForPatient(ctx context.Context) ([]types.TransferRequest, error) {
	var raw []wireTransferRequest
	if err := g.query(ctx, "getTransferRequestsForPatient", nil, &raw); err != nil {
		return nil, err
	}

	requests := make([]types.TransferRequest, len(raw))
	for i, r := range raw {
		if r.Request.PatientAddress == "" {
			return nil, types.NewIntegrityError("getTransferRequestsForPatient",
				fmt.Sprintf("request %d has no patient address", r.RequestID))
		}
		requests[i] = types.TransferRequest{
			RequestID:       r.RequestID,
			RecordID:        r.Request.RecordID,
			Patient:         types.Address(r.Request.PatientAddress),
			FromDoctor:      types.Address(r.Request.FromDoctor),
			ToDoctor:        types.Address(r.Request.ToDoctor),
			Approved:        r.Request.Approved,
			ExpiryTimestamp: r.Request.ExpiryTimestamp,
			RejectionReason: r.Request.RejectionReason,
		}
	}
	return requests, nil
}
