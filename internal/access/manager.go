package access

import (
	"context"
	"fmt"
	"sync"

	"github.com/healthchain/ledger-client/internal/directory"
	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

// hasAccessFanout bounds the concurrent access probes issued while
// scanning the patient directory.
const hasAccessFanout = 8

// Manager maintains the two derived views over the ledger's pairwise
// access relation: a patient's authorized-doctor set and a doctor's
// shared-patient set. The relation itself is never cached across a
// mutating call; every view is re-derived from the ledger.
type Manager struct {
	gateway   interfaces.LedgerGateway
	directory *directory.Cache
	logger    *logger.Logger

	mu sync.RWMutex
	// Materialized snapshots for display. Replaced wholesale on refresh,
	// never patched.
	authorized         []types.Doctor
	authorizedFor      types.Address
	shared             []types.Patient
	sharedFor          types.Address
	sharedMaterialized bool
}

// NewManager creates an access-grant manager.
func NewManager(gateway interfaces.LedgerGateway, dir *directory.Cache, log *logger.Logger) *Manager {
	return &Manager{
		gateway:   gateway,
		directory: dir,
		logger:    log,
	}
}

// AuthorizedDoctorsOf queries the patient's authorized-doctor list
// directly and enriches it from the directory. The fresh view replaces
// the materialized snapshot.
func (m *Manager) AuthorizedDoctorsOf(ctx context.Context, patient types.Address) ([]types.Doctor, error) {
	addrs, err := m.gateway.GetAuthorizedDoctorsForPatient(ctx, patient)
	if err != nil {
		return nil, err
	}

	doctors := make([]types.Doctor, len(addrs))
	for i, addr := range addrs {
		if d, ok := m.directory.Doctor(addr); ok {
			doctors[i] = d
		} else {
			doctors[i] = types.Doctor{Address: addr}
		}
	}

	m.mu.Lock()
	m.authorized = doctors
	m.authorizedFor = patient
	m.mu.Unlock()

	return doctors, nil
}

// SharedPatientsOf computes the doctor's shared-patient set by probing
// the access relation for every patient in the directory. The ledger has
// no direct reverse query for this direction, so the scan stands in for
// one; callers go through this method so a future direct query can
// replace the scan without touching them.
func (m *Manager) SharedPatientsOf(ctx context.Context, doctor types.Address) ([]types.Patient, error) {
	patients := m.directory.Patients()

	results := make([]bool, len(patients))
	errs := make([]error, len(patients))

	sem := make(chan struct{}, hasAccessFanout)
	var wg sync.WaitGroup

	for i := range patients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i], errs[i] = m.gateway.HasAccess(ctx, patients[i].Address, doctor)
		}(i)
	}
	wg.Wait()

	// Results are indexed by directory position, so arrival order of the
	// probe responses cannot reorder or tear the view.
	shared := make([]types.Patient, 0, len(patients))
	for i := range patients {
		if errs[i] != nil {
			if types.IsAbsence(errs[i]) {
				continue
			}
			return nil, fmt.Errorf("access probe for patient %s failed: %w", patients[i].Address.Short(), errs[i])
		}
		if results[i] {
			shared = append(shared, patients[i])
		}
	}

	m.mu.Lock()
	m.shared = shared
	m.sharedFor = doctor
	m.sharedMaterialized = true
	m.mu.Unlock()

	return shared, nil
}

// Grant issues the share command for the caller's patient context and,
// once confirmed, refreshes the affected views. On failure the prior
// snapshots stand unchanged.
func (m *Manager) Grant(ctx context.Context, patient, doctor types.Address) error {
	receipt, err := m.gateway.ShareRecordsWithDoctor(ctx, doctor)
	if err != nil {
		m.logger.WithComponent("access").WithError(err).Warn("Share command failed")
		return err
	}

	m.logger.WithComponent("access").WithFields(map[string]interface{}{
		"patient": patient.Short(),
		"doctor":  doctor.Short(),
		"tx_hash": receipt.TxHash,
	}).Info("Access granted")

	return m.refreshAfterMutation(ctx, patient, doctor)
}

// Revoke issues the revoke command for the caller's patient context and,
// once confirmed, refreshes the affected views.
func (m *Manager) Revoke(ctx context.Context, patient, doctor types.Address) error {
	receipt, err := m.gateway.RevokeShareAccessFromDoctor(ctx, doctor)
	if err != nil {
		m.logger.WithComponent("access").WithError(err).Warn("Revoke command failed")
		return err
	}

	m.logger.WithComponent("access").WithFields(map[string]interface{}{
		"patient": patient.Short(),
		"doctor":  doctor.Short(),
		"tx_hash": receipt.TxHash,
	}).Info("Access revoked")

	return m.refreshAfterMutation(ctx, patient, doctor)
}

// refreshAfterMutation re-derives the authorized view and, if the
// doctor's shared-patient view is currently materialized, that view too.
func (m *Manager) refreshAfterMutation(ctx context.Context, patient, doctor types.Address) error {
	if _, err := m.AuthorizedDoctorsOf(ctx, patient); err != nil {
		return fmt.Errorf("authorized view refresh failed: %w", err)
	}

	m.mu.RLock()
	materialized := m.sharedMaterialized
	sharedFor := m.sharedFor
	m.mu.RUnlock()

	if materialized && sharedFor.Equal(doctor) {
		if _, err := m.SharedPatientsOf(ctx, doctor); err != nil {
			return fmt.Errorf("shared view refresh failed: %w", err)
		}
	}
	return nil
}

// CachedAuthorizedDoctors returns the last materialized authorized view.
func (m *Manager) CachedAuthorizedDoctors() []types.Doctor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Doctor, len(m.authorized))
	copy(out, m.authorized)
	return out
}

// CachedSharedPatients returns the last materialized shared view.
func (m *Manager) CachedSharedPatients() []types.Patient {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.Patient, len(m.shared))
	copy(out, m.shared)
	return out
}
