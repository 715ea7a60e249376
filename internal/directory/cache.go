package directory

import (
	"context"
	"fmt"
	"sync"

	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

// Cache holds in-memory projections of the doctor and patient registries.
// Refresh is caller-triggered; there is no background polling. A refresh
// is a full re-read swapped in atomically, so readers never observe a
// partially merged listing.
type Cache struct {
	gateway interfaces.LedgerGateway
	logger  *logger.Logger

	mu       sync.RWMutex
	doctors  []types.Doctor
	patients []types.Patient
}

// NewCache creates an empty directory cache over the gateway.
func NewCache(gateway interfaces.LedgerGateway, log *logger.Logger) *Cache {
	return &Cache{
		gateway: gateway,
		logger:  log,
	}
}

// Refresh reloads both registries.
func (c *Cache) Refresh(ctx context.Context) error {
	if err := c.RefreshDoctors(ctx); err != nil {
		return err
	}
	return c.RefreshPatients(ctx)
}

// RefreshDoctors reloads the doctor registry. The ledger returns parallel
// arrays; a length mismatch is an integrity failure and leaves the prior
// projection in place.
func (c *Cache) RefreshDoctors(ctx context.Context) error {
	addrs, names, specializations, active, err := c.gateway.GetAllDoctors(ctx)
	if err != nil {
		return err
	}

	doctors, err := zipDoctors(addrs, names, specializations, active)
	if err != nil {
		c.logger.WithComponent("directory").WithError(err).Error("Doctor registry integrity failure")
		return err
	}

	c.mu.Lock()
	c.doctors = doctors
	c.mu.Unlock()

	c.logger.WithComponent("directory").WithField("count", len(doctors)).Debug("Doctor registry refreshed")
	return nil
}

// RefreshPatients reloads the patient registry.
func (c *Cache) RefreshPatients(ctx context.Context) error {
	addrs, names, ages, err := c.gateway.GetAllPatients(ctx)
	if err != nil {
		return err
	}

	patients, err := zipPatients(addrs, names, ages)
	if err != nil {
		c.logger.WithComponent("directory").WithError(err).Error("Patient registry integrity failure")
		return err
	}

	c.mu.Lock()
	c.patients = patients
	c.mu.Unlock()

	c.logger.WithComponent("directory").WithField("count", len(patients)).Debug("Patient registry refreshed")
	return nil
}

func zipDoctors(addrs []types.Address, names, specializations []string, active []bool) ([]types.Doctor, error) {
	if len(names) != len(addrs) || len(specializations) != len(addrs) || len(active) != len(addrs) {
		return nil, types.NewIntegrityError("getAllDoctors",
			fmt.Sprintf("parallel array length mismatch: %d addresses, %d names, %d specializations, %d flags",
				len(addrs), len(names), len(specializations), len(active)))
	}

	doctors := make([]types.Doctor, len(addrs))
	for i := range addrs {
		doctors[i] = types.Doctor{
			Address:        addrs[i],
			Name:           names[i],
			Specialization: specializations[i],
			Active:         active[i],
		}
	}
	return doctors, nil
}

func zipPatients(addrs []types.Address, names []string, ages []uint64) ([]types.Patient, error) {
	if len(names) != len(addrs) || len(ages) != len(addrs) {
		return nil, types.NewIntegrityError("getAllPatients",
			fmt.Sprintf("parallel array length mismatch: %d addresses, %d names, %d ages",
				len(addrs), len(names), len(ages)))
	}

	patients := make([]types.Patient, len(addrs))
	for i := range addrs {
		patients[i] = types.Patient{
			Address: addrs[i],
			Name:    names[i],
			Age:     ages[i],
		}
	}
	return patients, nil
}

// Doctors returns a snapshot of the doctor registry projection.
func (c *Cache) Doctors() []types.Doctor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Doctor, len(c.doctors))
	copy(out, c.doctors)
	return out
}

// Patients returns a snapshot of the patient registry projection.
func (c *Cache) Patients() []types.Patient {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]types.Patient, len(c.patients))
	copy(out, c.patients)
	return out
}

// Doctor looks up a doctor by address, case-insensitively.
func (c *Cache) Doctor(addr types.Address) (types.Doctor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.doctors {
		if d.Address.Equal(addr) {
			return d, true
		}
	}
	return types.Doctor{}, false
}

// Patient looks up a patient by address, case-insensitively.
func (c *Cache) Patient(addr types.Address) (types.Patient, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, p := range c.patients {
		if p.Address.Equal(addr) {
			return p, true
		}
	}
	return types.Patient{}, false
}

// DoctorName resolves an address to a display name, falling back to the
// abbreviated address for doctors not yet in the projection.
func (c *Cache) DoctorName(addr types.Address) string {
	if d, ok := c.Doctor(addr); ok {
		return d.Name
	}
	return addr.Short()
}

// PatientName resolves an address to a display name, falling back to the
// abbreviated address.
func (c *Cache) PatientName(addr types.Address) string {
	if p, ok := c.Patient(addr); ok {
		return p.Name
	}
	return addr.Short()
}
