package roles

import (
	"context"
	"fmt"

	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

// Resolver determines which capability set the connected identity holds.
// Resolution probes the ledger in a fixed precedence order: owner, then
// patient, then doctor; an identity matching none is unregistered.
type Resolver struct {
	gateway interfaces.LedgerGateway
	logger  *logger.Logger
}

// NewResolver creates a role resolver over the given gateway.
func NewResolver(gateway interfaces.LedgerGateway, log *logger.Logger) *Resolver {
	return &Resolver{
		gateway: gateway,
		logger:  log,
	}
}

// Resolve returns exactly one role for the account. The owner lookup is
// fatal on failure; patient and doctor probes treat absence as a negative
// result and continue down the chain. Resolution against an unchanged
// ledger is idempotent.
func (r *Resolver) Resolve(ctx context.Context, account types.Address) (types.Role, error) {
	owner, err := r.gateway.GetOwner(ctx)
	if err != nil {
		return "", fmt.Errorf("owner lookup failed: %w", err)
	}

	if owner.Equal(account) {
		r.logger.WithComponent("roles").WithField("account", account.Short()).Info("Resolved role: owner")
		return types.RoleOwner, nil
	}

	patient, err := r.gateway.GetPatientInfo(ctx, account)
	if err != nil && !types.IsAbsence(err) {
		return "", fmt.Errorf("patient probe failed: %w", err)
	}
	if err == nil && patient.Name != "" {
		r.logger.WithComponent("roles").WithField("account", account.Short()).Info("Resolved role: patient")
		return types.RolePatient, nil
	}

	doctor, err := r.gateway.GetDoctorInfo(ctx, account)
	if err != nil && !types.IsAbsence(err) {
		return "", fmt.Errorf("doctor probe failed: %w", err)
	}
	if err == nil && doctor.Name != "" {
		r.logger.WithComponent("roles").WithField("account", account.Short()).Info("Resolved role: doctor")
		return types.RoleDoctor, nil
	}

	r.logger.WithComponent("roles").WithField("account", account.Short()).Info("Resolved role: unregistered")
	return types.RoleUnregistered, nil
}
