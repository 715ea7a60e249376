package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/healthchain/ledger-client/internal/access"
	"github.com/healthchain/ledger-client/internal/directory"
	"github.com/healthchain/ledger-client/internal/events"
	"github.com/healthchain/ledger-client/internal/roles"
	"github.com/healthchain/ledger-client/internal/transfer"
	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/monitoring"
	"github.com/healthchain/ledger-client/pkg/types"
)

// Session binds one connected identity to one gateway handle, the role
// resolved for that pair, and the role's dependent projections. A session
// is never mutated after activation; switching identity builds a new
// session and closes the old one.
type Session struct {
	ID      string
	Account types.Address
	Role    types.Role

	Gateway   interfaces.LedgerGateway
	Directory *directory.Cache
	Access    *access.Manager
	Transfers *transfer.Workflow

	// Reconciler is non-nil for the owner role only.
	Reconciler *events.Reconciler

	logger *logger.Logger

	// cancel ends the session-scoped context the reconciler's
	// subscription runs under; it outlives the activating request.
	cancel context.CancelFunc

	mu      sync.RWMutex
	records []types.MedicalRecord
	closed  bool
}

// ReloadRecords refetches the patient's own record projection.
func (s *Session) ReloadRecords(ctx context.Context) error {
	records, err := s.Gateway.GetRecordsForPatient(ctx, s.Account)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

// Records returns a snapshot of the patient's record projection.
func (s *Session) Records() []types.MedicalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.MedicalRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Close tears the session down. The reconciler's subscription is
// cancelled; results of calls still in flight are discarded by their
// initiating workflows.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if s.Reconciler != nil {
		s.Reconciler.Stop()
	}

	s.logger.WithSession(s.ID, s.Account.String()).Info("Session closed")
}

// Manager owns the single active session and replaces it on identity
// switch.
type Manager struct {
	gateway interfaces.LedgerGateway
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector

	mu      sync.RWMutex
	current *Session
}

// NewManager creates a session manager over the gateway.
func NewManager(gateway interfaces.LedgerGateway, log *logger.Logger, metrics *monitoring.MetricsCollector) *Manager {
	return &Manager{
		gateway: gateway,
		logger:  log,
		metrics: metrics,
	}
}

// Current returns the active session, or nil before the first Activate.
func (m *Manager) Current() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Activate resolves the account's role, builds its projections, and makes
// the new session current. The previous session, if any, is closed after
// the replacement is in place so callers never observe a torn state.
func (m *Manager) Activate(ctx context.Context, account types.Address) (*Session, error) {
	dir := directory.NewCache(m.gateway, m.logger)
	if err := dir.Refresh(ctx); err != nil {
		return nil, err
	}

	role, err := roles.NewResolver(m.gateway, m.logger).Resolve(ctx, account)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:        uuid.New().String(),
		Account:   account,
		Role:      role,
		Gateway:   m.gateway,
		Directory: dir,
		Access:    access.NewManager(m.gateway, dir, m.logger),
		Transfers: transfer.NewWorkflow(m.gateway, dir, m.logger),
		logger:    m.logger,
	}

	if err := m.loadRoleProjections(ctx, s); err != nil {
		return nil, err
	}

	m.mu.Lock()
	previous := m.current
	m.current = s
	m.mu.Unlock()

	if previous != nil {
		previous.Close()
	}

	m.logger.WithSession(s.ID, account.String()).WithField("role", role).Info("Session activated")
	return s, nil
}

// loadRoleProjections performs the one-time load of the projections the
// resolved role depends on.
func (m *Manager) loadRoleProjections(ctx context.Context, s *Session) error {
	switch s.Role {
	case types.RolePatient:
		if err := s.ReloadRecords(ctx); err != nil {
			return err
		}
		if _, err := s.Access.AuthorizedDoctorsOf(ctx, s.Account); err != nil {
			return err
		}
		return s.Transfers.Reload(ctx)

	case types.RoleDoctor:
		_, err := s.Access.SharedPatientsOf(ctx, s.Account)
		return err

	case types.RoleOwner:
		// The subscription must outlive the activating request, so it
		// runs under a session-scoped context rather than ctx.
		sessionCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.Reconciler = events.NewReconciler(m.gateway, m.logger, m.metrics)
		if err := s.Reconciler.Start(sessionCtx); err != nil {
			cancel()
			return err
		}
		return nil

	default:
		return nil
	}
}
