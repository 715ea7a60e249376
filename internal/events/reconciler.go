package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/monitoring"
	"github.com/healthchain/ledger-client/pkg/types"
)

// ErrAlreadyStarted is returned when Start is called on a running
// reconciler.
var ErrAlreadyStarted = errors.New("reconciler already started")

// Reconciler merges the replayed event history with the live stream into
// one deduplicated, append-ordered log. Backfilled entries are sorted by
// (block number, log index) before any live entry is accepted; after
// that, relative order is append order. The (txHash, logIndex) key makes
// delivery idempotent under at-least-once semantics and overlapping
// backfill/live windows.
type Reconciler struct {
	gateway interfaces.LedgerGateway
	logger  *logger.Logger
	metrics *monitoring.MetricsCollector

	mu      sync.RWMutex
	seen    map[string]struct{}
	entries []types.EventLogEntry
	stopped bool

	sub    interfaces.EventSubscription
	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates an event reconciler. The metrics collector may be
// nil.
func NewReconciler(gateway interfaces.LedgerGateway, log *logger.Logger, metrics *monitoring.MetricsCollector) *Reconciler {
	return &Reconciler{
		gateway: gateway,
		logger:  log,
		metrics: metrics,
		seen:    make(map[string]struct{}),
		done:    make(chan struct{}),
	}
}

// Start subscribes to the live stream, backfills the history of every
// event kind, then begins draining live events. Subscribing before the
// backfill means an event emitted during the backfill window arrives on
// at least one path; the dedup key collapses it to one entry.
func (r *Reconciler) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.sub != nil || r.stopped {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	sub, err := r.gateway.SubscribeEvents(subCtx, types.AllEventKinds)
	if err != nil {
		cancel()
		return fmt.Errorf("event subscription failed: %w", err)
	}

	backfill := make([]types.Event, 0)
	for _, kind := range types.AllEventKinds {
		occurrences, err := r.gateway.FilterEvents(subCtx, kind)
		if err != nil {
			sub.Unsubscribe()
			cancel()
			return fmt.Errorf("backfill of %s failed: %w", kind, err)
		}
		for range occurrences {
			if r.metrics != nil {
				r.metrics.RecordEventReceived(string(kind), "backfill")
			}
		}
		backfill = append(backfill, occurrences...)
	}

	// Kind-by-kind backfill arrives out of chain order; sort it before
	// accepting live entries so the persisted log opens chronologically.
	sort.SliceStable(backfill, func(i, j int) bool {
		if backfill[i].BlockNumber != backfill[j].BlockNumber {
			return backfill[i].BlockNumber < backfill[j].BlockNumber
		}
		return backfill[i].LogIndex < backfill[j].LogIndex
	})

	for _, event := range backfill {
		r.append(event)
	}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		cancel()
		sub.Unsubscribe()
		close(r.done)
		return nil
	}
	r.sub = sub
	r.cancel = cancel
	r.mu.Unlock()

	go r.drain(sub)

	r.logger.WithComponent("events").WithField("backfilled", len(backfill)).Info("Event reconciler started")
	return nil
}

func (r *Reconciler) drain(sub interfaces.EventSubscription) {
	defer close(r.done)

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if r.metrics != nil {
				r.metrics.RecordEventReceived(string(event.Kind), "live")
			}
			r.append(event)
		case err, ok := <-sub.Err():
			if !ok {
				return
			}
			// A malformed occurrence is fatal to no one but the entry
			// itself; the stream keeps going.
			r.logger.WithComponent("events").WithError(err).Warn("Dropped undecodable event")
			if r.metrics != nil {
				r.metrics.RecordComponentError(string(types.KindOf(err)), "events")
			}
		}
	}
}

// append adds a formatted entry unless its key was already seen or the
// reconciler has been stopped.
func (r *Reconciler) append(event types.Event) {
	id := event.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}
	if _, dup := r.seen[id]; dup {
		if r.metrics != nil {
			r.metrics.RecordEventDeduplicated(string(event.Kind))
		}
		return
	}

	r.seen[id] = struct{}{}
	r.entries = append(r.entries, types.EventLogEntry{
		EventID: id,
		Message: FormatEvent(event),
	})
}

// Log returns a snapshot of the reconciled log.
func (r *Reconciler) Log() []types.EventLogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.EventLogEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Stop cancels the live subscription and waits for the drain loop to
// finish. No entry is appended after Stop returns.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	sub := r.sub
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sub != nil {
		sub.Unsubscribe()
		<-r.done
	}

	r.logger.WithComponent("events").Info("Event reconciler stopped")
}

// FormatEvent renders one event occurrence as a human-readable log line.
// Both the backfill and live paths use this formatting, so a duplicated
// occurrence produces an identical entry and collapses in the dedup set.
func FormatEvent(e types.Event) string {
	switch e.Kind {
	case types.EventPatientRegistered:
		return fmt.Sprintf("Patient Registered: %s (%s)", e.Name, e.Patient)
	case types.EventDoctorRegistered:
		return fmt.Sprintf("Doctor Registered: %s (%s)", e.Name, e.Doctor)
	case types.EventRecordAdded:
		return fmt.Sprintf("Record Added - Patient: %s, Doctor: %s, Record ID: %d", e.Patient, e.Doctor, e.RecordID)
	case types.EventRecordShared:
		return fmt.Sprintf("Record Shared - Patient: %s, Doctor: %s", e.Patient, e.Doctor)
	case types.EventAccessRevoked:
		return fmt.Sprintf("Access Revoked - Patient: %s, Doctor: %s", e.Patient, e.Doctor)
	case types.EventDoctorActivated:
		return fmt.Sprintf("Doctor Activated: %s", e.Doctor)
	case types.EventDoctorDeactivated:
		return fmt.Sprintf("Doctor Deactivated: %s", e.Doctor)
	case types.EventTransferRequested:
		return fmt.Sprintf("Transfer Requested - ReqID: %d, Record ID: %d, From: %s, To: %s, Patient: %s",
			e.RequestID, e.RecordID, e.FromDoctor, e.ToDoctor, e.Patient)
	case types.EventTransferApproved:
		return fmt.Sprintf("Transfer Approved - ReqID: %d, Record ID: %d, From: %s, To: %s, Patient: %s",
			e.RequestID, e.RecordID, e.FromDoctor, e.ToDoctor, e.Patient)
	case types.EventTransferRejected:
		return fmt.Sprintf("Transfer Rejected - ReqID: %d, Record ID: %d, From: %s, To: %s, Patient: %s, Reason: %s",
			e.RequestID, e.RecordID, e.FromDoctor, e.ToDoctor, e.Patient, e.Reason)
	default:
		return fmt.Sprintf("%s - %s", e.Kind, e.ID())
	}
}
