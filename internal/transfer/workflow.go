package transfer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/healthchain/ledger-client/internal/directory"
	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/logger"
	"github.com/healthchain/ledger-client/pkg/types"
)

// ErrNotPending is returned when approve or reject targets a request this
// client already knows to be terminal. The ledger remains the final
// authority; this guard only stops commands that are certain to fail.
var ErrNotPending = errors.New("transfer request is not pending")

// ErrEmptyReason is returned when a rejection carries no reason; the
// ledger models rejection as a non-empty reason, so an empty one would be
// indistinguishable from a pending request.
var ErrEmptyReason = errors.New("rejection reason must not be empty")

// RequestView is a transfer request enriched for display: doctor names
// from the directory, the derived status, and the live countdown.
type RequestView struct {
	types.TransferRequest

	FromDoctorName           string               `json:"from_doctor_name"`
	FromDoctorSpecialization string               `json:"from_doctor_specialization"`
	ToDoctorName             string               `json:"to_doctor_name"`
	ToDoctorSpecialization   string               `json:"to_doctor_specialization"`
	Status                   types.TransferStatus `json:"status"`
	RemainingSeconds         int64                `json:"remaining_seconds"`
}

// Workflow manages the transfer-request lifecycle for the active patient
// context: listing, creation, approval, and rejection, plus countdown
// views. Every confirmed mutation triggers a full list reload, because
// approval and rejection also mutate authorship fields on the underlying
// record that this component does not track.
type Workflow struct {
	gateway   interfaces.LedgerGateway
	directory *directory.Cache
	logger    *logger.Logger
	now       func() time.Time

	mu       sync.RWMutex
	requests []types.TransferRequest
}

// NewWorkflow creates a transfer-request workflow.
func NewWorkflow(gateway interfaces.LedgerGateway, dir *directory.Cache, log *logger.Logger) *Workflow {
	return &Workflow{
		gateway:   gateway,
		directory: dir,
		logger:    log,
		now:       time.Now,
	}
}

// Reload fetches the full request list and swaps it in atomically.
func (w *Workflow) Reload(ctx context.Context) error {
	requests, err := w.gateway.GetTransferRequestsForPatient(ctx)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.requests = requests
	w.mu.Unlock()

	w.logger.WithComponent("transfer").WithField("count", len(requests)).Debug("Transfer requests reloaded")
	return nil
}

// Requests returns a snapshot of the raw request list.
func (w *Workflow) Requests() []types.TransferRequest {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]types.TransferRequest, len(w.requests))
	copy(out, w.requests)
	return out
}

// Views returns display views of the current snapshot at this instant.
// Expired requests stay listed; only the ledger's own cleanup removes
// them.
func (w *Workflow) Views() []RequestView {
	now := w.now()
	requests := w.Requests()

	views := make([]RequestView, len(requests))
	for i, req := range requests {
		views[i] = RequestView{
			TransferRequest:  req,
			FromDoctorName:   w.directory.DoctorName(req.FromDoctor),
			ToDoctorName:     w.directory.DoctorName(req.ToDoctor),
			Status:           req.StatusAt(now),
			RemainingSeconds: int64(req.RemainingAt(now) / time.Second),
		}
		if d, ok := w.directory.Doctor(req.FromDoctor); ok {
			views[i].FromDoctorSpecialization = d.Specialization
		}
		if d, ok := w.directory.Doctor(req.ToDoctor); ok {
			views[i].ToDoctorSpecialization = d.Specialization
		}
	}
	return views
}

// Create opens a transfer request for the record. The ledger assigns the
// request id and expiry; the client only renders the remaining time.
// Creation runs in the requesting doctor's context, while the request
// list is a patient-context query, so no reload follows here; the
// patient's next Reload picks the new request up.
func (w *Workflow) Create(ctx context.Context, recordID uint64, toDoctor types.Address) error {
	receipt, err := w.gateway.RequestTransfer(ctx, recordID, toDoctor)
	if err != nil {
		w.logger.WithComponent("transfer").WithError(err).Warn("Transfer request failed")
		return err
	}

	w.logger.WithComponent("transfer").WithFields(map[string]interface{}{
		"record_id": recordID,
		"to_doctor": toDoctor.Short(),
		"tx_hash":   receipt.TxHash,
	}).Info("Transfer requested")

	return nil
}

// Approve approves a pending request. Requests already known terminal are
// refused before any command is issued.
func (w *Workflow) Approve(ctx context.Context, requestID uint64) error {
	if err := w.guardPending(requestID); err != nil {
		return err
	}

	receipt, err := w.gateway.ApproveTransferByPatient(ctx, requestID)
	if err != nil {
		w.logger.WithComponent("transfer").WithError(err).Warn("Transfer approval failed")
		return err
	}

	w.logger.WithComponent("transfer").WithFields(map[string]interface{}{
		"request_id": requestID,
		"tx_hash":    receipt.TxHash,
	}).Info("Transfer approved")

	return w.Reload(ctx)
}

// Reject rejects a pending request with a non-empty reason.
func (w *Workflow) Reject(ctx context.Context, requestID uint64, reason string) error {
	if reason == "" {
		return ErrEmptyReason
	}
	if err := w.guardPending(requestID); err != nil {
		return err
	}

	receipt, err := w.gateway.RejectTransferByPatient(ctx, requestID, reason)
	if err != nil {
		w.logger.WithComponent("transfer").WithError(err).Warn("Transfer rejection failed")
		return err
	}

	w.logger.WithComponent("transfer").WithFields(map[string]interface{}{
		"request_id": requestID,
		"reason":     reason,
		"tx_hash":    receipt.TxHash,
	}).Info("Transfer rejected")

	return w.Reload(ctx)
}

// guardPending refuses mutation of a request the snapshot already shows
// as terminal. Requests not in the snapshot pass through to the ledger.
func (w *Workflow) guardPending(requestID uint64) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, req := range w.requests {
		if req.RequestID == requestID {
			if req.Terminal(w.now()) {
				return fmt.Errorf("request %d is %s: %w", requestID, req.StatusAt(w.now()), ErrNotPending)
			}
			return nil
		}
	}
	return nil
}

// Watch emits fresh display views once per interval until the context is
// cancelled, driving the countdown while a request list is displayed.
// The snapshot is not refetched; only the derived status and remaining
// time move.
func (w *Workflow) Watch(ctx context.Context, interval time.Duration) <-chan []RequestView {
	if interval <= 0 {
		interval = time.Second
	}

	out := make(chan []RequestView)
	go func() {
		defer close(out)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			select {
			case out <- w.Views():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
