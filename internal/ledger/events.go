package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthchain/ledger-client/pkg/interfaces"
	"github.com/healthchain/ledger-client/pkg/types"
)

type wireEvent struct {
	Kind        string `json:"kind"`
	BlockNumber uint64 `json:"block_number"`
	TxHash      string `json:"tx_hash"`
	LogIndex    uint64 `json:"log_index"`

	Patient    string `json:"patient,omitempty"`
	Doctor     string `json:"doctor,omitempty"`
	Name       string `json:"name,omitempty"`
	RecordID   uint64 `json:"record_id,omitempty"`
	RequestID  uint64 `json:"request_id,omitempty"`
	FromDoctor string `json:"from_doctor,omitempty"`
	ToDoctor   string `json:"to_doctor,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

func decodeEvent(raw wireEvent) (types.Event, error) {
	known := false
	for _, k := range types.AllEventKinds {
		if string(k) == raw.Kind {
			known = true
			break
		}
	}
	if !known {
		return types.Event{}, types.NewIntegrityError("decodeEvent", fmt.Sprintf("unknown event kind %q", raw.Kind))
	}
	if raw.TxHash == "" {
		return types.Event{}, types.NewIntegrityError("decodeEvent", "event has no transaction hash")
	}

	return types.Event{
		Kind:        types.EventKind(raw.Kind),
		BlockNumber: raw.BlockNumber,
		TxHash:      raw.TxHash,
		LogIndex:    raw.LogIndex,
		Patient:     types.Address(raw.Patient),
		Doctor:      types.Address(raw.Doctor),
		Name:        raw.Name,
		RecordID:    raw.RecordID,
		RequestID:   raw.RequestID,
		FromDoctor:  types.Address(raw.FromDoctor),
		ToDoctor:    types.Address(raw.ToDoctor),
		Reason:      raw.Reason,
	}, nil
}

// FilterEvents returns every historical occurrence of the event kind.
func (g *RPCGateway) FilterEvents(ctx context.Context, kind types.EventKind) ([]types.Event, error) {
	var raw []wireEvent
	if err := g.query(ctx, "getEvents", []interface{}{string(kind)}, &raw); err != nil {
		return nil, err
	}

	events := make([]types.Event, 0, len(raw))
	for _, w := range raw {
		event, err := decodeEvent(w)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

// SubscribeEvents installs a bridge-side filter for the given kinds and
// polls it until the subscription is cancelled. Undecodable occurrences
// surface on the error channel without closing the stream.
func (g *RPCGateway) SubscribeEvents(ctx context.Context, kinds []types.EventKind) (interfaces.EventSubscription, error) {
	kindNames := make([]string, len(kinds))
	for i, k := range kinds {
		kindNames[i] = string(k)
	}

	var filterID string
	if err := g.call(ctx, "createEventFilter", []interface{}{kindNames}, &filterID); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &eventSubscription{
		events: make(chan types.Event, 64),
		errs:   make(chan error, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go g.pollFilter(subCtx, filterID, sub)

	return sub, nil
}

func (g *RPCGateway) pollFilter(ctx context.Context, filterID string, sub *eventSubscription) {
	defer close(sub.done)
	defer close(sub.events)

	ticker := time.NewTicker(g.eventPollDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Best-effort filter removal; the bridge expires stale
			// filters on its own.
			removeCtx, removeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = g.call(removeCtx, "removeEventFilter", []interface{}{filterID}, nil)
			removeCancel()
			return
		case <-ticker.C:
		}

		var raw []wireEvent
		if err := g.call(ctx, "getFilterChanges", []interface{}{filterID}, &raw); err != nil {
			if ctx.Err() != nil {
				continue
			}
			select {
			case sub.errs <- err:
			default:
			}
			continue
		}

		for _, w := range raw {
			event, err := decodeEvent(w)
			if err != nil {
				select {
				case sub.errs <- err:
				default:
				}
				continue
			}
			select {
			case sub.events <- event:
			case <-ctx.Done():
			}
		}
	}
}

type eventSubscription struct {
	events chan types.Event
	errs   chan error
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *eventSubscription) Events() <-chan types.Event {
	return s.events
}

func (s *eventSubscription) Err() <-chan error {
	return s.errs
}

// Unsubscribe cancels the poll loop and waits for it to stop. The Events
// channel is closed before Unsubscribe returns.
func (s *eventSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
