package types

import "fmt"

// EventKind enumerates the ledger event stream consumed by the reconciler.
type EventKind string

const (
	EventPatientRegistered EventKind = "PatientRegistered"
	EventDoctorRegistered  EventKind = "DoctorRegistered"
	EventRecordAdded       EventKind = "RecordAdded"
	EventRecordShared      EventKind = "RecordShared"
	EventAccessRevoked     EventKind = "AccessRevoked"
	EventDoctorActivated   EventKind = "DoctorActivated"
	EventDoctorDeactivated EventKind = "DoctorDeactivated"
	EventTransferRequested EventKind = "TransferRequested"
	EventTransferApproved  EventKind = "TransferApproved"
	EventTransferRejected  EventKind = "TransferRejected"
)

// AllEventKinds lists every kind the reconciler backfills and subscribes to.
var AllEventKinds = []EventKind{
	EventPatientRegistered,
	EventDoctorRegistered,
	EventRecordAdded,
	EventRecordShared,
	EventAccessRevoked,
	EventDoctorActivated,
	EventDoctorDeactivated,
	EventTransferRequested,
	EventTransferApproved,
	EventTransferRejected,
}

// Event is a single decoded ledger event occurrence. Only the fields
// relevant to the event's kind are populated.
type Event struct {
	Kind        EventKind `json:"kind"`
	BlockNumber uint64    `json:"block_number"`
	TxHash      string    `json:"tx_hash"`
	LogIndex    uint64    `json:"log_index"`

	Patient    Address `json:"patient,omitempty"`
	Doctor     Address `json:"doctor,omitempty"`
	Name       string  `json:"name,omitempty"`
	RecordID   uint64  `json:"record_id,omitempty"`
	RequestID  uint64  `json:"request_id,omitempty"`
	FromDoctor Address `json:"from_doctor,omitempty"`
	ToDoctor   Address `json:"to_doctor,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// ID is the deduplication key: originating transaction hash plus the log
// position within that transaction. Unique for the lifetime of the log.
func (e Event) ID() string {
	return fmt.Sprintf("%s:%d", e.TxHash, e.LogIndex)
}

// EventLogEntry is one line of the reconciled event log.
type EventLogEntry struct {
	EventID string `json:"event_id"`
	Message string `json:"message"`
}
