package types

import (
	"fmt"
	"strings"
	"time"
)

// Address is a hex-encoded ledger account identifier. The ledger reports
// addresses in mixed case, so equality must ignore case.
type Address string

// Equal reports whether two addresses identify the same account.
func (a Address) Equal(other Address) bool {
	return strings.EqualFold(string(a), string(other))
}

// Normalized returns the lower-cased form used as a map key.
func (a Address) Normalized() Address {
	return Address(strings.ToLower(string(a)))
}

// Short returns the abbreviated display form, e.g. "0x1234...abcd".
func (a Address) Short() string {
	s := string(a)
	if len(s) <= 10 {
		return s
	}
	return s[:6] + "..." + s[len(s)-4:]
}

func (a Address) String() string {
	return string(a)
}

// Role identifies which capability set the connected identity holds.
// Exactly one role applies to an identity at a time; it is derived from
// ledger state, never stored.
type Role string

const (
	RoleOwner        Role = "owner"
	RolePatient      Role = "patient"
	RoleDoctor       Role = "doctor"
	RoleUnregistered Role = "unregistered"
)

// Doctor represents a registered doctor in the ledger directory.
type Doctor struct {
	Address        Address `json:"address"`
	Name           string  `json:"name"`
	Specialization string  `json:"specialization"`
	Active         bool    `json:"active"`
}

// Patient represents a registered patient in the ledger directory.
type Patient struct {
	Address Address `json:"address"`
	Name    string  `json:"name"`
	Age     uint64  `json:"age"`
}

// MedicalRecord is a ledger-owned diagnostic record. Records are created
// through the access-gated addRecord command and never mutated client-side.
type MedicalRecord struct {
	ID          uint64  `json:"record_id"`
	Disease     string  `json:"disease"`
	Diagnosis   string  `json:"diagnosis"`
	Treatment   string  `json:"treatment"`
	Timestamp   int64   `json:"timestamp"`
	DiagnosedBy Address `json:"diagnosed_by"`
}

// RecordedAt converts the ledger's unix-second timestamp to wall time.
func (r MedicalRecord) RecordedAt() time.Time {
	return time.Unix(r.Timestamp, 0)
}

// TransferStatus is the presentation state of a transfer request. The
// ledger only stores the approved flag and rejection reason; Expired is
// derived client-side from the expiry timestamp.
type TransferStatus string

const (
	TransferPending  TransferStatus = "pending"
	TransferApproved TransferStatus = "approved"
	TransferRejected TransferStatus = "rejected"
	TransferExpired  TransferStatus = "expired"
)

// TransferRequest is a time-bounded proposal to reassign diagnostic
// authorship of a record between doctors, keyed by record id.
type TransferRequest struct {
	RequestID       uint64  `json:"request_id"`
	RecordID        uint64  `json:"record_id"`
	Patient         Address `json:"patient_address"`
	FromDoctor      Address `json:"from_doctor"`
	ToDoctor        Address `json:"to_doctor"`
	Approved        bool    `json:"approved"`
	ExpiryTimestamp int64   `json:"expiry_timestamp"`
	RejectionReason string  `json:"rejection_reason"`
}

// ExpiresAt converts the unix-second expiry to wall time.
func (t TransferRequest) ExpiresAt() time.Time {
	return time.Unix(t.ExpiryTimestamp, 0)
}

// StatusAt derives the presentation state at the given instant. A
// non-empty rejection reason is terminal regardless of the approved flag
// or expiry; approval is terminal regardless of expiry.
func (t TransferRequest) StatusAt(now time.Time) TransferStatus {
	switch {
	case t.RejectionReason != "":
		return TransferRejected
	case t.Approved:
		return TransferApproved
	case !now.Before(t.ExpiresAt()):
		return TransferExpired
	default:
		return TransferPending
	}
}

// RemainingAt returns the time left before expiry, clamped at zero.
// Meaningful only while the request is pending.
func (t TransferRequest) RemainingAt(now time.Time) time.Duration {
	remaining := t.ExpiresAt().Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Terminal reports whether the request can no longer be approved or
// rejected as far as this client knows at the given instant.
func (t TransferRequest) Terminal(now time.Time) bool {
	return t.StatusAt(now) != TransferPending
}

// CommandReceipt describes a confirmed ledger command.
type CommandReceipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
}

func (r CommandReceipt) String() string {
	return fmt.Sprintf("tx %s (block %d)", r.TxHash, r.BlockNumber)
}
