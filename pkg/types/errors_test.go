package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedgerErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"absence", NewAbsenceError("getPatientInfo", "not registered"), ErrorKindAbsence},
		{"user declined", NewUserDeclinedError("registerPatient", "signature rejected"), ErrorKindUserDeclined},
		{"ledger rejected", NewLedgerRejectedError("shareRecords", "already shared", nil), ErrorKindLedgerRejected},
		{"connectivity", NewConnectivityError("getOwner", errors.New("connection refused")), ErrorKindConnectivity},
		{"integrity", NewIntegrityError("getAllDoctors", "length mismatch"), ErrorKindIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestKindOfWrappedError(t *testing.T) {
	inner := NewAbsenceError("getDoctorInfo", "not registered")
	wrapped := fmt.Errorf("doctor probe failed: %w", inner)

	assert.Equal(t, ErrorKindAbsence, KindOf(wrapped))
	assert.True(t, IsAbsence(wrapped))
	assert.False(t, IsConnectivity(wrapped))
}

func TestKindOfUnclassifiedError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain error")))
	assert.False(t, IsAbsence(errors.New("plain error")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestLedgerErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewConnectivityError("getOwner", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connectivity")
	assert.Contains(t, err.Error(), "getOwner")
}
