package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusPending, false},
		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusConfirmed, false},
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusPending, StatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.False(t, Terminal(StatusPending))
	assert.False(t, Terminal(StatusConfirmed))
	assert.True(t, Terminal(StatusCompleted))
	assert.True(t, Terminal(StatusCancelled))
}

func TestValidStatus(t *testing.T) {
	for _, s := range []string{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled} {
		assert.True(t, ValidStatus(s))
	}
	assert.False(t, ValidStatus("archived"))
	assert.False(t, ValidStatus(""))
}

func TestValidType(t *testing.T) {
	for _, v := range []string{TypeFirstVisit, TypeFollowUp, TypeConsultation, TypeEmergency} {
		assert.True(t, ValidType(v))
	}
	assert.False(t, ValidType("walk-in"))
}

func TestPrescriptionRoundTrip(t *testing.T) {
	items := []PrescriptionItem{
		{Medicine: "amoxicillin", Dosage: "500mg", Frequency: "8h", Duration: "7d"},
	}
	encoded := MarshalPrescription(items)
	decoded, err := UnmarshalPrescription([]byte(encoded))
	require.NoError(t, err)
	assert.Equal(t, items, decoded)

	assert.Equal(t, "[]", MarshalPrescription(nil))

	decoded, err = UnmarshalPrescription(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)

	_, err = UnmarshalPrescription([]byte("{broken"))
	assert.Error(t, err)
}
