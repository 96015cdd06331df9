package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate(t *testing.T) {
	slots := Template()
	require.Len(t, slots, 12)
	assert.Equal(t, "09:00", slots[0])
	assert.Equal(t, "11:30", slots[5])
	assert.Equal(t, "14:00", slots[6])
	assert.Equal(t, "16:30", slots[11])

	// Mutating the returned slice must not affect later calls.
	slots[0] = "00:00"
	assert.Equal(t, "09:00", Template()[0])
}

func TestValidSlot(t *testing.T) {
	assert.True(t, ValidSlot("09:00"))
	assert.True(t, ValidSlot("16:30"))
	assert.False(t, ValidSlot("12:00"))
	assert.False(t, ValidSlot("09:15"))
	assert.False(t, ValidSlot(""))
	assert.False(t, ValidSlot("9:00"))
}

func TestAvailable(t *testing.T) {
	t.Run("no bookings yields full template", func(t *testing.T) {
		assert.Equal(t, Template(), Available(nil))
	})

	t.Run("booked slots are removed in template order", func(t *testing.T) {
		got := Available([]string{"10:00", "09:00", "15:30"})
		assert.Equal(t, []string{"09:30", "10:30", "11:00", "11:30", "14:00", "14:30", "15:00", "16:00", "16:30"}, got)
	})

	t.Run("fully booked day yields empty set", func(t *testing.T) {
		got := Available(Template())
		assert.Empty(t, got)
	})

	t.Run("duplicates and unknown labels are ignored", func(t *testing.T) {
		got := Available([]string{"09:00", "09:00", "12:00", "garbage"})
		assert.Len(t, got, 11)
		assert.NotContains(t, got, "09:00")
	})
}
