// Package schedule derives bookable time slots from the clinic's fixed daily
// template. It performs pure set arithmetic only: doctor existence and date
// validation are the caller's responsibility.
package schedule

// template is the fixed daily slot set: 30-minute labels across the morning
// and afternoon windows. Order is significant and preserved in all outputs.
var template = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30",
}

// Template returns a copy of the full daily slot set.
func Template() []string {
	out := make([]string, len(template))
	copy(out, template)
	return out
}

// ValidSlot reports whether label is a bookable slot of the daily template.
func ValidSlot(label string) bool {
	for _, s := range template {
		if s == label {
			return true
		}
	}
	return false
}

// Available returns the template minus the booked labels, in template order.
// Labels outside the template and duplicates in booked are ignored. A doctor
// with no booked slots yields the full template.
func Available(booked []string) []string {
	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}
	out := make([]string, 0, len(template))
	for _, s := range template {
		if !taken[s] {
			out = append(out, s)
		}
	}
	return out
}
