package scheduling

import "context"

// Service proposes candidate meeting slots and confirms bookings with the
// external scheduling provider.
type Service interface {
	// ProposeSlots returns candidate meeting times, soonest first, RFC3339.
	ProposeSlots(ctx context.Context) ([]string, error)
	// Confirm books the slot for the attendee and returns an invite
	// reference when the provider supplies one. An error means no reference
	// was obtained; callers decide whether that fails the turn.
	Confirm(ctx context.Context, attendee map[string]string, slot string) (string, error)
}
