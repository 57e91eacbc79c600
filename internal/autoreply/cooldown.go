package autoreply

import "time"

// Cooldown policies.
const (
	PolicyReschedule = "reschedule"
	PolicyDrop       = "drop"
)

// rearmBuffer pads the re-armed delay so the next fire lands after
// the cooldown window, not exactly on its edge.
const rearmBuffer = 500 * time.Millisecond

// CheckCooldown reports whether a reply is allowed now, and if not,
// how long until the window opens.
func CheckCooldown(lastReplyAt, now time.Time, window time.Duration) (allowed bool, remaining time.Duration) {
	if lastReplyAt.IsZero() || window <= 0 {
		return true, 0
	}
	elapsed := now.Sub(lastReplyAt)
	if elapsed >= window {
		return true, 0
	}
	return false, window - elapsed
}
