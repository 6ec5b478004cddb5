package monitor

import (
	"math"
	"time"

	"github.com/jrsteele09/go-session-lifecycle/token"
)

// Phase is the expiry phase of a tab's session.
type Phase int

const (
	// Idle means no session is authenticated and no checks run.
	Idle Phase = iota
	Active
	Warning
	Expired
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Warning:
		return "warning"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// State is the per-tab view of the current access token's lifetime.
// SecondsRemaining is only meaningful in the Warning phase.
type State struct {
	Phase            Phase
	SecondsRemaining int
	ExpiresAt        time.Time
}

// Evaluate derives the phase of accessToken at now from the token's own exp claim.
// A token that cannot be parsed is Expired.
func Evaluate(accessToken string, now time.Time, threshold time.Duration) State {
	exp, err := token.ParseExpiry(accessToken)
	if err != nil {
		return State{Phase: Expired}
	}

	remaining := exp.Sub(now)
	switch {
	case remaining <= 0:
		return State{Phase: Expired, ExpiresAt: exp}
	case remaining <= threshold:
		return State{
			Phase:            Warning,
			SecondsRemaining: int(math.Ceil(remaining.Seconds())),
			ExpiresAt:        exp,
		}
	default:
		return State{Phase: Active, ExpiresAt: exp}
	}
}
