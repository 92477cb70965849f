// Package clock provides the outbound.Clock adapter used by the application layer so "now" and
// timezone conversion stay mockable in tests.
package clock

import (
	"fmt"
	"time"

	"github.com/alchemorsel/nutricore/internal/ports/outbound"
)

// System implements outbound.Clock against the real wall clock and the IANA tzdata shipped with
// the Go runtime.
type System struct{}

// New creates the system clock adapter.
func New() outbound.Clock { return System{} }

// Now implements outbound.Clock.
func (System) Now() time.Time { return time.Now().UTC() }

// InZone implements outbound.Clock.
func (System) InZone(instant time.Time, iana string) (time.Time, error) {
	loc, err := time.LoadLocation(iana)
	if err != nil {
		return time.Time{}, fmt.Errorf("load location %q: %w", iana, err)
	}
	return instant.In(loc), nil
}
