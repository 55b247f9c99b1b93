// Package ops implements the workspace operations shared by the CLI, the MCP
// server, the web UI and the JSON API.
package ops

import (
	"context"
	"strings"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/logging"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// Automated message bodies sent by the public flows.
const (
	WelcomeReply       = "Hi there! Thanks for reaching out. We'll get back to you shortly."
	FormRequestMessage = "Please complete your intake form here: [Link]"
	IntakeFormTitle    = "Client Intake Form"

	// BookingTimeLayout formats booking times in automated messages ("Mar 10, 2026 9:00 AM").
	BookingTimeLayout = "Jan 2, 2006 3:04 PM"
)

// DefaultTimezone is used when onboarding omits a timezone.
const DefaultTimezone = "UTC"

var log = logging.NewLogger("ops")

// checkCtx returns CANCELLED when ctx is already done.
func checkCtx(ctx context.Context, op string) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return errors.NewCancelled(op)
	default:
		return nil
	}
}

// requireActivated rejects back-office mutations until onboarding finished.
func requireActivated(st *store.Store) error {
	if !st.Workspace().Activated {
		return errors.NewNotActivated()
	}
	return nil
}

// Location resolves the workspace timezone, falling back to UTC when it is
// empty or unknown.
func Location(w workspace.Workspace) *time.Location {
	tz := strings.TrimSpace(w.Timezone)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// cleanOptionalString trims s and returns nil when empty.
func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
