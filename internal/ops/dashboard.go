package ops

import (
	"context"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// DashboardOutput contains the result of the Dashboard operation.
type DashboardOutput struct {
	Greeting string `json:"greeting"`
	workspace.Dashboard
	Role       workspace.Role      `json:"role"`
	Navigation []workspace.NavItem `json:"navigation"`
}

// Dashboard summarises today's bookings, unread messages, pending forms and low stock.
func Dashboard(ctx context.Context, st *store.Store) (*DashboardOutput, error) {
	if err := checkCtx(ctx, "dashboard"); err != nil {
		return nil, err
	}

	snap := st.Snapshot()
	now := st.Now().In(Location(snap.Workspace))
	return &DashboardOutput{
		Greeting:   Greeting(snap.Workspace, snap.Role),
		Dashboard:  workspace.BuildDashboard(snap, now),
		Role:       snap.Role,
		Navigation: workspace.Navigation(snap.Role),
	}, nil
}

// Greeting is the dashboard headline for role.
func Greeting(w workspace.Workspace, role workspace.Role) string {
	if role == workspace.RoleOwner {
		return "Overview for " + w.Name
	}
	return "Hello, Staff Member"
}
