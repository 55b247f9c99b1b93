package ops

import (
	"context"
	"strings"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// OnboardInput contains parameters for the Onboard operation.
type OnboardInput struct {
	Name     string // required
	Timezone string // default: UTC
	Email    bool
	SMS      bool
}

// WorkspaceOutput wraps the workspace profile with the navigation for the current role.
type WorkspaceOutput struct {
	Workspace  workspace.Workspace `json:"workspace"`
	Role       workspace.Role      `json:"role"`
	Navigation []workspace.NavItem `json:"navigation"`
}

// Onboard finalises the setup wizard and activates the workspace.
func Onboard(ctx context.Context, st *store.Store, input OnboardInput) (*WorkspaceOutput, error) {
	if err := checkCtx(ctx, "onboard"); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	tz := strings.TrimSpace(input.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, errors.NewInvalidRequest("unknown timezone: " + tz)
	}

	step := workspace.MaxSetupStep
	activated := true
	w, err := st.UpdateWorkspace(workspace.Patch{
		Name:      &name,
		Timezone:  &tz,
		Channels:  &workspace.Channels{Email: input.Email, SMS: input.SMS},
		SetupStep: &step,
		Activated: &activated,
	})
	if err != nil {
		return nil, err
	}

	log.WithField("workspace", name).Info("workspace activated")
	return workspaceOutput(w, st.Role()), nil
}

// GetWorkspace returns the profile and navigation.
func GetWorkspace(ctx context.Context, st *store.Store) (*WorkspaceOutput, error) {
	if err := checkCtx(ctx, "workspace"); err != nil {
		return nil, err
	}
	return workspaceOutput(st.Workspace(), st.Role()), nil
}

// UpdateWorkspaceInput is a partial profile update. Nil fields are left untouched.
type UpdateWorkspaceInput struct {
	Name      *string
	Timezone  *string
	Email     *bool
	SMS       *bool
	SetupStep *int
}

// UpdateWorkspace merges the set fields into the profile. Channel flags are
// merged individually over the current channels.
func UpdateWorkspace(ctx context.Context, st *store.Store, input UpdateWorkspaceInput) (*WorkspaceOutput, error) {
	if err := checkCtx(ctx, "workspace update"); err != nil {
		return nil, err
	}

	patch := workspace.Patch{
		Name:      input.Name,
		Timezone:  cleanOptionalString(input.Timezone),
		SetupStep: input.SetupStep,
	}
	if input.SetupStep != nil && (*input.SetupStep < 0 || *input.SetupStep > workspace.MaxSetupStep) {
		return nil, errors.NewInvalidRequest("setup_step must be between 0 and 8")
	}
	if input.Email != nil || input.SMS != nil {
		ch := st.Workspace().Channels
		if input.Email != nil {
			ch.Email = *input.Email
		}
		if input.SMS != nil {
			ch.SMS = *input.SMS
		}
		patch.Channels = &ch
	}
	if patch.IsEmpty() {
		return nil, errors.NewInvalidRequest("at least one field is required")
	}

	w, err := st.UpdateWorkspace(patch)
	if err != nil {
		return nil, err
	}
	return workspaceOutput(w, st.Role()), nil
}

func workspaceOutput(w workspace.Workspace, role workspace.Role) *WorkspaceOutput {
	return &WorkspaceOutput{
		Workspace:  w,
		Role:       role,
		Navigation: workspace.Navigation(role),
	}
}

// SetRoleInput contains parameters for the SetRole operation.
type SetRoleInput struct {
	Role   string // owner|staff; ignored when Toggle is set
	Toggle bool
}

// SetRole switches the current role. It only changes which navigation entries show.
func SetRole(ctx context.Context, st *store.Store, input SetRoleInput) (*WorkspaceOutput, error) {
	if err := checkCtx(ctx, "role"); err != nil {
		return nil, err
	}

	role := workspace.Role(strings.ToLower(strings.TrimSpace(input.Role)))
	if input.Toggle {
		role = workspace.ToggleRole(st.Role())
	}
	if _, err := st.SetUserRole(role); err != nil {
		return nil, err
	}
	return workspaceOutput(st.Workspace(), role), nil
}
