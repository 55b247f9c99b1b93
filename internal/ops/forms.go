package ops

import (
	"context"
	"strings"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// ListFormsInput contains parameters for the ListForms operation.
type ListFormsInput struct {
	Status string // optional: pending or completed
}

// ListFormsOutput contains the result of the ListForms operation.
type ListFormsOutput struct {
	Forms   []workspace.EnrichedForm `json:"forms"`
	Pending int                      `json:"pending"`
}

// ListForms returns forms joined with their contacts, most recently sent first.
func ListForms(ctx context.Context, st *store.Store, input ListFormsInput) (*ListFormsOutput, error) {
	if err := checkCtx(ctx, "forms"); err != nil {
		return nil, err
	}
	status := workspace.FormStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	if status != "" && status != workspace.FormPending && status != workspace.FormCompleted {
		return nil, errors.NewInvalidRequest("status must be one of: pending, completed")
	}

	snap := st.Snapshot()
	all := workspace.EnrichForms(snap.Forms, snap.Contacts)
	out := make([]workspace.EnrichedForm, 0, len(all))
	for _, f := range all {
		if status == "" || f.Status == status {
			out = append(out, f)
		}
	}
	return &ListFormsOutput{
		Forms:   out,
		Pending: len(workspace.PendingForms(snap.Forms)),
	}, nil
}

// CompleteFormInput contains parameters for the CompleteForm operation.
type CompleteFormInput struct {
	ID string // required
}

// CompleteForm marks a form completed; a linked booking's formStatus follows.
func CompleteForm(ctx context.Context, st *store.Store, input CompleteFormInput) (*workspace.Form, error) {
	if err := checkCtx(ctx, "complete form"); err != nil {
		return nil, err
	}
	if err := requireActivated(st); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	f, err := st.SetFormStatus(id, workspace.FormCompleted)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
