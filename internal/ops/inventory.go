package ops

import (
	"context"
	"strings"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// InventoryRow is an item with its low-stock flag.
type InventoryRow struct {
	workspace.InventoryItem
	Low bool `json:"low"`
}

// InventoryInput contains parameters for the Inventory operation.
type InventoryInput struct {
	LowOnly bool
}

// InventoryOutput contains the result of the Inventory operation.
type InventoryOutput struct {
	Items    []InventoryRow `json:"items"`
	LowStock int            `json:"low_stock"`
}

// Inventory lists stocked items in stored order.
func Inventory(ctx context.Context, st *store.Store, input InventoryInput) (*InventoryOutput, error) {
	if err := checkCtx(ctx, "inventory"); err != nil {
		return nil, err
	}

	items := st.Snapshot().Inventory
	out := &InventoryOutput{Items: make([]InventoryRow, 0, len(items))}
	for _, it := range items {
		low := workspace.IsLowStock(it)
		if low {
			out.LowStock++
		}
		if input.LowOnly && !low {
			continue
		}
		out.Items = append(out.Items, InventoryRow{InventoryItem: it, Low: low})
	}
	return out, nil
}

// AdjustInventoryInput contains parameters for the AdjustInventory operation.
type AdjustInventoryInput struct {
	ID    string // required
	Delta int    // signed; the result is clamped at 0
}

// AdjustInventoryOutput contains the result of the AdjustInventory operation.
// Found is false (and Item empty) when no item has the id.
type AdjustInventoryOutput struct {
	Found bool          `json:"found"`
	Item  *InventoryRow `json:"item,omitempty"`
}

// AdjustInventory applies a signed delta to an item's quantity.
// An unknown id is not an error.
func AdjustInventory(ctx context.Context, st *store.Store, input AdjustInventoryInput) (*AdjustInventoryOutput, error) {
	if err := checkCtx(ctx, "adjust inventory"); err != nil {
		return nil, err
	}
	if err := requireActivated(st); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}

	item, found, err := st.UpdateInventoryQuantity(id, input.Delta)
	if err != nil {
		return nil, err
	}
	if !found {
		log.WithField("item_id", id).Debug("inventory adjust ignored unknown id")
		return &AdjustInventoryOutput{Found: false}, nil
	}
	return &AdjustInventoryOutput{
		Found: true,
		Item:  &InventoryRow{InventoryItem: item, Low: workspace.IsLowStock(item)},
	}, nil
}

// AddInventoryItemInput contains parameters for the AddInventoryItem operation.
type AddInventoryItemInput struct {
	Name      string // required
	Quantity  int
	Threshold int
}

// AddInventoryItem starts tracking a new item.
func AddInventoryItem(ctx context.Context, st *store.Store, input AddInventoryItemInput) (*InventoryRow, error) {
	if err := checkCtx(ctx, "add inventory item"); err != nil {
		return nil, err
	}
	if err := requireActivated(st); err != nil {
		return nil, err
	}

	item, err := st.AddInventoryItem(workspace.InventoryItem{
		Name:      input.Name,
		Quantity:  input.Quantity,
		Threshold: input.Threshold,
	})
	if err != nil {
		return nil, err
	}
	return &InventoryRow{InventoryItem: item, Low: workspace.IsLowStock(item)}, nil
}
