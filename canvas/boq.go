package canvas

import (
	"encoding/json"
	"fmt"
	"sort"
)

// BOQItem is one master bill-of-quantities row. DesignQty, UnitPrice and
// ContractAmount come from the import; ActualQty/ActualAmount and PlanQty/PlanAmount
// are derived from the scene objects and overwritten on every recompute.
type BOQItem struct {
	ID             string  `json:"id"`
	Order          int     `json:"order"`
	Name           string  `json:"name"`
	Unit           string  `json:"unit"`
	DesignQty      float64 `json:"designQty"`
	ActualQty      float64 `json:"actualQty"`
	PlanQty        float64 `json:"planQty"`
	UnitPrice      float64 `json:"unitPrice"`
	ContractAmount float64 `json:"contractAmount"`
	ActualAmount   float64 `json:"actualAmount"`
	PlanAmount     float64 `json:"planAmount"`
}

// RecomputeBOQ derives per-item actuals and plans from the objects' statuses:
// actual sums assignments of completed objects, plan sums assignments of planned
// objects, amount = qty * unitPrice. Items are updated in place; the returned flag is
// false when every derived value already matched, so callers can avoid re-triggering
// themselves.
//
// Only completed and planned count here. The dashboard value summary additionally
// folds in_progress into the planned bucket; the two rules are intentionally distinct.
func RecomputeBOQ(items []BOQItem, objects []*Object) bool {
	changed := false
	for i := range items {
		var actualQty, planQty float64
		for _, obj := range objects {
			qty, ok := obj.BOQAssignments[items[i].ID]
			if !ok || qty == 0 {
				continue
			}
			switch obj.Status {
			case StatusCompleted:
				actualQty += qty
			case StatusPlanned:
				planQty += qty
			}
		}
		actualAmount := actualQty * items[i].UnitPrice
		planAmount := planQty * items[i].UnitPrice

		if items[i].ActualQty != actualQty || items[i].PlanQty != planQty ||
			items[i].ActualAmount != actualAmount || items[i].PlanAmount != planAmount {
			items[i].ActualQty = actualQty
			items[i].PlanQty = planQty
			items[i].ActualAmount = actualAmount
			items[i].PlanAmount = planAmount
			changed = true
		}
	}
	return changed
}

// ValueSummary is the dashboard roll-up of contract value by workflow bucket.
type ValueSummary struct {
	TotalContract float64
	Completed     float64
	Planned       float64
	Remaining     float64
}

// SummarizeValues aggregates assigned value for display. Unlike RecomputeBOQ, objects
// that are in_progress contribute to the Planned bucket here. Assignments referencing
// an unknown item contribute nothing.
func SummarizeValues(items []BOQItem, objects []*Object) ValueSummary {
	prices := make(map[string]float64, len(items))
	var sum ValueSummary
	for _, item := range items {
		prices[item.ID] = item.UnitPrice
		sum.TotalContract += item.ContractAmount
	}

	for _, obj := range objects {
		for itemID, qty := range obj.BOQAssignments {
			price, known := prices[itemID]
			if !known {
				continue
			}
			switch obj.Status {
			case StatusCompleted:
				sum.Completed += qty * price
			case StatusPlanned, StatusInProgress:
				sum.Planned += qty * price
			}
		}
	}

	sum.Remaining = maxf(0, sum.TotalContract-sum.Completed-sum.Planned)
	return sum
}

// AssignmentRow is one resolved BOQ assignment of an object, for display. Warning is
// set when the referenced item is missing from the master table; the assignment is
// kept but prices resolve to zero.
type AssignmentRow struct {
	ItemID    string
	Name      string
	Unit      string
	Qty       float64
	UnitPrice float64
	Amount    float64
	Warning   string
}

// ResolveAssignments joins an object's assignments against the master table, in
// stable item order with unknown ids last.
func ResolveAssignments(items []BOQItem, obj *Object) []AssignmentRow {
	rows := make([]AssignmentRow, 0, len(obj.BOQAssignments))
	seen := make(map[string]struct{}, len(obj.BOQAssignments))

	for _, item := range items {
		qty, ok := obj.BOQAssignments[item.ID]
		if !ok {
			continue
		}
		seen[item.ID] = struct{}{}
		rows = append(rows, AssignmentRow{
			ItemID:    item.ID,
			Name:      item.Name,
			Unit:      item.Unit,
			Qty:       qty,
			UnitPrice: item.UnitPrice,
			Amount:    qty * item.UnitPrice,
		})
	}

	for _, itemID := range sortedKeys(obj.BOQAssignments) {
		if _, ok := seen[itemID]; ok {
			continue
		}
		rows = append(rows, AssignmentRow{
			ItemID:  itemID,
			Qty:     obj.BOQAssignments[itemID],
			Warning: "ID not found in master BOQ (prices will be 0)",
		})
	}
	return rows
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EncodeBOQ serializes the master table as the stored JSON array.
func EncodeBOQ(items []BOQItem) (string, error) {
	if items == nil {
		items = []BOQItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode boq: %w", err)
	}
	return string(b), nil
}

// DecodeBOQ parses the stored JSON array. Payloads that are not an array (older
// saves) decode to an empty table rather than failing the load.
func DecodeBOQ(raw string) ([]BOQItem, error) {
	if raw == "" {
		return []BOQItem{}, nil
	}
	var items []BOQItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		var anything any
		if jsonErr := json.Unmarshal([]byte(raw), &anything); jsonErr == nil {
			return []BOQItem{}, nil
		}
		return nil, fmt.Errorf("decode boq: %w", err)
	}
	if items == nil {
		items = []BOQItem{}
	}
	return items, nil
}
