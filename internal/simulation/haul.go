package simulation

import (
	"sort"

	"github.com/gravitas-games/millworks/internal/metrics"
	"github.com/gravitas-games/millworks/pkg/inventory"
	"github.com/gravitas-games/millworks/pkg/production"
)

// Haul runs one haulage pass immediately.
func (w *World) Haul() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.haulLocked()
}

// haulLocked moves finished goods from each bound building into its
// warehouse, then refills inputs from the same warehouse. Trips are instant;
// the road distance only decides which warehouse serves a building.
func (w *World) haulLocked() {
	ids := make([]production.BuildingID, 0, len(w.buildings))
	for id := range w.buildings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		b := w.buildings[id]
		if b.Cycle == nil {
			continue
		}
		binding := b.Cycle.Binding()
		if binding == nil {
			continue
		}
		site, ok := w.warehouses[binding.WarehouseID]
		if !ok {
			continue
		}
		if b.Output != nil {
			w.collectInto(b, site.store)
		}
		if b.Input != nil {
			w.supplyFrom(b, site.store)
		}
	}
}

func (w *World) collectInto(b *Building, store *inventory.Store) {
	item := b.Output.Item()
	n := w.batch(b.Output.Stored())
	for n > 0 && !store.CanAdd(item, n) {
		n--
	}
	if n == 0 {
		return
	}
	taken := b.Output.Withdraw(n)
	if err := store.Add(item, taken); err != nil {
		w.logger.Error("haul collect failed", "building", b.ID, "warehouse", store.ID, "error", err)
		return
	}
	w.logger.Debug("hauled to warehouse", "building", b.ID, "warehouse", store.ID, "item", item, "units", taken)
	if w.collector != nil {
		w.collector.RecordHaul(metrics.HaulCollect, string(item), taken)
	}
}

func (w *World) supplyFrom(b *Building, store *inventory.Store) {
	for _, need := range b.Input.Demand() {
		n := w.batch(min(need.Quantity, store.Count(need.Item)))
		if n == 0 {
			continue
		}
		if err := store.Remove(need.Item, n); err != nil {
			w.logger.Error("haul supply failed", "building", b.ID, "warehouse", store.ID, "error", err)
			continue
		}
		accepted, err := b.Input.Deliver(need.Item, n)
		if err != nil {
			w.logger.Error("haul delivery rejected", "building", b.ID, "item", need.Item, "error", err)
		}
		if rest := n - accepted; rest > 0 {
			// store had room for these a moment ago
			_ = store.Add(need.Item, rest)
		}
		if accepted == 0 {
			continue
		}
		w.logger.Debug("hauled to building", "building", b.ID, "warehouse", store.ID, "item", need.Item, "units", accepted)
		if w.collector != nil {
			w.collector.RecordHaul(metrics.HaulSupply, string(need.Item), accepted)
		}
	}
}

func (w *World) batch(n int) int {
	if w.haulBatch > 0 && n > w.haulBatch {
		return w.haulBatch
	}
	return n
}
