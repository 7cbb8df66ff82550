package engine

import "sort"

// Module is a loaded image in the debuggee's address space.
type Module struct {
	Base          uint64
	Size          uint64
	Path          string
	LoadOrder     int
	SymbolsLoaded bool
	SymbolPath    string
}

// ModuleRegistry tracks the address->module map and the load-order list.
// Structural updates happen on the poll thread; reads are allowed from any
// thread. Every address-map entry has exactly one matching list entry with
// the same load order.
type ModuleRegistry struct {
	byBase []*Module // kept sorted by Base for range lookup
	list   []*Module // kept sorted by LoadOrder
}

// NewModuleRegistry returns an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{}
}

// Add registers a newly loaded module at the next load-order slot.
func (r *ModuleRegistry) Add(m *Module) {
	m.LoadOrder = len(r.list) + 1
	r.list = append(r.list, m)
	idx := sort.Search(len(r.byBase), func(i int) bool { return r.byBase[i].Base >= m.Base })
	r.byBase = append(r.byBase, nil)
	copy(r.byBase[idx+1:], r.byBase[idx:])
	r.byBase[idx] = m
}

// Remove unregisters a module and cascades a decrement of load order to
// every module that loaded after it, preserving contiguous 1-based order.
func (r *ModuleRegistry) Remove(m *Module) {
	for i, candidate := range r.list {
		if candidate == m {
			r.list = append(r.list[:i], r.list[i+1:]...)
			for _, later := range r.list[i:] {
				later.LoadOrder--
			}
			break
		}
	}
	for i, candidate := range r.byBase {
		if candidate == m {
			r.byBase = append(r.byBase[:i], r.byBase[i+1:]...)
			break
		}
	}
}

// Find performs a range lookup: the module whose [Base, Base+Size) contains addr.
func (r *ModuleRegistry) Find(addr uint64) *Module {
	idx := sort.Search(len(r.byBase), func(i int) bool { return r.byBase[i].Base > addr }) - 1
	if idx < 0 || idx >= len(r.byBase) {
		return nil
	}
	m := r.byBase[idx]
	if addr >= m.Base && addr < m.Base+m.Size {
		return m
	}
	return nil
}

// List returns modules ordered by load order. The returned slice is a copy.
func (r *ModuleRegistry) List() []*Module {
	out := make([]*Module, len(r.list))
	copy(out, r.list)
	return out
}
