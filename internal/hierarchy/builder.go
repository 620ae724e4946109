package hierarchy

import (
	"fmt"
	"sort"
)

// Builder assembles the place hierarchy from a stream of RawRows, the same
// three-phase process as Hierarchy in original_source/importer/src/hierarchy.cpp:
// ingest (AddItem/AddLinkedItem), cleanup (Cleanup), then index assignment
// (Finalize). It owns every Item in a single map keyed by place id instead of
// sharing std::shared_ptr parent/child pointers.
type Builder struct {
	items map[int64]*Item

	// root holds items whose parent hasn't been seen yet, keyed by the
	// parent id they're waiting on (0 covers items with no parent at all).
	root map[int64]map[int64]struct{}

	rootFinalized []int64

	priorityTypes map[string]bool
	skipTypes     map[string]bool
}

// NewBuilder constructs an empty Builder. priorityTypes names geocoder
// types that survive cleanup even without a name (e.g. administrative
// boundaries); skipTypes names types dropped unconditionally.
func NewBuilder(priorityTypes, skipTypes []string) *Builder {
	b := &Builder{
		items:         make(map[int64]*Item),
		root:          make(map[int64]map[int64]struct{}),
		priorityTypes: make(map[string]bool, len(priorityTypes)),
		skipTypes:     make(map[string]bool, len(skipTypes)),
	}
	for _, t := range priorityTypes {
		b.priorityTypes[t] = true
	}
	for _, t := range skipTypes {
		b.skipTypes[t] = true
	}
	return b
}

func (b *Builder) addToRoot(parentID, itemID int64) {
	set, ok := b.root[parentID]
	if !ok {
		set = make(map[int64]struct{})
		b.root[parentID] = set
	}
	set[itemID] = struct{}{}
}

// AddItem ingests one primary relational-source row, mirroring
// Hierarchy::add_item: link it to its parent if already seen, otherwise
// park it under root[parent_id]; then check whether any previously parked
// item was waiting on this id as its parent and, if so, adopt it.
func (b *Builder) AddItem(row RawRow) error {
	if _, exists := b.items[row.PlaceID]; exists {
		return fmt.Errorf("hierarchy: item %d inserted twice", row.PlaceID)
	}

	it := newItem(row)
	b.items[it.ID] = it

	if parent, ok := b.items[it.ParentID]; ok {
		parent.Children = append(parent.Children, it.ID)
	} else {
		b.addToRoot(it.ParentID, it.ID)
	}

	if waiting, ok := b.root[it.ID]; ok {
		ids := sortedKeys(waiting)
		for _, waitingID := range ids {
			child := b.items[waitingID]
			if child.ParentID != it.ID {
				return fmt.Errorf("hierarchy: item %d parked under %d but its parent is %d",
					waitingID, it.ID, child.ParentID)
			}
			it.Children = append(it.Children, waitingID)
		}
		delete(b.root, it.ID)
	}

	return nil
}

// AddLinkedItem merges a linked row's name/extra tags into its target item,
// filling in only keys the target doesn't already have (the same semantics
// as std::map::insert in Hierarchy::add_linked_item: existing keys win).
// It reports false when the target hasn't been seen, matching the C++
// version's "skipping linkage" behavior rather than an error.
func (b *Builder) AddLinkedItem(row RawRow) bool {
	linked := newItem(row)
	target, ok := b.items[linked.LinkedID]
	if !ok {
		return false
	}
	for k, v := range linked.DataName {
		if _, exists := target.DataName[k]; !exists {
			target.DataName[k] = v
		}
	}
	for k, v := range linked.DataExtra {
		if _, exists := target.DataExtra[k]; !exists {
			target.DataExtra[k] = v
		}
	}
	return true
}

// SetCountry relocates every root item belonging to country (other than id
// itself) to be a child of id, mirroring Hierarchy::set_country. It is used
// to attach a country's subdivisions to a single country-level place when
// the source data splits a country across multiple disconnected roots.
func (b *Builder) SetCountry(country string, id int64) error {
	parent, ok := b.items[id]
	if !ok {
		return fmt.Errorf("hierarchy: set_country: missing country item %d (%s)", id, country)
	}

	for parentID, set := range b.root {
		var toRemove []int64
		for itemID := range set {
			item := b.items[itemID]
			if item.Country == country && item.ID != id {
				parent.Children = append(parent.Children, item.ID)
				toRemove = append(toRemove, itemID)
			}
		}
		for _, itemID := range toRemove {
			delete(set, itemID)
		}
		if len(set) == 0 {
			delete(b.root, parentID)
		}
	}
	return nil
}

// Cleanup drops items that fail keep() from every root branch, promoting a
// dropped item's children up to its own position, collapses duplicate
// siblings, then forces the parent id of every surviving root item,
// mirroring Hierarchy::cleanup.
func (b *Builder) Cleanup() {
	for parentID, set := range b.root {
		var survivors []int64
		for _, itemID := range sortedKeys(set) {
			item := b.items[itemID]
			b.cleanupChildren(item)
			if b.keep(item) {
				survivors = append(survivors, item.ID)
			} else {
				survivors = append(survivors, item.Children...)
			}
		}
		survivors = b.mergeDuplicates(survivors)

		kept := make(map[int64]struct{}, len(survivors))
		for _, id := range survivors {
			kept[id] = struct{}{}
			b.items[id].ParentID = parentID
		}
		b.root[parentID] = kept
	}
}

// cleanupChildren recursively filters it's children, replacing any child
// that fails keep() with that child's own (already-cleaned) children, then
// collapses duplicate siblings among what remains, then force-reparents the
// surviving children onto it. Mirrors HierarchyItem::cleanup_children plus
// the duplicate-collapse step of Hierarchy::cleanup (the C++ version applies
// both at every level of the tree, not just at the root).
func (b *Builder) cleanupChildren(it *Item) {
	var children []int64
	for _, cid := range it.Children {
		child := b.items[cid]
		b.cleanupChildren(child)
		if b.keep(child) {
			children = append(children, child.ID)
		} else {
			children = append(children, child.Children...)
		}
	}
	it.Children = b.mergeDuplicates(children)

	for _, cid := range it.Children {
		b.items[cid].ParentID = it.ID
	}
}

// mergeDuplicates groups ids (already keep()-filtered siblings, in
// ascending order) by duplicateKey and folds every non-survivor into the
// first-seen survivor of its group: survivor.Children gains the
// duplicate's children, duplicate detection re-runs on the enlarged
// children set, and the duplicate is flagged Dropped so it's excluded from
// Finalize's walk without needing to be removed from the arena.
func (b *Builder) mergeDuplicates(ids []int64) []int64 {
	if len(ids) < 2 {
		return ids
	}

	groups := make(map[duplicateKey][]int64)
	var order []duplicateKey
	for _, id := range ids {
		item := b.items[id]
		key := b.duplicateKeyFor(item)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], id)
	}

	survivors := make([]int64, 0, len(order))
	for _, key := range order {
		group := groups[key]
		survivorID := group[0]
		survivor := b.items[survivorID]
		for _, dupID := range group[1:] {
			dup := b.items[dupID]
			survivor.Children = append(survivor.Children, dup.Children...)
			dup.Dropped = true
		}
		if len(group) > 1 {
			survivor.Children = b.mergeDuplicates(survivor.Children)
		}
		survivors = append(survivors, survivorID)
	}
	return survivors
}

// Finalize flattens every surviving root branch, assigns nested-set indices
// depth-first starting at 1 (the my_index/last_child_index pair), and
// zeroes the parent id of every top-level root item. Mirrors
// Hierarchy::finalize. It returns an error if a non-kept item is reachable,
// which would indicate Cleanup was skipped or a bookkeeping bug.
func (b *Builder) Finalize() error {
	b.rootFinalized = b.rootItems()

	var idx int64 = 1
	for _, id := range b.rootFinalized {
		item := b.items[id]
		next, err := b.indexItem(item, idx, 0)
		if err != nil {
			return err
		}
		idx = next
		item.ParentID = 0
	}
	return nil
}

func (b *Builder) indexItem(it *Item, idx, parentIndex int64) (int64, error) {
	if !b.keep(it) {
		return 0, fmt.Errorf("hierarchy: attempted to index dropped item %d (type %s)", it.ID, it.Type)
	}
	it.MyIndex = idx
	it.ParentIndex = parentIndex
	idx++
	for _, cid := range it.Children {
		child := b.items[cid]
		next, err := b.indexItem(child, idx, it.MyIndex)
		if err != nil {
			return 0, err
		}
		idx = next
	}
	it.LastChildIndex = idx - 1
	return idx, nil
}

// rootItems flattens every root bucket into a single, deterministically
// ordered slice of ids (parent bucket id, then item id), matching the
// C++ deque built by Hierarchy::root_items — but explicit about ordering,
// since Go map iteration has none.
func (b *Builder) rootItems() []int64 {
	var parents []int64
	for p := range b.root {
		parents = append(parents, p)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	var ids []int64
	for _, p := range parents {
		ids = append(ids, sortedKeys(b.root[p])...)
	}
	return ids
}

// CheckIndexing verifies the nested-set invariant on every finalized item:
// a parent's interval strictly contains each child's, and every index is at
// least 1. It also reports any kept, non-dropped item that Finalize never
// reached, which is what a parent cycle leaves behind. Mirrors the sanity
// pass implied by Hierarchy::check_indexing (the C++ version mainly re-walks
// and prints; this asserts the invariant that containment queries rely on).
func (b *Builder) CheckIndexing() error {
	for _, id := range b.rootFinalized {
		if err := b.checkItem(b.items[id]); err != nil {
			return err
		}
	}
	for _, id := range sortedItemIDs(b.items) {
		it := b.items[id]
		if !it.Dropped && b.keep(it) && it.MyIndex == 0 {
			return fmt.Errorf("hierarchy: item %d (parent %d) is not reachable from any root; parent cycle?",
				it.ID, it.ParentID)
		}
	}
	return nil
}

func sortedItemIDs(m map[int64]*Item) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *Builder) checkItem(it *Item) error {
	if it.MyIndex <= 0 || it.LastChildIndex < it.MyIndex {
		return fmt.Errorf("hierarchy: item %d has invalid index range [%d, %d]",
			it.ID, it.MyIndex, it.LastChildIndex)
	}
	for _, cid := range it.Children {
		child := b.items[cid]
		if child.MyIndex <= it.MyIndex || child.LastChildIndex > it.LastChildIndex {
			return fmt.Errorf("hierarchy: child %d [%d,%d] not contained in parent %d [%d,%d]",
				child.ID, child.MyIndex, child.LastChildIndex, it.ID, it.MyIndex, it.LastChildIndex)
		}
		if err := b.checkItem(child); err != nil {
			return err
		}
	}
	return nil
}

// Items returns the builder's item arena for the writer to walk after
// Finalize. Callers must not mutate the returned map.
func (b *Builder) Items() map[int64]*Item {
	return b.items
}

// RootItems returns the finalized, depth-first-ordered list of top-level
// item ids. Valid only after Finalize.
func (b *Builder) RootItems() []int64 {
	return b.rootFinalized
}

// MissingCount reports how many distinct parent ids are still unresolved,
// i.e. referenced by some item but never added themselves (Hierarchy's
// get_missing_count).
func (b *Builder) MissingCount() int {
	return len(b.root)
}

// MissingParentIDs returns every non-zero parent id still unresolved, in
// ascending order, for the importer's iterative fetch-by-id loop (spec
// §4.2 step 3: "fetch missing parents by id iteratively until every
// non-zero root parent has a resolved node").
func (b *Builder) MissingParentIDs() []int64 {
	var ids []int64
	for id := range b.root {
		if id != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RootCountries returns the distinct, non-empty country codes carried by
// items currently parked at root with no resolved parent (parent id 0),
// used by the importer's SetCountry pass.
func (b *Builder) RootCountries() []string {
	seen := make(map[string]bool)
	var countries []string
	for _, itemID := range sortedKeys(b.root[0]) {
		c := b.items[itemID].Country
		if c != "" && !seen[c] {
			seen[c] = true
			countries = append(countries, c)
		}
	}
	return countries
}

// HasItem reports whether id has been ingested.
func (b *Builder) HasItem(id int64) bool {
	_, ok := b.items[id]
	return ok
}

func sortedKeys(m map[int64]struct{}) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
