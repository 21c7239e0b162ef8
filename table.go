package lox

// Table is the open-addressed, string-keyed hash table used for
// globals, instance fields, class method tables, and the string
// intern pool. Capacity is always a power of two; mask is
// capacity-1, used for the probe-start computation (a bitwise AND
// rather than a modulo over the raw capacity), applied consistently
// across every method below.
type Table struct {
	entries []entry
	count   int // live entries, NOT counting tombstones
	mask    int // capacity-1; capacity is always a power of two
}

type entry struct {
	key   *Obj // ObjString, or nil for empty/tombstone
	value Value
	// tombstone distinguishes "empty, never used" from "deleted": a
	// tombstone has key == nil and value == BoolValue(true); a truly
	// empty slot has key == nil and value == NilValue().
}

const tableMaxLoad = 0.75

func NewTable() *Table {
	return &Table{}
}

// Get probes the chain starting at hash&mask and returns the value
// stored for key, if any.
func (t *Table) Get(key *Obj) (Value, bool) {
	if t.count == 0 {
		return NilValue(), false
	}
	e := t.findEntry(t.entries, t.mask, key)
	if e.key == nil {
		return NilValue(), false
	}
	return e.value, true
}

// Set inserts or overwrites key's value and reports whether this was a
// new live key (as opposed to overwriting an existing one, which
// matters for the load-factor count).
func (t *Table) Set(key *Obj, value Value) bool {
	if float64(t.count+1) > float64(t.mask+1)*tableMaxLoad {
		t.adjustCapacity(growCapacity(t.mask + 1))
	}
	e := t.findEntry(t.entries, t.mask, key)
	isNewKey := e.key == nil
	if isNewKey && e.value.IsNil() {
		// A genuinely empty slot (not a reused tombstone) bumps count;
		// tombstones occupy space but never inflate the live count.
		t.count++
	}
	e.key = key
	e.value = value
	return isNewKey
}

// Delete marks key's slot as a tombstone. count is deliberately not
// decremented, so future resizes still budget room for the tombstone
// chain it leaves behind until the next adjustCapacity rebuild drops
// it.
func (t *Table) Delete(key *Obj) bool {
	if t.count == 0 {
		return false
	}
	e := t.findEntry(t.entries, t.mask, key)
	if e.key == nil {
		return false
	}
	e.key = nil
	e.value = BoolValue(true)
	return true
}

// AddAll copies every live (non-tombstone) key from src into t.
func (t *Table) AddAll(src *Table) {
	for i := range src.entries {
		e := &src.entries[i]
		if e.key != nil {
			t.Set(e.key, e.value)
		}
	}
}

// findString is the specialized lookup the intern pool uses to find
// an existing canonical string by content without allocating a
// temporary ObjString first.
func (t *Table) findString(chars string, hash uint32) *Obj {
	if t.count == 0 {
		return nil
	}
	mask := t.mask
	idx := int(hash) & mask
	for {
		e := &t.entries[idx]
		if e.key == nil {
			if e.value.IsNil() {
				return nil
			}
		} else if e.key.Hash == hash && e.key.Chars == chars {
			return e.key
		}
		idx = (idx + 1) & mask
	}
}

// findEntry returns a pointer to the first of: a matching entry, or an
// empty entry (reusing the earliest tombstone seen along the probe
// chain), continuing the probe past tombstones in search of a match.
func (t *Table) findEntry(entries []entry, mask int, key *Obj) *entry {
	idx := int(key.Hash) & mask
	var tombstone *entry
	for {
		e := &entries[idx]
		switch {
		case e.key == nil:
			if e.value.IsNil() {
				if tombstone != nil {
					return tombstone
				}
				return e
			}
			if tombstone == nil {
				tombstone = e
			}
		case e.key == key:
			return e
		}
		idx = (idx + 1) & mask
	}
}

// adjustCapacity resizes to newCapacity (a power of two), rebuilding
// from scratch: zero every slot, reinsert only live keys, recompute
// count (tombstones are dropped, never carried over).
func (t *Table) adjustCapacity(newCapacity int) {
	fresh := make([]entry, newCapacity)
	newMask := newCapacity - 1
	liveCount := 0
	for i := range t.entries {
		e := &t.entries[i]
		if e.key == nil {
			continue
		}
		dst := findEntryIn(fresh, newMask, e.key)
		dst.key = e.key
		dst.value = e.value
		liveCount++
	}
	t.entries = fresh
	t.mask = newMask
	t.count = liveCount
}

func findEntryIn(entries []entry, mask int, key *Obj) *entry {
	idx := int(key.Hash) & mask
	for {
		e := &entries[idx]
		if e.key == nil || e.key == key {
			return e
		}
		idx = (idx + 1) & mask
	}
}

func growCapacity(capacity int) int {
	if capacity < 8 {
		return 8
	}
	return capacity * 2
}

// removeWhite deletes every entry whose key string is unmarked. This
// is the intern pool's weak-reference fixup: it runs after marking and
// before sweep, and it is the only place weak references are
// reconciled — the pool itself is never a root.
func (t *Table) removeWhite() {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil && !e.key.IsMarked {
			e.key = nil
			e.value = BoolValue(true)
		}
	}
}

// mark traces every live key and value in the table, used both for
// globals (roots) and for instance/class method tables (reached while
// blackening their owning object).
func (t *Table) mark(vm *VM) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			vm.markObject(e.key)
			vm.markValue(e.value)
		}
	}
}
