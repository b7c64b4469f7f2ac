package state

// Tracker remembers the last state sent for each component and which
// components were marked dirty since.
type Tracker struct {
	snapshots map[string]map[string]interface{}
	dirty     map[string]struct{}
	order     []string
}

func NewTracker() *Tracker {
	return &Tracker{
		snapshots: make(map[string]map[string]interface{}),
		dirty:     make(map[string]struct{}),
	}
}

// MarkDirty flags id for the next sync. Marking an already dirty id does
// nothing.
func (t *Tracker) MarkDirty(id string) {
	if _, exists := t.dirty[id]; exists {
		return
	}
	t.dirty[id] = struct{}{}
	t.order = append(t.order, id)
}

func (t *Tracker) IsDirty(id string) bool {
	_, exists := t.dirty[id]
	return exists
}

// Dirty returns the dirty ids in the order they were first marked.
func (t *Tracker) Dirty() []string {
	return append([]string(nil), t.order...)
}

// Diff encodes current, compares it with the last snapshot for id, and
// records current as the new snapshot. The first diff for an id is the full
// state. id is no longer dirty afterwards.
func (t *Tracker) Diff(id string, current interface{}) (map[string]interface{}, error) {
	tree, err := Encode(current)
	if err != nil {
		return nil, err
	}
	t.clean(id)

	previous, exists := t.snapshots[id]
	t.snapshots[id] = tree
	if !exists {
		full := make(map[string]interface{}, len(tree))
		for k, v := range tree {
			full[k] = v
		}
		return full, nil
	}
	return Diff(previous, tree), nil
}

// Acknowledge records value as already known by the client for one field of
// id's snapshot, so that it won't appear in the next diff. Nothing happens if
// no snapshot exists yet; the full state will be sent in that case anyway.
func (t *Tracker) Acknowledge(id, field string, value interface{}) error {
	snapshot, exists := t.snapshots[id]
	if !exists {
		return nil
	}
	v, err := normalize(value)
	if err != nil {
		return err
	}
	snapshot[field] = v
	return nil
}

// Snapshot returns the last state tree recorded for id.
func (t *Tracker) Snapshot(id string) (map[string]interface{}, bool) {
	s, ok := t.snapshots[id]
	return s, ok
}

// Reset drops the snapshot so the next diff is the full state, and marks id
// dirty.
func (t *Tracker) Reset(id string) {
	delete(t.snapshots, id)
	t.MarkDirty(id)
}

// Forget drops everything known about id.
func (t *Tracker) Forget(id string) {
	delete(t.snapshots, id)
	t.clean(id)
}

func (t *Tracker) clean(id string) {
	if _, exists := t.dirty[id]; !exists {
		return
	}
	delete(t.dirty, id)
	for i, d := range t.order {
		if d == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}
