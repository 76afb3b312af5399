package csvdb

// Observer is notified after a mutation has been persisted.
//
// Callbacks run synchronously after the table lock is released, in the order
// observers were added. They receive clones.
type Observer interface {
	OnInsert(row Record)
	OnUpdate(prev, curr Record)
	OnDelete(row Record)
}

// AddObserver registers o for future mutations.
func (t *Table) AddObserver(o Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
}

func (t *Table) notify(fn func(Observer)) {
	t.mu.RLock()
	observers := t.observers
	t.mu.RUnlock()
	for _, o := range observers {
		fn(o)
	}
}
