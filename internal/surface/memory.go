package surface

import (
	"slices"
	"sync"
)

// Memory is an in-process surface.
type Memory struct {
	mu        sync.RWMutex
	classes   []string
	observers map[int]*dispatcher
	nextID    int
}

// NewMemory creates a memory surface holding the given classes.
// Duplicates and invalid names are dropped.
func NewMemory(classes ...string) *Memory {
	m := &Memory{observers: make(map[int]*dispatcher)}
	for _, c := range classes {
		if validateClass(c) == nil && !slices.Contains(m.classes, c) {
			m.classes = append(m.classes, c)
		}
	}
	return m
}

// Contains reports whether the class is present.
func (m *Memory) Contains(class string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Contains(m.classes, class)
}

// Add appends the class if it is not already present.
func (m *Memory) Add(class string) error {
	if err := validateClass(class); err != nil {
		return err
	}

	m.mu.Lock()
	if slices.Contains(m.classes, class) {
		m.mu.Unlock()
		return nil
	}
	m.classes = append(m.classes, class)
	m.notifyLocked()
	m.mu.Unlock()
	return nil
}

// Remove deletes the class if present.
func (m *Memory) Remove(class string) error {
	if err := validateClass(class); err != nil {
		return err
	}

	m.mu.Lock()
	i := slices.Index(m.classes, class)
	if i < 0 {
		m.mu.Unlock()
		return nil
	}
	m.classes = slices.Delete(m.classes, i, i+1)
	m.notifyLocked()
	m.mu.Unlock()
	return nil
}

// Classes returns a copy of the class list in insertion order.
func (m *Memory) Classes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.classes)
}

// Observe registers fn for mutation notifications.
func (m *Memory) Observe(fn func()) (func(), error) {
	d := newDispatcher(fn)

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.observers[id] = d
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
		d.stop()
	}, nil
}

// ObserverCount returns the number of registered observers.
func (m *Memory) ObserverCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.observers)
}

func (m *Memory) notifyLocked() {
	for _, d := range m.observers {
		d.signal()
	}
}
