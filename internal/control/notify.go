package control

// Change is delivered to observers when a control reports a change
type Change struct {
	Ref Ref
}

// Observer is called synchronously for every matching change
type Observer func(change Change)

// Subscription represents an active observer subscription
type Subscription struct {
	id       uint64
	name     string // empty for subscriptions to every control
	observer Observer
	form     *Form
}

// Unsubscribe removes this subscription
func (s *Subscription) Unsubscribe() {
	if s.form != nil {
		s.form.unsubscribe(s.id)
	}
}

// Subscribe registers an observer for changes to every control bound under
// name, whatever block it belongs to.
func (f *Form) Subscribe(name string, observer Observer) *Subscription {
	return f.subscribe(name, observer)
}

// SubscribeAll registers an observer for changes to any control
func (f *Form) SubscribeAll(observer Observer) *Subscription {
	return f.subscribe("", observer)
}

func (f *Form) subscribe(name string, observer Observer) *Subscription {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	f.nextID++
	sub := &Subscription{id: f.nextID, name: name, observer: observer, form: f}
	f.subs = append(f.subs, sub)
	return sub
}

func (f *Form) unsubscribe(id uint64) {
	f.subMu.Lock()
	defer f.subMu.Unlock()

	for i, sub := range f.subs {
		if sub.id == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			return
		}
	}
}

// Changed delivers a change notification for ref to every matching observer
// in subscription order, on the caller's goroutine. Observers may write
// controls and raise further notifications; those are delivered before
// Changed returns.
func (f *Form) Changed(ref Ref) {
	f.subMu.RLock()
	var observers []Observer
	for _, sub := range f.subs {
		if sub.name == "" || sub.name == ref.Name {
			observers = append(observers, sub.observer)
		}
	}
	f.subMu.RUnlock()

	// Call observers outside the lock
	change := Change{Ref: ref}
	for _, obs := range observers {
		obs(change)
	}
}
