package orchestrator

const subscriberBuffer = 8

// Snapshot is a read-only copy of the displayed result set.
type Snapshot struct {
	Timestamp  int64              `json:"timestamp"`
	Generating bool               `json:"generating"`
	Results    []GeneratedContent `json:"results"`
}

// Snapshot returns the current result set in dispatch order.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe delivers a snapshot after every state change. A subscriber that
// falls behind loses its oldest pending snapshots, never the newest one.
// The returned func unsubscribes and closes the channel.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)
	o.mu.Lock()
	id := o.nextSub
	o.nextSub++
	o.subs[id] = ch
	o.mu.Unlock()

	return ch, func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if _, ok := o.subs[id]; ok {
			delete(o.subs, id)
			close(ch)
		}
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Timestamp:  o.current,
		Generating: o.generating,
		Results:    make([]GeneratedContent, 0, len(o.order)),
	}
	for _, id := range o.order {
		snap.Results = append(snap.Results, cloneRecord(o.results[id]))
	}
	return snap
}

func (o *Orchestrator) publishLocked(snap Snapshot) {
	for _, ch := range o.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func cloneRecord(rec *GeneratedContent) GeneratedContent {
	out := *rec
	if rec.Tags != nil {
		out.Tags = append([]string(nil), rec.Tags...)
	}
	return out
}
