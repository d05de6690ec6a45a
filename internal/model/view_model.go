package model

import (
	"sort"
	"sync"

	"github.com/qredo/attestation-console/internal/agent"
)

type State string

const (
	// StatePending is a tracked agent waiting for its first refresh
	StatePending State = "pending"
	StateReady   State = "ready"
)

// Record is one tracked agent
type Record struct {
	ID       string          `json:"id"`
	State    State           `json:"state"`
	Snapshot *agent.Snapshot `json:"snapshot,omitempty"`
	Sequence uint64          `json:"-"`
}

// ViewModel is the set of agents the console currently shows.
// List polls are stamped with a generation and agent fetches with a sequence number,
// responses older than what was already applied are dropped.
type ViewModel struct {
	lock              sync.RWMutex
	records           map[string]*Record
	generation        uint64
	appliedGeneration uint64
	sequence          uint64
}

func NewViewModel() *ViewModel {
	return &ViewModel{
		records: make(map[string]*Record),
	}
}

// NextGeneration is taken before a list poll is issued
func (v *ViewModel) NextGeneration() uint64 {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.generation++
	return v.generation
}

// NextSequence is taken before an agent fetch is issued
func (v *ViewModel) NextSequence() uint64 {
	v.lock.Lock()
	defer v.lock.Unlock()

	v.sequence++
	return v.sequence
}

// Reconcile applies the id listing of a list poll. Added ids are tracked as pending,
// removed ids are discarded at once. It returns false when the generation is stale.
func (v *ViewModel) Reconcile(generation uint64, remoteIDs []string) (Diff, bool) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if generation < v.appliedGeneration {
		return Diff{}, false
	}
	v.appliedGeneration = generation

	local := make([]string, 0, len(v.records))
	for id := range v.records {
		local = append(local, id)
	}
	sort.Strings(local)

	diff := ComputeDiff(remoteIDs, local)
	for _, id := range diff.Added {
		// only fetches issued after tracking began may apply
		v.records[id] = &Record{ID: id, State: StatePending, Sequence: v.sequence}
	}
	for _, id := range diff.Removed {
		delete(v.records, id)
	}

	return diff, true
}

// Apply stores the snapshot fetched with the given sequence number. Snapshots of agents no
// longer tracked, or older than the last applied one, are discarded.
func (v *ViewModel) Apply(seq uint64, snapshot *agent.Snapshot) bool {
	if snapshot == nil || snapshot.Agent == nil {
		return false
	}

	v.lock.Lock()
	defer v.lock.Unlock()

	rec, ok := v.records[snapshot.Agent.ID]
	if !ok || seq <= rec.Sequence {
		return false
	}

	rec.Sequence = seq
	rec.Snapshot = snapshot
	rec.State = StateReady
	return true
}

// IDs returns the tracked ids, sorted
func (v *ViewModel) IDs() []string {
	v.lock.RLock()
	defer v.lock.RUnlock()

	return v.sortedIDs()
}

func (v *ViewModel) Get(id string) (Record, bool) {
	v.lock.RLock()
	defer v.lock.RUnlock()

	rec, ok := v.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Records returns copies of every tracked record, sorted by id
func (v *ViewModel) Records() []Record {
	v.lock.RLock()
	defer v.lock.RUnlock()

	res := make([]Record, 0, len(v.records))
	for _, id := range v.sortedIDs() {
		res = append(res, *v.records[id])
	}
	return res
}

// Agents returns the last fetched state of every agent refreshed at least once
func (v *ViewModel) Agents() []*agent.Agent {
	v.lock.RLock()
	defer v.lock.RUnlock()

	res := make([]*agent.Agent, 0, len(v.records))
	for _, id := range v.sortedIDs() {
		if rec := v.records[id]; rec.Snapshot != nil {
			res = append(res, rec.Snapshot.Agent)
		}
	}
	return res
}

func (v *ViewModel) Len() int {
	v.lock.RLock()
	defer v.lock.RUnlock()

	return len(v.records)
}

func (v *ViewModel) sortedIDs() []string {
	ids := make([]string, 0, len(v.records))
	for id := range v.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
