package inmemory

import (
	"sync"
)

type Snapshot struct {
	CollectTotal   uint64            `json:"collect_total"`
	DepositTotal   uint64            `json:"deposit_total"`
	RejectedTotal  uint64            `json:"rejected_total"`
	RejectedReason map[string]uint64 `json:"rejected_by_reason"`
	CachesSpawned  uint64            `json:"caches_spawned"`
	SaveSuccess    uint64            `json:"save_success"`
	SaveFailure    uint64            `json:"save_failure"`
}

type Recorder struct {
	mu          sync.Mutex
	collects    uint64
	deposits    uint64
	spawned     uint64
	saveOK      uint64
	saveFailed  uint64
	rejectedFor map[string]uint64
}

func NewRecorder() *Recorder {
	return &Recorder{
		rejectedFor: map[string]uint64{},
	}
}

func (r *Recorder) RecordCollect() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collects++
}

func (r *Recorder) RecordDeposit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deposits++
}

func (r *Recorder) RecordRejected(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectedFor[reason]++
}

func (r *Recorder) RecordSpawn(caches int) {
	if caches <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spawned += uint64(caches)
}

func (r *Recorder) RecordSave(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.saveFailed++
		return
	}
	r.saveOK++
}

func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := Snapshot{
		CollectTotal:   r.collects,
		DepositTotal:   r.deposits,
		CachesSpawned:  r.spawned,
		SaveSuccess:    r.saveOK,
		SaveFailure:    r.saveFailed,
		RejectedReason: make(map[string]uint64, len(r.rejectedFor)),
	}
	for k, v := range r.rejectedFor {
		out.RejectedReason[k] = v
		out.RejectedTotal += v
	}
	return out
}

func (r *Recorder) SnapshotAny() any {
	return r.Snapshot()
}
