// Package metrics holds recorder plumbing shared by the concrete backends.
package metrics

import "cachequest/internal/app/ports"

// Tee forwards every event to each non-nil recorder in order.
type Tee []ports.WorldMetrics

func NewTee(recorders ...ports.WorldMetrics) Tee {
	out := make(Tee, 0, len(recorders))
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

func (t Tee) RecordCollect() {
	for _, r := range t {
		r.RecordCollect()
	}
}

func (t Tee) RecordDeposit() {
	for _, r := range t {
		r.RecordDeposit()
	}
}

func (t Tee) RecordRejected(reason string) {
	for _, r := range t {
		r.RecordRejected(reason)
	}
}

func (t Tee) RecordSpawn(caches int) {
	for _, r := range t {
		r.RecordSpawn(caches)
	}
}

func (t Tee) RecordSave(err error) {
	for _, r := range t {
		r.RecordSave(err)
	}
}
