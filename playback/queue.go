package playback

import (
	"math/rand"

	"github.com/samber/lo"
)

// navResult names the outcome of a queue navigation step.
type navResult int

const (
	// navNone means the step was a no-op (empty queue, or shuffle over a
	// single track).
	navNone navResult = iota

	// navPlay means the index moved and the returned track should be
	// loaded.
	navPlay

	// navHold means the index clamped at a queue boundary; the current
	// track stays loaded and the caller decides what to do with it.
	navHold
)

// Queue is an ordered sequence of track identifiers plus the index of the
// current one. Navigation moves the index; it never reorders the
// identifiers. Invariant: 0 <= current < len(ids) whenever the queue is
// non-empty.
type Queue struct {
	ids     []string
	current int
}

// NewQueue restores a queue from persisted identifiers and the last
// played identifier. An identifier not present in the list leaves the
// index at 0.
func NewQueue(ids []string, currentID string) *Queue {
	q := &Queue{ids: append([]string(nil), ids...)}

	if index := lo.IndexOf(q.ids, currentID); index >= 0 {
		q.current = index
	}
	return q
}

// Replace swaps in a new identifier list and points the index at
// currentID, inserting it at the front when absent.
func (q *Queue) Replace(ids []string, currentID string) {
	q.ids = append([]string(nil), ids...)

	index := lo.IndexOf(q.ids, currentID)
	if index < 0 {
		q.ids = append([]string{currentID}, q.ids...)
		index = 0
	}
	q.current = index
}

// IDs returns a copy of the queued identifiers.
func (q *Queue) IDs() []string {
	return append([]string(nil), q.ids...)
}

// Len returns the number of queued identifiers.
func (q *Queue) Len() int {
	return len(q.ids)
}

// IsEmpty reports whether the queue holds no identifiers.
func (q *Queue) IsEmpty() bool {
	return len(q.ids) == 0
}

// CurrentIndex returns the index of the current track. Meaningless when
// the queue is empty.
func (q *Queue) CurrentIndex() int {
	return q.current
}

// Current returns the current track identifier, false when the queue is
// empty.
func (q *Queue) Current() (string, bool) {
	if q.IsEmpty() {
		return "", false
	}
	return q.ids[q.current], true
}

// Next advances the index. With shuffle on it picks uniformly among all
// positions except the current one. Otherwise the index increments; on
// overflow it wraps to 0 under repeat-all and clamps at the last position
// under any other mode.
func (q *Queue) Next(shuffle bool, repeat RepeatMode, rng *rand.Rand) (string, navResult) {
	if q.IsEmpty() {
		return "", navNone
	}

	if shuffle {
		if q.Len() == 1 {
			return "", navNone
		}

		next := rng.Intn(q.Len() - 1)
		if next >= q.current {
			next++
		}
		q.current = next
		return q.ids[q.current], navPlay
	}

	if q.current+1 >= q.Len() {
		if repeat == RepeatAll {
			q.current = 0
			return q.ids[q.current], navPlay
		}

		q.current = q.Len() - 1
		return q.ids[q.current], navHold
	}

	q.current++
	return q.ids[q.current], navPlay
}

// Previous moves the index back. On underflow it wraps to the last
// position under repeat-all and clamps at 0 under any other mode.
func (q *Queue) Previous(repeat RepeatMode) (string, navResult) {
	if q.IsEmpty() {
		return "", navNone
	}

	if q.current == 0 {
		if repeat == RepeatAll {
			q.current = q.Len() - 1
			return q.ids[q.current], navPlay
		}
		return q.ids[0], navHold
	}

	q.current--
	return q.ids[q.current], navPlay
}
