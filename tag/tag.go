// Package tag defines index-stamped stream metadata and the ordered queue
// that carries it alongside the samples of one edge.
package tag

import (
	"fmt"
	"sort"

	"github.com/c360/sigflow/property"
)

// Common keys used by the built-in blocks.
const (
	KeySampleRate = "sample_rate"
	KeySignalName = "signal_name"
	KeyTrigger    = "trigger_name"
)

// Tag is a metadata record bound to one absolute sample index of a stream.
// A Tag is treated as immutable once published; producers hand over a clone.
type Tag struct {
	Index int64
	Map   property.Map
}

// New creates a Tag at index from key/value pairs.
func New(index int64, pairs ...property.Pair) Tag {
	return Tag{Index: index, Map: property.New(pairs...)}
}

// Clone returns a copy with an independent map.
func (t Tag) Clone() Tag {
	return Tag{Index: t.Index, Map: t.Map.Clone()}
}

// Equal compares index and map content.
func (t Tag) Equal(other Tag) bool {
	return t.Index == other.Index && t.Map.Equal(other.Map)
}

// String implements fmt.Stringer.
func (t Tag) String() string {
	return fmt.Sprintf("tag@%d%s", t.Index, t.Map.String())
}

// Queue holds tags ordered by index. Tags with equal index keep arrival order.
// Queue is not safe for concurrent use; the owning edge provides locking.
type Queue struct {
	tags []Tag
}

// Push inserts t at its ordered position.
func (q *Queue) Push(t Tag) {
	i := sort.Search(len(q.tags), func(i int) bool { return q.tags[i].Index > t.Index })
	q.tags = append(q.tags, Tag{})
	copy(q.tags[i+1:], q.tags[i:])
	q.tags[i] = t
}

// Len returns the number of queued tags.
func (q *Queue) Len() int {
	return len(q.tags)
}

// Before returns a copy of the tags with index < limit, in order.
func (q *Queue) Before(limit int64) []Tag {
	n := sort.Search(len(q.tags), func(i int) bool { return q.tags[i].Index >= limit })
	if n == 0 {
		return nil
	}
	out := make([]Tag, n)
	copy(out, q.tags[:n])
	return out
}

// PopDue removes and returns every tag with index <= pos, in order.
func (q *Queue) PopDue(pos int64) []Tag {
	n := sort.Search(len(q.tags), func(i int) bool { return q.tags[i].Index > pos })
	if n == 0 {
		return nil
	}
	due := make([]Tag, n)
	copy(due, q.tags[:n])
	q.tags = append(q.tags[:0], q.tags[n:]...)
	return due
}

// Drain removes and returns all queued tags.
func (q *Queue) Drain() []Tag {
	out := q.tags
	q.tags = nil
	return out
}

// Merge folds tags into one by key-set union in slice order, so on a key
// collision the later tag wins. The result takes the highest index seen.
func Merge(tags ...Tag) (Tag, bool) {
	if len(tags) == 0 {
		return Tag{}, false
	}
	merged := Tag{Index: tags[0].Index}
	for _, t := range tags {
		merged.Map = merged.Map.Merge(t.Map)
		if t.Index > merged.Index {
			merged.Index = t.Index
		}
	}
	return merged, true
}
