package transport

import "container/heap"

// pendingNoteOff is a note-off due at an absolute sample position, kept in
// a priority queue when its due time falls beyond the block that started
// it (§4.3: "Note-offs whose due time lies in a future block are kept in
// a small priority queue keyed by sample offset").
type pendingNoteOff struct {
	due     uint64
	channel uint8
	pitch   uint8
}

type noteOffQueue []*pendingNoteOff

func (q noteOffQueue) Len() int { return len(q) }
func (q noteOffQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].pitch < q[j].pitch
}
func (q noteOffQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *noteOffQueue) Push(x any) {
	*q = append(*q, x.(*pendingNoteOff))
}

func (q *noteOffQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

func (q *noteOffQueue) peek() *pendingNoteOff {
	if len(*q) == 0 {
		return nil
	}
	return (*q)[0]
}

func newNoteOffQueue() *noteOffQueue {
	q := &noteOffQueue{}
	heap.Init(q)
	return q
}

func (q *noteOffQueue) push(item *pendingNoteOff) {
	heap.Push(q, item)
}

func (q *noteOffQueue) pop() *pendingNoteOff {
	return heap.Pop(q).(*pendingNoteOff)
}

func (q *noteOffQueue) clear() {
	*q = (*q)[:0]
}
