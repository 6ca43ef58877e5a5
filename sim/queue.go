// Implements the AdmissionQueue, which holds arrived-but-not-started
// requests in arrival order. Requests are enqueued on arrival and leave
// either by admission or by waiting past the queue timeout.

package sim

// AdmissionQueue is a FIFO queue of requests waiting for admission.
type AdmissionQueue struct {
	queue []*Request
}

// Enqueue adds a request to the back of the queue.
func (q *AdmissionQueue) Enqueue(r *Request) {
	q.queue = append(q.queue, r)
}

// Len returns the number of queued requests.
func (q *AdmissionQueue) Len() int {
	return len(q.queue)
}

// Peek returns the request at the head without removing it, or nil.
func (q *AdmissionQueue) Peek() *Request {
	if len(q.queue) == 0 {
		return nil
	}
	return q.queue[0]
}

// At returns the request at index i. Callers must check Len first.
func (q *AdmissionQueue) At(i int) *Request {
	return q.queue[i]
}

// Items returns the queue contents for iteration. The returned slice is
// the queue's internal storage -- callers may read it but MUST NOT append
// to or reslice it.
func (q *AdmissionQueue) Items() []*Request {
	return q.queue
}

// RemoveAt removes and returns the request at index i, preserving the
// relative order of the rest. Used by pickers that admit a non-head
// request (pool-first short preference).
func (q *AdmissionQueue) RemoveAt(i int) *Request {
	r := q.queue[i]
	q.queue = append(q.queue[:i], q.queue[i+1:]...)
	return r
}

// ExpireHead removes requests from the head whose wait exceeds timeout
// and reports each one exactly once through reject. Only the head is
// inspected: the queue is arrival-ordered, so the head is always the
// longest waiter.
func (q *AdmissionQueue) ExpireHead(now, timeout float64, reject func(*Request)) {
	for len(q.queue) > 0 && now-q.queue[0].ArrivalTime > timeout {
		expired := q.queue[0]
		q.queue = q.queue[1:]
		reject(expired)
	}
}
