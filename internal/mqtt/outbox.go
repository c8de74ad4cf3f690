package mqtt

// outboxMsg is a publish deferred until the broker is reachable again.
type outboxMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// outbox queues publishes made while offline, keeping at most limit of them.
// When full the oldest message makes room for the newest. Callers
// synchronize access.
type outbox struct {
	limit   int
	msgs    []outboxMsg
	dropped int // since the last flush
}

func newOutbox(limit int) *outbox {
	if limit < 1 {
		limit = 1
	}
	return &outbox{limit: limit, msgs: make([]outboxMsg, 0, limit)}
}

// add queues m. It reports true on the first drop since the last flush so
// the caller can warn once per outage.
func (o *outbox) add(m outboxMsg) bool {
	if len(o.msgs) < o.limit {
		o.msgs = append(o.msgs, m)
		return false
	}
	copy(o.msgs, o.msgs[1:])
	o.msgs[len(o.msgs)-1] = m
	o.dropped++
	return o.dropped == 1
}

// flush hands back the queued messages oldest first and empties the outbox.
func (o *outbox) flush() []outboxMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := o.msgs
	o.msgs = make([]outboxMsg, 0, o.limit)
	o.dropped = 0
	return out
}

func (o *outbox) size() int {
	return len(o.msgs)
}
