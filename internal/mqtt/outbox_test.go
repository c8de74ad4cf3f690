package mqtt

import (
	"bytes"
	"testing"
)

// fill queues one-byte messages from..to-1 and counts first-drop signals.
func fill(o *outbox, from, to int) (signals int) {
	for i := from; i < to; i++ {
		if o.add(outboxMsg{topic: "t", payload: []byte{byte(i)}}) {
			signals++
		}
	}
	return signals
}

func flushed(o *outbox) []byte {
	var out []byte
	for _, m := range o.flush() {
		out = append(out, m.payload[0])
	}
	return out
}

func TestOutbox(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		from    int
		to      int
		want    []byte
		signals int
	}{
		{"empty", 10, 0, 0, nil, 0},
		{"under limit", 10, 0, 5, []byte{0, 1, 2, 3, 4}, 0},
		{"exactly full", 3, 0, 3, []byte{0, 1, 2}, 0},
		{"overflow keeps newest", 5, 0, 8, []byte{3, 4, 5, 6, 7}, 1},
		{"limit clamped to one", 0, 0, 3, []byte{2}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := newOutbox(tt.limit)
			if got := fill(o, tt.from, tt.to); got != tt.signals {
				t.Errorf("drop signals: got %d, want %d", got, tt.signals)
			}
			if got := flushed(o); !bytes.Equal(got, tt.want) {
				t.Errorf("flushed %v, want %v", got, tt.want)
			}
			if o.size() != 0 {
				t.Errorf("size after flush: %d", o.size())
			}
		})
	}
}

func TestOutboxSignalResetsAfterFlush(t *testing.T) {
	o := newOutbox(2)
	fill(o, 0, 4)
	o.flush()

	if got := fill(o, 10, 13); got != 1 {
		t.Errorf("expected a new drop signal after flush, got %d", got)
	}
	if got := flushed(o); !bytes.Equal(got, []byte{11, 12}) {
		t.Errorf("flushed %v", got)
	}
}

func TestOutboxFlushedSliceIsDetached(t *testing.T) {
	o := newOutbox(2)
	o.add(outboxMsg{topic: "a/b", payload: []byte("x"), qos: 1, retained: true})
	got := o.flush()
	o.add(outboxMsg{topic: "c/d", payload: []byte("y")})

	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	m := got[0]
	if m.topic != "a/b" || string(m.payload) != "x" || m.qos != 1 || !m.retained {
		t.Errorf("fields not preserved: %+v", m)
	}
}
