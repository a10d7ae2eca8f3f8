package world

import "encoding/json"

// sendTo delivers an event to a single session. Unknown session ids are
// dropped silently: a disconnecting session's reply is undeliverable, not
// an error.
func (w *World) sendTo(sessionID string, v any) {
	cl, ok := w.clients[sessionID]
	if !ok {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.logger.Printf("marshal event: %v", err)
		return
	}
	w.push(cl, b)
}

// broadcast fans an event out to every registered session, optionally
// excluding one (the originator of movement and join notices).
func (w *World) broadcast(v any, exclude string) {
	if len(w.clients) == 0 {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		w.logger.Printf("marshal event: %v", err)
		return
	}
	for id, cl := range w.clients {
		if id == exclude {
			continue
		}
		w.push(cl, b)
	}
}

// push never blocks the world loop: a client whose queue is full loses the
// event and the drop is counted.
func (w *World) push(cl *clientState, b []byte) {
	select {
	case cl.Out <- b:
	default:
		w.dropped.Add(1)
	}
}
