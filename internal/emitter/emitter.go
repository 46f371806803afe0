package emitter

import (
	"log"

	"netsentry/internal/model"
)

// Emitter converts connection snapshots into events and pushes each one to
// the hub on a best-effort basis. Delivery is at-most-once: a failed send is
// logged and the event is gone, with no retry and no buffering.
type Emitter struct {
	host   string
	sender model.Sender
	scorer model.Scorer
}

// New creates an emitter reporting as host. A nil scorer disables inline
// scoring; events then leave labeled Normal with a null score.
func New(host string, sender model.Sender, scorer model.Scorer) *Emitter {
	return &Emitter{host: host, sender: sender, scorer: scorer}
}

// Emit builds one event per retained connection and sends each. It never
// fails: transport errors are contained here.
func (e *Emitter) Emit(snap model.ConnectionSnapshot) {
	for _, conn := range snap.Connections {
		ev := model.NewEvent(e.host, snap.Taken, conn)
		if e.scorer != nil {
			score, label, err := e.scorer.Score(FeaturesFromConnection(conn))
			if err != nil {
				log.Printf("Inline scoring failed for %s: %v", ev.Local, err)
			} else {
				ev = ev.Scored(score, label)
			}
		}
		if err := e.sender.Send(ev); err != nil {
			log.Printf("Event dropped: %v", err)
		}
	}
}
