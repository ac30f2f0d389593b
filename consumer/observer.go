package consumer

import "time"

// Classification is the terminal outcome of one delivery, emitted to the
// observability collaborator.
type Classification string

const (
	ClassProcessed    Classification = "processed"
	ClassDuplicate    Classification = "duplicate"
	ClassRequeued     Classification = "requeued"
	ClassDeadLettered Classification = "dead_lettered"
)

// Observer receives the per-delivery classification and timing. The pipeline
// does not own the metrics mechanism, it only reports into it.
type Observer interface {
	ObserveDelivery(class Classification, elapsed time.Duration)
}

// NopObserver discards observations.
type NopObserver struct{}

// ObserveDelivery implements Observer
func (NopObserver) ObserveDelivery(Classification, time.Duration) {}
