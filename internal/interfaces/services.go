package interfaces

import "github.com/shaharAka/Shaharstocks-sub005/internal/models"

// Broadcaster pushes events to subscribed observers with at-least-once
// delivery. Implementations must tolerate slow consumers without blocking
// the pipeline.
type Broadcaster interface {
	BroadcastJobEvent(event models.JobEvent)
	BroadcastStreamEvent(event models.StreamEvent)
}
