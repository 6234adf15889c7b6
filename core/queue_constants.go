package core

import "time"

// Redis keys and visibility timeout for the lead delivery queue.
const (
	PendingQueueKey    = "pending_leads"
	ProcessingQueueKey = "processing_leads"
	// DefaultVisibilityTimeout is how long a worker may hold a reserved lead.
	DefaultVisibilityTimeout = 30 * time.Second
)
