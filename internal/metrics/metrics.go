package metrics

import (
	"sync"
	"sync/atomic"
)

// Counters for the assistant's request paths. Kept simple and
// thread-safe for use from services, middleware, and exposition.
var (
	callsAnswered     uint64
	messagesHandled   uint64
	fallbackReplies   uint64
	summariesBuilt    uint64
	rateLimitDropsTot uint64
)

var (
	rejectMu        sync.Mutex
	rejectsByReason map[string]uint64
)

// IncCallAnswered counts one successfully answered call.
func IncCallAnswered() { atomic.AddUint64(&callsAnswered, 1) }

// IncCallRejected counts one policy denial by reason.
func IncCallRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	rejectMu.Lock()
	if rejectsByReason == nil {
		rejectsByReason = make(map[string]uint64)
	}
	rejectsByReason[reason]++
	rejectMu.Unlock()
}

// IncMessageHandled counts one answered message.
func IncMessageHandled() { atomic.AddUint64(&messagesHandled, 1) }

// IncFallbackReply counts one generation failure recovered with the
// canned apology.
func IncFallbackReply() { atomic.AddUint64(&fallbackReplies, 1) }

// IncSummaryBuilt counts one stored call summary.
func IncSummaryBuilt() { atomic.AddUint64(&summariesBuilt, 1) }

// IncRateLimitDrop counts one HTTP 429.
func IncRateLimitDrop() { atomic.AddUint64(&rateLimitDropsTot, 1) }

// Snapshot returns a copy of all counters.
func Snapshot() map[string]interface{} {
	rejectMu.Lock()
	rejects := make(map[string]uint64, len(rejectsByReason))
	for k, v := range rejectsByReason {
		rejects[k] = v
	}
	rejectMu.Unlock()

	return map[string]interface{}{
		"calls_answered":   atomic.LoadUint64(&callsAnswered),
		"calls_rejected":   rejects,
		"messages_handled": atomic.LoadUint64(&messagesHandled),
		"fallback_replies": atomic.LoadUint64(&fallbackReplies),
		"summaries_built":  atomic.LoadUint64(&summariesBuilt),
		"rate_limit_drops": atomic.LoadUint64(&rateLimitDropsTot),
	}
}
