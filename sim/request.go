// Defines the Request and Inflight types that model an individual
// streaming request in the simulation, and the closed set of rejection
// reasons an admission attempt can produce.

package sim

import "fmt"

// RejectReason is the typed outcome of a failed admission decision.
// Every admission either succeeds or reports exactly one of these.
type RejectReason string

const (
	ReasonConcurrency  RejectReason = "CONCURRENCY"   // node or controller concurrency ceiling reached
	ReasonBurst        RejectReason = "BURST"         // per-node 1s burst window full
	ReasonRateRPM      RejectReason = "RATE_RPM"      // request-per-minute bucket empty
	ReasonRateTPM      RejectReason = "RATE_TPM"      // token-per-minute bucket below token cost
	ReasonQueueTimeout RejectReason = "QUEUE_TIMEOUT" // waited in queue past the timeout
	ReasonBudgetBlock  RejectReason = "BUDGET_BLOCK"  // bucket allocator / policy budget exhausted
)

// Request models a single synthetic streaming request. Requests are
// created once by the workload generator and never mutated; the queue
// owns a request until it is admitted, after which the Inflight record
// owns it.
type Request struct {
	ID           int64   // Unique identifier within one generated workload
	ArrivalTime  float64 // Virtual arrival timestamp (seconds)
	InputTokens  int     // Prompt token count
	OutputTokens int     // Completion token count
	StreamChunks int     // Number of streamed response chunks
	TTFTDelay    float64 // Service-side time to first token (seconds)
	ServiceTime  float64 // Total service duration once started (seconds)
	Long         bool    // Drawn from the long-request profile; read by the pool-first picker
}

// TotalTokens is the token cost charged against TPM budgets.
func (r *Request) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

func (r Request) String() string {
	return fmt.Sprintf("Request: (ID: %d, ArrivalTime: %.3f, Tokens: %d+%d)",
		r.ID, r.ArrivalTime, r.InputTokens, r.OutputTokens)
}

// Inflight tracks one admitted request until its finish time passes.
// Created at admission, owned exclusively by the Simulator's active set,
// and discarded once finishTime <= now is observed.
type Inflight struct {
	Req        *Request
	StartTime  float64 // Admission timestamp (seconds)
	FinishTime float64 // StartTime + ServiceTime
	NodeID     int     // Node that admitted the request
}
