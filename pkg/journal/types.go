package journal

import (
	"time"
)

// Status is the lifecycle state of a journaled swap leg
type Status string

const (
	StatusPending   Status = "pending"   // Leg started
	StatusCompleted Status = "completed" // Swap confirmed on chain
	StatusFailed    Status = "failed"    // Route, approval or transaction failed
)

// Entry records one swap leg of a batch
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Updated   time.Time `json:"updated"`

	BatchID string `json:"batch_id"`
	Index   int    `json:"index"`
	Pair    string `json:"pair"`
	From    string `json:"from"`
	To      string `json:"to"`
	Amount  string `json:"amount"` // base units of From

	TxHash string `json:"tx_hash,omitempty"`
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Complete marks the entry as confirmed
func (e *Entry) Complete(txHash string) {
	e.Status = StatusCompleted
	e.TxHash = txHash
	e.Error = ""
	e.Updated = time.Now()
}

// Fail marks the entry as failed with err
func (e *Entry) Fail(err error) {
	e.Status = StatusFailed
	if err != nil {
		e.Error = err.Error()
	}
	e.Updated = time.Now()
}
