// pkg/core/transaction.go
package core

import "time"

// Transaction is the record kept for one finished job
type Transaction struct {
	ID               string        `json:"id"`
	Role             Role          `json:"role"`
	Backend          string        `json:"backend"`
	TransactionFlags Bitfield      `json:"transaction_flags"`
	Parameters       string        `json:"parameters"` // JSON-encoded argument list
	Exit             Exit          `json:"exit"`
	Error            string        `json:"error,omitempty"`
	Started          time.Time     `json:"started"`
	Duration         time.Duration `json:"duration"`
}
