package model

import "github.com/google/uuid"

// CommitOutcome records the result of persisting a single item.
type CommitOutcome struct {
	ItemID    uuid.UUID
	BalanceID int64
	Err       error
}

// BatchSummary aggregates the results of one commit pass. Produced once
// per completed batch; partial success is always distinguishable from
// total failure.
type BatchSummary struct {
	Attempted int
	Succeeded int
	Failed    int
	Outcomes  []CommitOutcome
}
