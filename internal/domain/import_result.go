package domain

// ImportOutcome classifies how a single import row was reconciled.
type ImportOutcome string

const (
	ImportOutcomeCreated ImportOutcome = "created"
	ImportOutcomeUpdated ImportOutcome = "updated"
	ImportOutcomeFailed  ImportOutcome = "failed"
)

// FailedRow reports a row that could not be imported.
type FailedRow struct {
	Row   int            `json:"row"`
	Data  map[string]any `json:"data"`
	Error string         `json:"error"`
}

// ImportResult partitions a batch of imported rows. It is never persisted.
type ImportResult struct {
	Success []Record    `json:"success"`
	Updated []Record    `json:"updated"`
	Failed  []FailedRow `json:"failed"`
}

func NewImportResult() ImportResult {
	return ImportResult{
		Success: []Record{},
		Updated: []Record{},
		Failed:  []FailedRow{},
	}
}

// Total is the number of rows the batch accounted for.
func (r ImportResult) Total() int {
	return len(r.Success) + len(r.Updated) + len(r.Failed)
}

// Imported is the number of rows that were created or updated.
func (r ImportResult) Imported() int {
	return len(r.Success) + len(r.Updated)
}
