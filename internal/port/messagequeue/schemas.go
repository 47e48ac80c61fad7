package messagequeue

// ReportJobPayload is the schema for reports.generate messages. The broker
// may redeliver it; the worker's terminal write is the only mutation, so
// reprocessing is safe.
type ReportJobPayload struct {
	TaskID    string `json:"task_id"`
	CompanyID string `json:"company_id"`
}
