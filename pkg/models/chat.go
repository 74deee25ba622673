package models

// ChatMessage is one turn of a chat conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the assistant's reply to a chat prompt
type ChatResponse struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Content  string `json:"content"`
	Analysis string `json:"analysis,omitempty"`
	SQL      string `json:"sql,omitempty"`
}

// SandboxResult holds the tabular output of one sandboxed query
type SandboxResult struct {
	Columns   []string         `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// DatasetRecord is the stored metadata for one uploaded dataset
type DatasetRecord struct {
	ID               int64   `json:"id"`
	OriginalFilename string  `json:"original_filename"`
	UploadedAt       string  `json:"uploaded_at"`
	TotalKWh         float64 `json:"total_kwh"`
	TotalCost        float64 `json:"total_cost"`
	TotalCO2         float64 `json:"total_co2"`
	RowCount         int     `json:"row_count"`
	Fingerprint      string  `json:"fingerprint,omitempty"`
}

// ReadingRecord is one stored reading as returned from the database
type ReadingRecord struct {
	DatasetID   int64   `json:"dataset_id"`
	ReadingDate string  `json:"reading_date"`
	ReadingTime string  `json:"reading_time,omitempty"`
	ReadingAt   string  `json:"reading_at"`
	KWh         float64 `json:"kwh"`
	Cost        float64 `json:"cost"`
}

// DatasetDetail bundles a dataset with its summary and readings
type DatasetDetail struct {
	Dataset  DatasetRecord   `json:"dataset"`
	Summary  *Summary        `json:"summary,omitempty"`
	Readings []ReadingRecord `json:"readings"`
}
