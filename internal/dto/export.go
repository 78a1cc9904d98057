package dto

import "time"

// ExportAppointmentsRequest asks for a downloadable appointment export.
type ExportAppointmentsRequest struct {
	Format   string `json:"format" validate:"required,oneof=csv pdf"`
	Status   string `json:"status" validate:"omitempty"`
	DateFrom string `json:"date_from" validate:"omitempty"`
	DateTo   string `json:"date_to" validate:"omitempty"`
}

// ExportResult points at a generated export file behind a signed URL.
type ExportResult struct {
	FileName    string    `json:"file_name"`
	Format      string    `json:"format"`
	RowCount    int       `json:"row_count"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
