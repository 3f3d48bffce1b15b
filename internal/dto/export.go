package dto

import "time"

// ExportRequest selects the output format for a ledger export.
type ExportRequest struct {
	Format string `json:"format" validate:"required,oneof=csv pdf"`
	Status string `json:"status" validate:"omitempty,oneof=Pending Borrowed Returned Rejected"`
}

// ExportArtifact describes a rendered export file and its signed download.
type ExportArtifact struct {
	ArtifactID  string    `json:"artifact_id"`
	Format      string    `json:"format"`
	RowCount    int       `json:"row_count"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
