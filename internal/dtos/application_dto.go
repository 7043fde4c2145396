package dtos

type ApplicationRequest struct {
	Company  string `json:"company" binding:"required"`
	Position string `json:"position" binding:"required"`

	// Optional Fields
	JobLink     string `json:"job_link"`
	Status      string `json:"status" binding:"omitempty,oneof=Applied Interviewing Offer Rejected"` // Defaults to "Applied" if empty
	AppliedDate string `json:"applied_date" binding:"omitempty,datetime=2006-01-02"`
	Notes       string `json:"notes"`
}

// ApplicationExtractionRequest carries a scraped job posting.
type ApplicationExtractionRequest struct {
	RawHTML string `json:"raw_html" binding:"required"`
	URL     string `json:"url"`
}
