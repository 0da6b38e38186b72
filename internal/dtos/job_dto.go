package dtos

type JobPostCreationRequest struct {
	CompanyID   uint   `json:"company_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`

	// Optional fields
	Location   string   `json:"location"`
	HourlyRate string   `json:"hourly_rate"`
	Tags       []string `json:"tags"`
}

type CompanyCreationRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

type ProfileUpsertRequest struct {
	Headline  string   `json:"headline"`
	Bio       string   `json:"bio"`
	Skills    []string `json:"skills"`
	ResumeURL string   `json:"resume_url"`
}
