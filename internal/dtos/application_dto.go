package dtos

// PageRequest is offset pagination shared by all list endpoints.
// Page is 1-based; Limit defaults to 20 and caps at 100.
type PageRequest struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

func (p PageRequest) Normalize() (page, limit int) {
	page = p.Page
	if page < 1 {
		page = 1
	}
	limit = p.Limit
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

func (p PageRequest) Offset() int {
	page, limit := p.Normalize()
	return (page - 1) * limit
}

// PagedResult carries the total count alongside one page of items.
type PagedResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

type ApplyRequest struct {
	JobPostID   uint   `json:"job_post_id" binding:"required"`
	CoverLetter string `json:"cover_letter"`
	ResumeURL   string `json:"resume_url"`
}

type UpdateStatusRequest struct {
	StatusID uint   `json:"status_id" binding:"required"`
	Notes    string `json:"notes"`
}
