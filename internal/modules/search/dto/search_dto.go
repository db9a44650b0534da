package dto

type SearchRequest struct {
	Query    string `form:"q"`
	Status   string `form:"status" binding:"omitempty,oneof=draft reviewing completed submitted"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

type ProposalHit struct {
	ID            uint     `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ResearchField string   `json:"research_field"`
	Keywords      []string `json:"keywords"`
	Status        string   `json:"status"`
	UpdatedAt     int64    `json:"updated_at"`
}

type SearchResponse struct {
	Items []ProposalHit `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Query string        `json:"query"`
}
