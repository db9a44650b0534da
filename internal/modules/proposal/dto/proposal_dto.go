package dto

import (
	"encoding/json"
	"time"

	"anoa.com/innoliber/internal/entity"
)

const DefaultFundingAgency = "国家自然科学基金委"

// ProposalContent is the sectioned body of a proposal. Sections may hold HTML.
type ProposalContent struct {
	Abstract    string `json:"abstract"`
	Background  string `json:"background"`
	Objectives  string `json:"objectives"`
	Methodology string `json:"methodology"`
	Timeline    string `json:"timeline"`
	Budget      string `json:"budget"`
	References  string `json:"references"`
}

func (c ProposalContent) Sections() map[string]any {
	return map[string]any{
		"abstract":    c.Abstract,
		"background":  c.Background,
		"objectives":  c.Objectives,
		"methodology": c.Methodology,
		"timeline":    c.Timeline,
		"budget":      c.Budget,
		"references":  c.References,
	}
}

type CreateProposalRequest struct {
	Title           string   `json:"title" binding:"required,min=1,max=500"`
	Description     *string  `json:"description" binding:"omitempty,max=1000"`
	ResearchField   string   `json:"research_field" binding:"required,max=100"`
	FundingAgency   *string  `json:"funding_agency" binding:"omitempty,max=200"`
	FundingAmount   *int     `json:"funding_amount" binding:"omitempty,min=1"`
	ProjectDuration *int     `json:"project_duration" binding:"omitempty,min=1,max=60"`
	Keywords        []string `json:"keywords"`
}

// UpdateProposalRequest is a partial update: nil fields are left untouched.
type UpdateProposalRequest struct {
	Title             *string          `json:"title" binding:"omitempty,max=500"`
	Description       *string          `json:"description" binding:"omitempty,max=1000"`
	Content           *string          `json:"content"`
	StructuredContent *ProposalContent `json:"structured_content"`
	WordCount         *int             `json:"word_count" binding:"omitempty,min=0"`
	Version           *int             `json:"version"`
	Status            *string          `json:"status" binding:"omitempty,oneof=draft reviewing completed submitted"`
	QualityScore      *float64         `json:"quality_score" binding:"omitempty,min=0,max=10"`
	ContentScore      *float64         `json:"content_score" binding:"omitempty,min=0,max=10"`
	FormatScore       *float64         `json:"format_score" binding:"omitempty,min=0,max=10"`
	InnovationScore   *float64         `json:"innovation_score" binding:"omitempty,min=0,max=10"`
	ResearchField     *string          `json:"research_field" binding:"omitempty,max=100"`
	FundingAgency     *string          `json:"funding_agency" binding:"omitempty,max=200"`
	FundingAmount     *int             `json:"funding_amount" binding:"omitempty,min=1"`
	ProjectDuration   *int             `json:"project_duration" binding:"omitempty,min=1,max=60"`
	Keywords          *[]string        `json:"keywords"`
}

type ProposalFilter struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=draft reviewing completed submitted"`
	Search    string `form:"search"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

func (f *ProposalFilter) ApplyDefaults() {
	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = 20
	}
	if f.SortBy == "" {
		f.SortBy = "updated_at"
	}
	if f.SortOrder == "" {
		f.SortOrder = "desc"
	}
}

type CreateProposalResponse struct {
	ProposalID uint      `json:"proposalId"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

type UpdateProposalResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
	WordCount int       `json:"wordCount"`
}

type ProposalListItem struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	Status        string    `json:"status"`
	ResearchField *string   `json:"research_field"`
	FundingAgency *string   `json:"funding_agency"`
	FundingAmount *int      `json:"funding_amount"`
	WordCount     int       `json:"word_count"`
	QualityScore  *float64  `json:"quality_score"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ProposalDetailResponse struct {
	ID                uint                    `json:"id"`
	Title             string                  `json:"title"`
	Description       *string                 `json:"description"`
	Content           *string                 `json:"content"`
	StructuredContent json.RawMessage         `json:"structured_content"`
	Status            string                  `json:"status"`
	OwnerID           uint                    `json:"owner_id"`
	Version           int                     `json:"version"`
	WordCount         int                     `json:"word_count"`
	QualityScore      *float64                `json:"quality_score"`
	ContentScore      *float64                `json:"content_score"`
	FormatScore       *float64                `json:"format_score"`
	InnovationScore   *float64                `json:"innovation_score"`
	AISuggestions     json.RawMessage         `json:"ai_suggestions"`
	AIAnalysis        json.RawMessage         `json:"ai_analysis"`
	Files             []entity.FileDescriptor `json:"files"`
	FundingAgency     *string                 `json:"funding_agency"`
	FundingAmount     *int                    `json:"funding_amount"`
	ProjectDuration   *int                    `json:"project_duration"`
	ResearchField     *string                 `json:"research_field"`
	Keywords          []string                `json:"keywords"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
	SubmittedAt       *time.Time              `json:"submitted_at"`
	LastAutoSaveAt    *time.Time              `json:"last_auto_save_at"`
}

type ProposalListResponse struct {
	Items      []ProposalListItem `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}

type StatisticsResponse struct {
	Total     int64 `json:"total"`
	Draft     int64 `json:"draft"`
	Reviewing int64 `json:"reviewing"`
	Completed int64 `json:"completed"`
	Submitted int64 `json:"submitted"`
}

func NewListItem(p *entity.Proposal) ProposalListItem {
	return ProposalListItem{
		ID:            p.ID,
		Title:         p.Title,
		Description:   p.Description,
		Status:        p.Status,
		ResearchField: p.ResearchField,
		FundingAgency: p.FundingAgency,
		FundingAmount: p.FundingAmount,
		WordCount:     p.WordCount,
		QualityScore:  p.QualityScore,
		Version:       p.Version,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func NewDetailResponse(p *entity.Proposal) ProposalDetailResponse {
	files := []entity.FileDescriptor(p.Files)
	if files == nil {
		files = []entity.FileDescriptor{}
	}
	keywords := []string(p.Keywords)
	if keywords == nil {
		keywords = []string{}
	}

	return ProposalDetailResponse{
		ID:                p.ID,
		Title:             p.Title,
		Description:       p.Description,
		Content:           p.Content,
		StructuredContent: rawOrNull(p.StructuredContent),
		Status:            p.Status,
		OwnerID:           p.OwnerID,
		Version:           p.Version,
		WordCount:         p.WordCount,
		QualityScore:      p.QualityScore,
		ContentScore:      p.ContentScore,
		FormatScore:       p.FormatScore,
		InnovationScore:   p.InnovationScore,
		AISuggestions:     rawOrNull(p.AISuggestions),
		AIAnalysis:        rawOrNull(p.AIAnalysis),
		Files:             files,
		FundingAgency:     p.FundingAgency,
		FundingAmount:     p.FundingAmount,
		ProjectDuration:   p.ProjectDuration,
		ResearchField:     p.ResearchField,
		Keywords:          keywords,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
		SubmittedAt:       p.SubmittedAt,
		LastAutoSaveAt:    p.LastAutoSaveAt,
	}
}

func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage("null")
	}
	return json.RawMessage(b)
}

// AnalysisResult is what an automated review produced for one proposal version.
type AnalysisResult struct {
	QualityScore    float64         `json:"quality_score"`
	ContentScore    float64         `json:"content_score"`
	FormatScore     float64         `json:"format_score"`
	InnovationScore float64         `json:"innovation_score"`
	Analysis        json.RawMessage `json:"analysis"`
	Suggestions     json.RawMessage `json:"suggestions"`
}

type AnalyzeProposalRequest struct {
	Version *int `json:"version"`
}

type AnalyzeProposalResponse struct {
	UpdateProposalResponse
	QualityScore    float64         `json:"quality_score"`
	ContentScore    float64         `json:"content_score"`
	FormatScore     float64         `json:"format_score"`
	InnovationScore float64         `json:"innovation_score"`
	Analysis        json.RawMessage `json:"ai_analysis"`
	Suggestions     json.RawMessage `json:"ai_suggestions"`
}
