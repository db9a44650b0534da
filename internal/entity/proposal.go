package entity

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ProposalStatusDraft     = "draft"
	ProposalStatusReviewing = "reviewing"
	ProposalStatusCompleted = "completed"
	ProposalStatusSubmitted = "submitted"
)

var ProposalStatuses = []string{
	ProposalStatusDraft,
	ProposalStatusReviewing,
	ProposalStatusCompleted,
	ProposalStatusSubmitted,
}

// FileDescriptor is one uploaded attachment kept in Proposal.Files.
type FileDescriptor struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Proposal struct {
	ID                uint                                `gorm:"primaryKey" json:"id"`
	Title             string                              `gorm:"size:500;not null;index" json:"title"`
	Description       *string                             `gorm:"type:text" json:"description"`
	Content           *string                             `gorm:"type:text" json:"content"`
	StructuredContent datatypes.JSON                      `json:"structured_content"`
	Status            string                              `gorm:"size:20;not null;default:'draft';index" json:"status"`
	OwnerID           uint                                `gorm:"not null;index" json:"owner_id"`
	Owner             *User                               `gorm:"foreignKey:OwnerID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Version           int                                 `gorm:"not null;default:1" json:"version"`
	WordCount         int                                 `gorm:"not null;default:0" json:"word_count"`
	QualityScore      *float64                            `json:"quality_score"`
	ContentScore      *float64                            `json:"content_score"`
	FormatScore       *float64                            `json:"format_score"`
	InnovationScore   *float64                            `json:"innovation_score"`
	AISuggestions     datatypes.JSON                      `json:"ai_suggestions"`
	AIAnalysis        datatypes.JSON                      `json:"ai_analysis"`
	Files             datatypes.JSONSlice[FileDescriptor] `json:"files"`
	FundingAgency     *string                             `gorm:"size:200" json:"funding_agency"`
	FundingAmount     *int                                `json:"funding_amount"`
	ProjectDuration   *int                                `json:"project_duration"`
	ResearchField     *string                             `gorm:"size:100" json:"research_field"`
	Keywords          datatypes.JSONSlice[string]         `json:"keywords"`
	CreatedAt         time.Time                           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time                           `gorm:"autoUpdateTime;index" json:"updated_at"`
	SubmittedAt       *time.Time                          `json:"submitted_at"`
	LastAutoSaveAt    *time.Time                          `json:"last_auto_save_at"`
}
