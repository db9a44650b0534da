package proposal

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/internal/modules/proposal/dto"
	"anoa.com/innoliber/pkg/apperror"
	"gorm.io/datatypes"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ComputeWordCount counts visible characters across all string sections.
// Tags are removed and whitespace runs collapse to a single space before
// counting. Non-string sections contribute nothing.
func ComputeWordCount(sections map[string]any) int {
	total := 0
	for _, v := range sections {
		text, ok := v.(string)
		if !ok || text == "" {
			continue
		}
		text = htmlTagPattern.ReplaceAllString(text, "")
		text = whitespacePattern.ReplaceAllString(text, " ")
		total += utf8.RuneCountInString(strings.TrimSpace(text))
	}
	return total
}

// ApplyUpdate returns a copy of existing with patch applied and the version
// advanced by one. existing is never modified. A patch carrying a version
// that differs from the stored one is rejected with a VersionConflictError.
func ApplyUpdate(existing *entity.Proposal, patch dto.UpdateProposalRequest, now time.Time) (*entity.Proposal, error) {
	if patch.Version != nil && *patch.Version != existing.Version {
		return nil, apperror.NewVersionConflict(existing.Version, *patch.Version)
	}

	updated := *existing
	updated.Files = append(datatypes.JSONSlice[entity.FileDescriptor](nil), existing.Files...)
	updated.Keywords = append(datatypes.JSONSlice[string](nil), existing.Keywords...)

	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		updated.Description = patch.Description
	}
	if patch.Content != nil {
		updated.Content = patch.Content
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.QualityScore != nil {
		updated.QualityScore = patch.QualityScore
	}
	if patch.ContentScore != nil {
		updated.ContentScore = patch.ContentScore
	}
	if patch.FormatScore != nil {
		updated.FormatScore = patch.FormatScore
	}
	if patch.InnovationScore != nil {
		updated.InnovationScore = patch.InnovationScore
	}
	if patch.ResearchField != nil {
		updated.ResearchField = patch.ResearchField
	}
	if patch.FundingAgency != nil {
		updated.FundingAgency = patch.FundingAgency
	}
	if patch.FundingAmount != nil {
		updated.FundingAmount = patch.FundingAmount
	}
	if patch.ProjectDuration != nil {
		updated.ProjectDuration = patch.ProjectDuration
	}
	if patch.Keywords != nil {
		updated.Keywords = datatypes.JSONSlice[string](*patch.Keywords)
	}

	if patch.StructuredContent != nil {
		raw, err := json.Marshal(patch.StructuredContent)
		if err != nil {
			return nil, fmt.Errorf("encode structured content: %w", err)
		}
		updated.StructuredContent = datatypes.JSON(raw)
		if patch.WordCount == nil {
			updated.WordCount = ComputeWordCount(patch.StructuredContent.Sections())
		}
	}
	if patch.WordCount != nil {
		updated.WordCount = *patch.WordCount
	}

	updated.Version = existing.Version + 1
	updated.LastAutoSaveAt = &now

	return &updated, nil
}

// validatePatch rejects values the binding tags cannot express for pointers.
func validatePatch(patch dto.UpdateProposalRequest) error {
	if patch.Version != nil && *patch.Version < 1 {
		return fmt.Errorf("%w: version must be at least 1", apperror.ErrInvalidInput)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", apperror.ErrInvalidInput)
	}
	if patch.WordCount != nil && *patch.WordCount < 0 {
		return fmt.Errorf("%w: word_count must not be negative", apperror.ErrInvalidInput)
	}
	for _, score := range []*float64{patch.QualityScore, patch.ContentScore, patch.FormatScore, patch.InnovationScore} {
		if score != nil && (*score < 0 || *score > 10) {
			return fmt.Errorf("%w: scores must be between 0 and 10", apperror.ErrInvalidInput)
		}
	}
	if patch.Status != nil && !isKnownStatus(*patch.Status) {
		return fmt.Errorf("%w: unknown status %q", apperror.ErrInvalidInput, *patch.Status)
	}
	return nil
}

func isKnownStatus(status string) bool {
	for _, s := range entity.ProposalStatuses {
		if s == status {
			return true
		}
	}
	return false
}
