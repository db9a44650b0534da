package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"anoa.com/innoliber/internal/modules/proposal/dto"
	proposal "anoa.com/innoliber/internal/modules/proposal/service"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/logger"
	"go.uber.org/zap"
)

type AnalysisService interface {
	AnalyzeProposal(ctx context.Context, ownerID, proposalID uint, version *int) (*dto.AnalyzeProposalResponse, error)
}

type analysisService struct {
	proposalService proposal.Service
	analyzer        Analyzer
}

// NewAnalysisService accepts a nil analyzer; requests then answer 503.
func NewAnalysisService(proposalService proposal.Service, analyzer Analyzer) AnalysisService {
	return &analysisService{
		proposalService: proposalService,
		analyzer:        analyzer,
	}
}

func (s *analysisService) AnalyzeProposal(ctx context.Context, ownerID, proposalID uint, version *int) (*dto.AnalyzeProposalResponse, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("%w: proposal analysis is not configured", apperror.ErrServiceUnavailable)
	}

	current, err := s.proposalService.GetProposal(ctx, ownerID, proposalID)
	if err != nil {
		return nil, err
	}
	if version != nil && *version != current.Version {
		return nil, apperror.NewVersionConflict(current.Version, *version)
	}

	in := Input{
		Title:         current.Title,
		ResearchField: deref(current.ResearchField),
		Sections:      sectionsOf(current),
	}
	if len(in.Sections) == 0 {
		return nil, fmt.Errorf("%w: proposal has no content to analyze", apperror.ErrInvalidInput)
	}

	result, err := s.analyzer.Analyze(ctx, in)
	if err != nil {
		logger.FromContext(ctx).Error("proposal analysis failed",
			zap.Uint("proposal_id", proposalID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: analysis failed", apperror.ErrServiceUnavailable)
	}

	// pin the write to the version that was read
	analyzed := current.Version
	saved, err := s.proposalService.RecordAnalysis(ctx, ownerID, proposalID, *result, &analyzed)
	if err != nil {
		return nil, err
	}

	return &dto.AnalyzeProposalResponse{
		UpdateProposalResponse: *saved,
		QualityScore:           result.QualityScore,
		ContentScore:           result.ContentScore,
		FormatScore:            result.FormatScore,
		InnovationScore:        result.InnovationScore,
		Analysis:               result.Analysis,
		Suggestions:            result.Suggestions,
	}, nil
}

// sectionsOf returns the non-empty structured sections, or the legacy content
// under "content" when there are none.
func sectionsOf(p *dto.ProposalDetailResponse) map[string]string {
	sections := make(map[string]string)

	var structured map[string]any
	if len(p.StructuredContent) > 0 && json.Unmarshal(p.StructuredContent, &structured) == nil {
		for k, v := range structured {
			if text, ok := v.(string); ok && strings.TrimSpace(text) != "" {
				sections[k] = text
			}
		}
	}

	if len(sections) == 0 && p.Content != nil && strings.TrimSpace(*p.Content) != "" {
		sections["content"] = *p.Content
	}
	return sections
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
