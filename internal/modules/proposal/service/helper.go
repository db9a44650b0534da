package proposal

import (
	"context"
	"errors"
	"fmt"

	"anoa.com/innoliber/internal/entity"
	event "anoa.com/innoliber/internal/modules/event/service"
	"anoa.com/innoliber/internal/modules/proposal/dto"
	"anoa.com/innoliber/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *service) lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errProposalNotFound
	}
	return fmt.Errorf("find proposal: %w", err)
}

// afterWrite runs the side effects of a committed write. None of them can fail the request.
func (s *service) afterWrite(ctx context.Context, eventType string, p *entity.Proposal) {
	s.statService.InvalidateProposalStatistics(ctx, p.OwnerID)

	s.eventService.Publish(ctx, p.OwnerID, event.ProposalEvent{
		Type:       eventType,
		ProposalID: p.ID,
		Version:    p.Version,
		Status:     p.Status,
		Title:      p.Title,
	})

	if s.meili != nil {
		if err := s.meili.IndexProposal(ctx, p); err != nil {
			logger.FromContext(ctx).Warn("failed to index proposal",
				zap.Uint("proposal_id", p.ID),
				zap.Error(err),
			)
		}
	}
}

func newUpdateResponse(p *entity.Proposal, message string) *dto.UpdateProposalResponse {
	return &dto.UpdateProposalResponse{
		Success:   true,
		Message:   message,
		Version:   p.Version,
		UpdatedAt: p.UpdatedAt,
		WordCount: p.WordCount,
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
