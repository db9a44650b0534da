package stat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/internal/modules/proposal/dto"
	proposalRepo "anoa.com/innoliber/internal/modules/proposal/repository"
	"anoa.com/innoliber/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type StatService interface {
	GetProposalStatistics(ctx context.Context, ownerID uint) (*dto.StatisticsResponse, error)
	InvalidateProposalStatistics(ctx context.Context, ownerID uint)
}

type statService struct {
	proposalRepo proposalRepo.Repository
	redisClient  *redis.Client
	ttl          time.Duration
}

// NewStatService reads statistics from the store. When redisClient is set the
// result is cached per owner for ttl. Every proposal write bumps the owner's
// generation, so counts taken before a write are never served after it.
func NewStatService(proposalRepo proposalRepo.Repository, redisClient *redis.Client, ttl time.Duration) StatService {
	return &statService{
		proposalRepo: proposalRepo,
		redisClient:  redisClient,
		ttl:          ttl,
	}
}

func statsKey(ownerID uint, gen int64) string {
	return fmt.Sprintf("proposal_stats:%d:%d", ownerID, gen)
}

func generationKey(ownerID uint) string {
	return fmt.Sprintf("proposal_stats_gen:%d", ownerID)
}

func (s *statService) GetProposalStatistics(ctx context.Context, ownerID uint) (*dto.StatisticsResponse, error) {
	// the generation must be read before counting
	gen, cacheable := s.generation(ctx, ownerID)
	if cacheable {
		if cached, ok := s.fromCache(ctx, statsKey(ownerID, gen)); ok {
			return cached, nil
		}
	}

	counts, err := s.proposalRepo.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("count proposals: %w", err)
	}

	// every known status is reported, zero when absent
	stats := &dto.StatisticsResponse{
		Draft:     counts[entity.ProposalStatusDraft],
		Reviewing: counts[entity.ProposalStatusReviewing],
		Completed: counts[entity.ProposalStatusCompleted],
		Submitted: counts[entity.ProposalStatusSubmitted],
	}
	for _, n := range counts {
		stats.Total += n
	}

	if cacheable {
		s.store(ctx, statsKey(ownerID, gen), stats)
	}
	return stats, nil
}

func (s *statService) InvalidateProposalStatistics(ctx context.Context, ownerID uint) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Incr(ctx, generationKey(ownerID)).Err(); err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate statistics cache",
			zap.Uint("owner_id", ownerID), zap.Error(err))
	}
}

func (s *statService) generation(ctx context.Context, ownerID uint) (int64, bool) {
	if s.redisClient == nil || s.ttl <= 0 {
		return 0, false
	}

	gen, err := s.redisClient.Get(ctx, generationKey(ownerID)).Int64()
	switch {
	case err == redis.Nil:
		return 0, true
	case err != nil:
		logger.FromContext(ctx).Warn("statistics generation read failed", zap.Error(err))
		return 0, false
	}
	return gen, true
}

func (s *statService) fromCache(ctx context.Context, key string) (*dto.StatisticsResponse, bool) {
	raw, err := s.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.FromContext(ctx).Warn("statistics cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var stats dto.StatisticsResponse
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	return &stats, true
}

func (s *statService) store(ctx context.Context, key string, stats *dto.StatisticsResponse) {
	payload, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		logger.FromContext(ctx).Warn("statistics cache write failed", zap.Error(err))
	}
}
