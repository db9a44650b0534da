package search

import (
	"context"
	"fmt"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/pkg/logger"
	"go.uber.org/zap"
)

const (
	ReindexJobName   = "search-reindex"
	reindexBatchSize = 200
)

// ProposalSource pages through every stored proposal.
type ProposalSource interface {
	ListBatch(ctx context.Context, afterID uint, limit int) ([]*entity.Proposal, error)
}

// ReindexJob rebuilds the search index from the database, repairing documents
// whose write-time indexing failed.
type ReindexJob struct {
	source    ProposalSource
	search    SearchService
	schedule  string
	batchSize int
}

func NewReindexJob(source ProposalSource, search SearchService, schedule string) *ReindexJob {
	return &ReindexJob{
		source:    source,
		search:    search,
		schedule:  schedule,
		batchSize: reindexBatchSize,
	}
}

func (j *ReindexJob) Name() string     { return ReindexJobName }
func (j *ReindexJob) Schedule() string { return j.schedule }

func (j *ReindexJob) Run(ctx context.Context) error {
	var afterID uint
	total := 0

	for {
		batch, err := j.source.ListBatch(ctx, afterID, j.batchSize)
		if err != nil {
			return fmt.Errorf("load proposals after %d: %w", afterID, err)
		}
		if len(batch) == 0 {
			break
		}

		if err := j.search.IndexProposals(ctx, batch); err != nil {
			return err
		}

		total += len(batch)
		afterID = batch[len(batch)-1].ID
		if len(batch) < j.batchSize {
			break
		}
	}

	logger.FromContext(ctx).Info("search index rebuilt", zap.Int("proposals", total))
	return nil
}
