package search

import (
	"context"
	"errors"
	"testing"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/internal/modules/search/dto"
)

type memorySource struct {
	proposals []*entity.Proposal
	calls     int
}

func (m *memorySource) ListBatch(ctx context.Context, afterID uint, limit int) ([]*entity.Proposal, error) {
	m.calls++
	var out []*entity.Proposal
	for _, p := range m.proposals {
		if p.ID > afterID && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

type recordingIndex struct {
	indexed []uint
	err     error
}

func (r *recordingIndex) IndexProposal(ctx context.Context, p *entity.Proposal) error {
	return r.IndexProposals(ctx, []*entity.Proposal{p})
}

func (r *recordingIndex) IndexProposals(ctx context.Context, ps []*entity.Proposal) error {
	if r.err != nil {
		return r.err
	}
	for _, p := range ps {
		r.indexed = append(r.indexed, p.ID)
	}
	return nil
}

func (r *recordingIndex) DeleteProposal(ctx context.Context, id uint) error { return nil }

func (r *recordingIndex) SearchProposals(ctx context.Context, ownerID uint, req dto.SearchRequest) (*dto.SearchResponse, error) {
	return &dto.SearchResponse{}, nil
}

func TestReindexJobWalksAllBatches(t *testing.T) {
	src := &memorySource{}
	for i := uint(1); i <= 5; i++ {
		src.proposals = append(src.proposals, &entity.Proposal{ID: i, OwnerID: i % 2})
	}
	idx := &recordingIndex{}

	job := NewReindexJob(src, idx, "")
	job.batchSize = 2

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(idx.indexed) != 5 {
		t.Fatalf("indexed %v, want all 5", idx.indexed)
	}
	for i, id := range idx.indexed {
		if id != uint(i+1) {
			t.Errorf("indexed[%d] = %d, want %d", i, id, i+1)
		}
	}
	if src.calls != 3 {
		t.Errorf("batches loaded = %d, want 3", src.calls)
	}
}

func TestReindexJobStopsOnIndexError(t *testing.T) {
	src := &memorySource{proposals: []*entity.Proposal{{ID: 1}}}
	boom := errors.New("meili down")

	err := NewReindexJob(src, &recordingIndex{err: boom}, "@daily").Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("error = %v, want %v", err, boom)
	}
}
