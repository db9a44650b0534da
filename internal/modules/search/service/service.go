package search

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"

	"anoa.com/innoliber/internal/entity"
	"anoa.com/innoliber/internal/modules/search/dto"
	"anoa.com/innoliber/pkg/logger"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

const proposalIndex = "proposals"

type SearchService interface {
	IndexProposal(ctx context.Context, proposal *entity.Proposal) error
	IndexProposals(ctx context.Context, proposals []*entity.Proposal) error
	DeleteProposal(ctx context.Context, id uint) error
	SearchProposals(ctx context.Context, ownerID uint, req dto.SearchRequest) (*dto.SearchResponse, error)
}

type meiliSearchService struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndex()
	return s
}

func (s *meiliSearchService) initIndex() {
	log := logger.Get()

	filterable := []interface{}{"owner_id", "status"}
	if _, err := s.client.Index(proposalIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Warn("failed to update proposal filterable attributes", zap.Error(err))
	}

	sortable := []string{"updated_at"}
	if _, err := s.client.Index(proposalIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Warn("failed to update proposal sortable attributes", zap.Error(err))
	}
}

type proposalDoc struct {
	ID            uint     `json:"id"`
	OwnerID       uint     `json:"owner_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ResearchField string   `json:"research_field"`
	Keywords      []string `json:"keywords"`
	Status        string   `json:"status"`
	Body          string   `json:"body"`
	UpdatedAt     int64    `json:"updated_at"`
}

func (s *meiliSearchService) cleanContentForIndex(content string) string {
	// Replace block tags with spaces to prevent text merging
	for _, tag := range []string{"</p>", "<br>", "<br/>", "</div>", "</li>"} {
		content = strings.ReplaceAll(content, tag, " ")
	}

	cleanText := html.UnescapeString(s.sanitizer.Sanitize(content))
	return strings.Join(strings.Fields(cleanText), " ")
}

func (s *meiliSearchService) buildDoc(p *entity.Proposal) proposalDoc {
	var parts []string
	if p.Content != nil {
		parts = append(parts, *p.Content)
	}
	if len(p.StructuredContent) > 0 {
		var sections map[string]any
		if err := json.Unmarshal(p.StructuredContent, &sections); err == nil {
			for _, key := range []string{"abstract", "background", "objectives", "methodology", "timeline", "budget", "references"} {
				if text, ok := sections[key].(string); ok && text != "" {
					parts = append(parts, text)
				}
			}
		}
	}

	keywords := []string(p.Keywords)
	if keywords == nil {
		keywords = []string{}
	}

	return proposalDoc{
		ID:            p.ID,
		OwnerID:       p.OwnerID,
		Title:         p.Title,
		Description:   s.cleanContentForIndex(deref(p.Description)),
		ResearchField: deref(p.ResearchField),
		Keywords:      keywords,
		Status:        p.Status,
		Body:          s.cleanContentForIndex(strings.Join(parts, " ")),
		UpdatedAt:     p.UpdatedAt.Unix(),
	}
}

func (s *meiliSearchService) IndexProposal(ctx context.Context, proposal *entity.Proposal) error {
	doc := s.buildDoc(proposal)

	task, err := s.client.Index(proposalIndex).AddDocuments([]proposalDoc{doc}, strPtr("id"))
	if err != nil {
		return fmt.Errorf("index proposal %d: %w", proposal.ID, err)
	}
	logger.FromContext(ctx).Debug("indexed proposal",
		zap.Uint("proposal_id", proposal.ID),
		zap.Any("task_uid", task.TaskUID),
	)
	return nil
}

func (s *meiliSearchService) IndexProposals(ctx context.Context, proposals []*entity.Proposal) error {
	if len(proposals) == 0 {
		return nil
	}

	docs := make([]proposalDoc, 0, len(proposals))
	for _, p := range proposals {
		docs = append(docs, s.buildDoc(p))
	}

	if _, err := s.client.Index(proposalIndex).AddDocuments(docs, strPtr("id")); err != nil {
		return fmt.Errorf("index %d proposals: %w", len(docs), err)
	}
	return nil
}

func (s *meiliSearchService) DeleteProposal(ctx context.Context, id uint) error {
	if _, err := s.client.Index(proposalIndex).DeleteDocument(strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("remove proposal %d from index: %w", id, err)
	}
	return nil
}

type searchResult struct {
	Hits               []dto.ProposalHit `json:"hits"`
	EstimatedTotalHits int64             `json:"estimatedTotalHits"`
}

// SearchProposals only ever returns documents owned by ownerID.
func (s *meiliSearchService) SearchProposals(ctx context.Context, ownerID uint, req dto.SearchRequest) (*dto.SearchResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	filter := fmt.Sprintf("owner_id = %d", ownerID)
	if req.Status != "" {
		filter += fmt.Sprintf(" AND status = %q", req.Status)
	}

	raw, err := s.client.Index(proposalIndex).SearchRaw(req.Query, &meilisearch.SearchRequest{
		Filter: filter,
		Limit:  int64(req.PageSize),
		Offset: int64((req.Page - 1) * req.PageSize),
		AttributesToRetrieve: []string{
			"id", "title", "description", "research_field", "keywords", "status", "updated_at",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search proposals: %w", err)
	}

	var result searchResult
	if raw != nil {
		if err := json.Unmarshal(*raw, &result); err != nil {
			return nil, fmt.Errorf("decode search result: %w", err)
		}
	}
	if result.Hits == nil {
		result.Hits = []dto.ProposalHit{}
	}

	return &dto.SearchResponse{
		Items: result.Hits,
		Total: result.EstimatedTotalHits,
		Page:  req.Page,
		Query: req.Query,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string {
	return &s
}
