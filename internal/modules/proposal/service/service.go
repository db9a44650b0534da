package proposal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"anoa.com/innoliber/internal/entity"
	event "anoa.com/innoliber/internal/modules/event/service"
	"anoa.com/innoliber/internal/modules/proposal/dto"
	repo "anoa.com/innoliber/internal/modules/proposal/repository"
	search "anoa.com/innoliber/internal/modules/search/service"
	stat "anoa.com/innoliber/internal/modules/stat/service"
	userRepo "anoa.com/innoliber/internal/modules/user/repository"
	"anoa.com/innoliber/pkg/apperror"
	"anoa.com/innoliber/pkg/logger"
	"anoa.com/innoliber/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	maxTitleLength  = 500
	duplicateSuffix = " (副本)"
)

var errProposalNotFound = apperror.New(http.StatusNotFound, "proposal not found", apperror.ErrNotFound)

type Service interface {
	CreateProposal(ctx context.Context, ownerID uint, req dto.CreateProposalRequest) (*dto.CreateProposalResponse, error)
	GetProposal(ctx context.Context, ownerID, id uint) (*dto.ProposalDetailResponse, error)
	ListProposals(ctx context.Context, ownerID uint, filter dto.ProposalFilter) (*dto.ProposalListResponse, error)
	UpdateProposal(ctx context.Context, ownerID, id uint, req dto.UpdateProposalRequest) (*dto.UpdateProposalResponse, error)
	DeleteProposal(ctx context.Context, ownerID, id uint) error
	DuplicateProposal(ctx context.Context, ownerID, id uint, newTitle *string) (*dto.CreateProposalResponse, error)
	AttachFile(ctx context.Context, ownerID, id uint, file entity.FileDescriptor, version *int) (*dto.UpdateProposalResponse, error)
	RecordAnalysis(ctx context.Context, ownerID, id uint, result dto.AnalysisResult, version *int) (*dto.UpdateProposalResponse, error)
}

type service struct {
	proposalRepo repo.Repository
	userRepo     userRepo.UserRepository
	statService  stat.StatService
	eventService event.EventService
	meili        search.SearchService
	now          func() time.Time
}

// NewService wires the proposal operations. meili may be nil when search is not configured.
func NewService(proposalRepo repo.Repository, userRepo userRepo.UserRepository, statService stat.StatService, eventService event.EventService, meili search.SearchService) Service {
	return &service{
		proposalRepo: proposalRepo,
		userRepo:     userRepo,
		statService:  statService,
		eventService: eventService,
		meili:        meili,
		now:          time.Now,
	}
}

func (s *service) CreateProposal(ctx context.Context, ownerID uint, req dto.CreateProposalRequest) (*dto.CreateProposalResponse, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", apperror.ErrInvalidInput)
	}

	if _, err := s.userRepo.FindByID(ctx, ownerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(http.StatusBadRequest, fmt.Sprintf("user %d does not exist", ownerID), apperror.ErrBadRequest)
		}
		return nil, fmt.Errorf("find owner: %w", err)
	}

	fundingAgency := req.FundingAgency
	if fundingAgency == nil {
		agency := dto.DefaultFundingAgency
		fundingAgency = &agency
	}
	keywords := req.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	researchField := req.ResearchField

	proposal := &entity.Proposal{
		Title:           req.Title,
		Description:     req.Description,
		Status:          entity.ProposalStatusDraft,
		OwnerID:         ownerID,
		Version:         1,
		WordCount:       0,
		FundingAgency:   fundingAgency,
		FundingAmount:   req.FundingAmount,
		ProjectDuration: req.ProjectDuration,
		ResearchField:   &researchField,
		Keywords:        datatypes.JSONSlice[string](keywords),
	}

	if err := s.proposalRepo.Create(ctx, proposal); err != nil {
		metrics.RecordProposalOperation("create", "error")
		return nil, fmt.Errorf("create proposal: %w", err)
	}

	metrics.RecordProposalOperation("create", "ok")
	s.afterWrite(ctx, event.ProposalCreated, proposal)

	return &dto.CreateProposalResponse{
		ProposalID: proposal.ID,
		Status:     proposal.Status,
		Message:    "proposal created successfully",
		CreatedAt:  proposal.CreatedAt,
	}, nil
}

func (s *service) GetProposal(ctx context.Context, ownerID, id uint) (*dto.ProposalDetailResponse, error) {
	proposal, err := s.proposalRepo.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, s.lookupError(err)
	}

	res := dto.NewDetailResponse(proposal)
	return &res, nil
}

func (s *service) ListProposals(ctx context.Context, ownerID uint, filter dto.ProposalFilter) (*dto.ProposalListResponse, error) {
	filter.ApplyDefaults()

	offset := (filter.Page - 1) * filter.PageSize
	proposals, total, err := s.proposalRepo.FindAll(ctx, repo.ListParams{
		OwnerID:   ownerID,
		Status:    filter.Status,
		Search:    filter.Search,
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
		Offset:    offset,
		Limit:     filter.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list proposals: %w", err)
	}

	items := make([]dto.ProposalListItem, 0, len(proposals))
	for _, p := range proposals {
		items = append(items, dto.NewListItem(p))
	}

	return &dto.ProposalListResponse{
		Items:      items,
		Total:      total,
		Page:       filter.Page,
		PageSize:   filter.PageSize,
		TotalPages: int(math.Ceil(float64(total) / float64(filter.PageSize))),
	}, nil
}

func (s *service) UpdateProposal(ctx context.Context, ownerID, id uint, req dto.UpdateProposalRequest) (*dto.UpdateProposalResponse, error) {
	if err := validatePatch(req); err != nil {
		return nil, err
	}

	saved, err := s.updateVersioned(ctx, "update", ownerID, id, req.Version, func(current *entity.Proposal, now time.Time) (*entity.Proposal, error) {
		return ApplyUpdate(current, req, now)
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, event.ProposalUpdated, saved)
	return newUpdateResponse(saved, "saved successfully"), nil
}

// AttachFile appends an uploaded file through the same versioned path as UpdateProposal.
func (s *service) AttachFile(ctx context.Context, ownerID, id uint, file entity.FileDescriptor, version *int) (*dto.UpdateProposalResponse, error) {
	patch := dto.UpdateProposalRequest{Version: version}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	saved, err := s.updateVersioned(ctx, "attach", ownerID, id, version, func(current *entity.Proposal, now time.Time) (*entity.Proposal, error) {
		updated, err := ApplyUpdate(current, patch, now)
		if err != nil {
			return nil, err
		}
		updated.Files = append(updated.Files, file)
		return updated, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, event.ProposalAttached, saved)
	return newUpdateResponse(saved, "file attached successfully"), nil
}

// RecordAnalysis stores review scores and blobs. version should be the version
// that was analyzed so a result never lands on newer content.
func (s *service) RecordAnalysis(ctx context.Context, ownerID, id uint, result dto.AnalysisResult, version *int) (*dto.UpdateProposalResponse, error) {
	patch := dto.UpdateProposalRequest{
		Version:         version,
		QualityScore:    &result.QualityScore,
		ContentScore:    &result.ContentScore,
		FormatScore:     &result.FormatScore,
		InnovationScore: &result.InnovationScore,
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	saved, err := s.updateVersioned(ctx, "analyze", ownerID, id, version, func(current *entity.Proposal, now time.Time) (*entity.Proposal, error) {
		updated, err := ApplyUpdate(current, patch, now)
		if err != nil {
			return nil, err
		}
		if len(result.Analysis) > 0 {
			updated.AIAnalysis = datatypes.JSON(result.Analysis)
		}
		if len(result.Suggestions) > 0 {
			updated.AISuggestions = datatypes.JSON(result.Suggestions)
		}
		return updated, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, event.ProposalAnalyzed, saved)
	return newUpdateResponse(saved, "analysis saved"), nil
}

func (s *service) updateVersioned(ctx context.Context, op string, ownerID, id uint, submitted *int, mutate func(*entity.Proposal, time.Time) (*entity.Proposal, error)) (*entity.Proposal, error) {
	var readVersion int
	saved, err := s.proposalRepo.UpdateVersioned(ctx, id, ownerID, func(current *entity.Proposal) (*entity.Proposal, error) {
		readVersion = current.Version
		return mutate(current, s.now())
	})
	if err == nil {
		metrics.RecordProposalOperation(op, "ok")
		return saved, nil
	}

	var conflict *apperror.VersionConflictError
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.RecordProposalOperation(op, "not_found")
		return nil, errProposalNotFound
	case errors.As(err, &conflict):
		metrics.RecordProposalOperation(op, "conflict")
		return nil, conflict
	case errors.Is(err, repo.ErrStaleVersion):
		// another writer committed between our read and write
		metrics.RecordProposalOperation(op, "conflict")
		current, findErr := s.proposalRepo.FindByIDAndOwner(ctx, id, ownerID)
		if findErr != nil {
			return nil, s.lookupError(findErr)
		}
		sub := readVersion
		if submitted != nil {
			sub = *submitted
		}
		return nil, apperror.NewVersionConflict(current.Version, sub)
	default:
		metrics.RecordProposalOperation(op, "error")
		return nil, fmt.Errorf("%s proposal %d: %w", op, id, err)
	}
}

func (s *service) DeleteProposal(ctx context.Context, ownerID, id uint) error {
	deleted, err := s.proposalRepo.Delete(ctx, id, ownerID)
	if err != nil {
		metrics.RecordProposalOperation("delete", "error")
		return fmt.Errorf("delete proposal %d: %w", id, err)
	}
	if !deleted {
		metrics.RecordProposalOperation("delete", "not_found")
		return errProposalNotFound
	}

	metrics.RecordProposalOperation("delete", "ok")
	s.statService.InvalidateProposalStatistics(ctx, ownerID)
	s.eventService.Publish(ctx, ownerID, event.ProposalEvent{Type: event.ProposalDeleted, ProposalID: id})
	if s.meili != nil {
		if err := s.meili.DeleteProposal(ctx, id); err != nil {
			logger.FromContext(ctx).Warn("failed to remove proposal from search index", zap.Error(err))
		}
	}
	return nil
}

func (s *service) DuplicateProposal(ctx context.Context, ownerID, id uint, newTitle *string) (*dto.CreateProposalResponse, error) {
	source, err := s.proposalRepo.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, s.lookupError(err)
	}

	title := truncateRunes(source.Title+duplicateSuffix, maxTitleLength)
	if newTitle != nil && strings.TrimSpace(*newTitle) != "" {
		if utf8.RuneCountInString(*newTitle) > maxTitleLength {
			return nil, fmt.Errorf("%w: new_title must be at most %d characters", apperror.ErrInvalidInput, maxTitleLength)
		}
		title = *newTitle
	}

	duplicate := &entity.Proposal{
		Title:             title,
		Description:       source.Description,
		Content:           source.Content,
		StructuredContent: source.StructuredContent,
		Status:            entity.ProposalStatusDraft,
		OwnerID:           ownerID,
		Version:           1,
		WordCount:         source.WordCount,
		FundingAgency:     source.FundingAgency,
		FundingAmount:     source.FundingAmount,
		ProjectDuration:   source.ProjectDuration,
		ResearchField:     source.ResearchField,
		Keywords:          append(datatypes.JSONSlice[string]{}, source.Keywords...),
	}

	if err := s.proposalRepo.Create(ctx, duplicate); err != nil {
		metrics.RecordProposalOperation("duplicate", "error")
		return nil, fmt.Errorf("duplicate proposal %d: %w", id, err)
	}

	metrics.RecordProposalOperation("duplicate", "ok")
	s.afterWrite(ctx, event.ProposalDuplicated, duplicate)

	return &dto.CreateProposalResponse{
		ProposalID: duplicate.ID,
		Status:     duplicate.Status,
		Message:    "proposal duplicated successfully",
		CreatedAt:  duplicate.CreatedAt,
	}, nil
}
