package proposal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"anoa.com/innoliber/internal/entity"
	event "anoa.com/innoliber/internal/modules/event/service"
	"anoa.com/innoliber/internal/modules/proposal/dto"
	repo "anoa.com/innoliber/internal/modules/proposal/repository"
	stat "anoa.com/innoliber/internal/modules/stat/service"
	userRepo "anoa.com/innoliber/internal/modules/user/repository"
	"anoa.com/innoliber/pkg/apperror"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(&entity.User{}, &entity.Proposal{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string) *entity.User {
	t.Helper()
	u := &entity.User{
		Username:     strings.Split(email, "@")[0],
		Email:        email,
		PasswordHash: "x",
		FullName:     "Test User",
		IsActive:     true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return u
}

func newTestService(db *gorm.DB, proposals repo.Repository) Service {
	return NewService(
		proposals,
		userRepo.NewUserRepository(db),
		stat.NewStatService(proposals, nil, 0),
		event.NewEventService(nil),
		nil,
	)
}

func createProposal(t *testing.T, svc Service, ownerID uint, title string) uint {
	t.Helper()
	res, err := svc.CreateProposal(context.Background(), ownerID, dto.CreateProposalRequest{
		Title:         title,
		ResearchField: "Computer Science",
	})
	if err != nil {
		t.Fatalf("CreateProposal(%q) error = %v", title, err)
	}
	return res.ProposalID
}

func TestCreateProposalDefaults(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))
	owner := createUser(t, db, "alice@uni.edu.cn")
	ctx := context.Background()

	res, err := svc.CreateProposal(ctx, owner.ID, dto.CreateProposalRequest{
		Title:         "Quantum Sensing",
		ResearchField: "Physics",
	})
	if err != nil {
		t.Fatalf("CreateProposal() error = %v", err)
	}
	if res.Status != entity.ProposalStatusDraft {
		t.Errorf("status = %q, want draft", res.Status)
	}
	if res.ProposalID == 0 {
		t.Fatal("expected a proposal id")
	}

	got, err := svc.GetProposal(ctx, owner.ID, res.ProposalID)
	if err != nil {
		t.Fatalf("GetProposal() error = %v", err)
	}
	if got.Version != 1 || got.WordCount != 0 {
		t.Errorf("version/word_count = %d/%d, want 1/0", got.Version, got.WordCount)
	}
	if got.FundingAgency == nil || *got.FundingAgency != dto.DefaultFundingAgency {
		t.Errorf("funding_agency = %v, want %q", got.FundingAgency, dto.DefaultFundingAgency)
	}
	if len(got.Keywords) != 0 {
		t.Errorf("keywords = %v, want empty", got.Keywords)
	}
}

func TestCreateProposalUnknownOwner(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))

	_, err := svc.CreateProposal(context.Background(), 999, dto.CreateProposalRequest{Title: "x", ResearchField: "y"})
	if apperror.MapErrorToStatus(err) != 400 {
		t.Fatalf("status = %d, want 400 (err = %v)", apperror.MapErrorToStatus(err), err)
	}
}

func TestProposalsAreOwnerScoped(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))
	alice := createUser(t, db, "alice@example.com")
	bob := createUser(t, db, "bob@example.com")
	ctx := context.Background()

	id := createProposal(t, svc, alice.ID, "Alice's proposal")

	if _, err := svc.GetProposal(ctx, bob.ID, id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProposal by non-owner error = %v, want not found", err)
	}

	title := "hijacked"
	if _, err := svc.UpdateProposal(ctx, bob.ID, id, dto.UpdateProposalRequest{Title: &title}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateProposal by non-owner error = %v, want not found", err)
	}
	if err := svc.DeleteProposal(ctx, bob.ID, id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteProposal by non-owner error = %v, want not found", err)
	}
	if _, err := svc.DuplicateProposal(ctx, bob.ID, id, nil); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DuplicateProposal by non-owner error = %v, want not found", err)
	}

	list, err := svc.ListProposals(ctx, bob.ID, dto.ProposalFilter{})
	if err != nil {
		t.Fatalf("ListProposals() error = %v", err)
	}
	if list.Total != 0 || len(list.Items) != 0 {
		t.Errorf("bob sees %d proposals, want 0", list.Total)
	}
}

func TestListProposalsPagination(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))
	owner := createUser(t, db, "carol@example.com")

	var ids []uint
	for i := 1; i <= 45; i++ {
		ids = append(ids, createProposal(t, svc, owner.ID, fmt.Sprintf("Proposal %02d", i)))
	}

	list, err := svc.ListProposals(context.Background(), owner.ID, dto.ProposalFilter{
		Page:      2,
		PageSize:  20,
		SortBy:    "id",
		SortOrder: "asc",
	})
	if err != nil {
		t.Fatalf("ListProposals() error = %v", err)
	}

	if list.Total != 45 {
		t.Errorf("total = %d, want 45", list.Total)
	}
	if list.TotalPages != 3 {
		t.Errorf("total_pages = %d, want 3", list.TotalPages)
	}
	if len(list.Items) != 20 {
		t.Fatalf("items = %d, want 20", len(list.Items))
	}
	if list.Items[0].ID != ids[20] || list.Items[19].ID != ids[39] {
		t.Errorf("page 2 spans ids %d..%d, want %d..%d", list.Items[0].ID, list.Items[19].ID, ids[20], ids[39])
	}
}

func TestListProposalsFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))
	owner := createUser(t, db, "dave@example.com")
	ctx := context.Background()

	createProposal(t, svc, owner.ID, "Deep Learning for Crops")
	id := createProposal(t, svc, owner.ID, "Ocean Acidification")

	submitted := entity.ProposalStatusSubmitted
	if _, err := svc.UpdateProposal(ctx, owner.ID, id, dto.UpdateProposalRequest{Status: &submitted}); err != nil {
		t.Fatalf("UpdateProposal() error = %v", err)
	}

	tests := []struct {
		name   string
		filter dto.ProposalFilter
		want   int64
	}{
		{name: "no filter", filter: dto.ProposalFilter{}, want: 2},
		{name: "by status", filter: dto.ProposalFilter{Status: "submitted"}, want: 1},
		{name: "search is case-insensitive", filter: dto.ProposalFilter{Search: "deep learning"}, want: 1},
		{name: "search matches research field", filter: dto.ProposalFilter{Search: "computer"}, want: 2},
		{name: "unknown sort column falls back", filter: dto.ProposalFilter{SortBy: "password"}, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.ListProposals(ctx, owner.ID, tt.filter)
			if err != nil {
				t.Fatalf("ListProposals() error = %v", err)
			}
			if list.Total != tt.want {
				t.Errorf("total = %d, want %d", list.Total, tt.want)
			}
		})
	}
}

func TestUpdateProposal(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))
	owner := createUser(t, db, "erin@example.com")
	ctx := context.Background()
	id := createProposal(t, svc, owner.ID, "Draft")

	res, err := svc.UpdateProposal(ctx, owner.ID, id, dto.UpdateProposalRequest{
		Version:           intPtr(1),
		StructuredContent: &dto.ProposalContent{Abstract: "<p>研究 背景</p>", Methodology: "abc"},
	})
	if err != nil {
		t.Fatalf("UpdateProposal() error = %v", err)
	}
	if res.Version != 2 {
		t.Errorf("version = %d, want 2", res.Version)
	}
	if res.WordCount != 8 {
		t.Errorf("word_count = %d, want 8", res.WordCount)
	}

	_, err = svc.UpdateProposal(ctx, owner.ID, id, dto.UpdateProposalRequest{Version: intPtr(1), Title: strPtr("late")})
	var conflict *apperror.VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want version conflict", err)
	}
	if conflict.Current != 2 || conflict.Submitted != 1 {
		t.Errorf("conflict = %+v, want current 2 submitted 1", conflict)
	}

	got, err := svc.GetProposal(ctx, owner.ID, id)
	if err != nil {
		t.Fatalf("GetProposal() error = %v", err)
	}
	if got.Title != "Draft" || got.Version != 2 {
		t.Errorf("rejected update leaked: title %q version %d", got.Title, got.Version)
	}
}

// staleRepository lets a competing write land between the read and the write.
type staleRepository struct {
	repo.Repository
}

func (r *staleRepository) UpdateVersioned(ctx context.Context, id, ownerID uint, mutate func(*entity.Proposal) (*entity.Proposal, error)) (*entity.Proposal, error) {
	current, err := r.Repository.FindByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if _, err := mutate(current); err != nil {
		return nil, err
	}

	if _, err := r.Repository.UpdateVersioned(ctx, id, ownerID, func(p *entity.Proposal) (*entity.Proposal, error) {
		next := *p
		next.Version++
		return &next, nil
	}); err != nil {
		return nil, err
	}
	return nil, repo.ErrStaleVersion
}

func TestUpdateProposalLostRace(t *testing.T) {
	db := setupTestDB(t)
	base := repo.NewRepository(db)
	owner := createUser(t, db, "frank@example.com")
	id := createProposal(t, newTestService(db, base), owner.ID, "Race")

	svc := newTestService(db, &staleRepository{Repository: base})
	_, err := svc.UpdateProposal(context.Background(), owner.ID, id, dto.UpdateProposalRequest{Version: intPtr(1), Title: strPtr("mine")})

	var conflict *apperror.VersionConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want version conflict", err)
	}
	if conflict.Current != 2 || conflict.Submitted != 1 {
		t.Errorf("conflict = %+v, want current 2 submitted 1", conflict)
	}
	if apperror.MapErrorToStatus(err) != 409 {
		t.Errorf("status = %d, want 409", apperror.MapErrorToStatus(err))
	}
}

func TestDuplicateProposal(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))
	owner := createUser(t, db, "grace@example.com")
	ctx := context.Background()
	id := createProposal(t, svc, owner.ID, "Original")

	// push the source to submitted at version 7
	submitted := entity.ProposalStatusSubmitted
	for v := 1; v < 7; v++ {
		req := dto.UpdateProposalRequest{Version: intPtr(v)}
		if v == 6 {
			req.Status = &submitted
		}
		if _, err := svc.UpdateProposal(ctx, owner.ID, id, req); err != nil {
			t.Fatalf("UpdateProposal(v%d) error = %v", v, err)
		}
	}

	res, err := svc.DuplicateProposal(ctx, owner.ID, id, nil)
	if err != nil {
		t.Fatalf("DuplicateProposal() error = %v", err)
	}
	if res.ProposalID == id {
		t.Fatal("duplicate reused the source id")
	}

	dup, err := svc.GetProposal(ctx, owner.ID, res.ProposalID)
	if err != nil {
		t.Fatalf("GetProposal() error = %v", err)
	}
	if dup.Status != entity.ProposalStatusDraft || dup.Version != 1 {
		t.Errorf("duplicate status/version = %s/%d, want draft/1", dup.Status, dup.Version)
	}
	if dup.Title != "Original (副本)" {
		t.Errorf("duplicate title = %q", dup.Title)
	}

	src, err := svc.GetProposal(ctx, owner.ID, id)
	if err != nil {
		t.Fatalf("GetProposal() error = %v", err)
	}
	if src.Status != entity.ProposalStatusSubmitted || src.Version != 7 {
		t.Errorf("source changed to %s/%d", src.Status, src.Version)
	}

	named, err := svc.DuplicateProposal(ctx, owner.ID, id, strPtr("Second attempt"))
	if err != nil {
		t.Fatalf("DuplicateProposal(new title) error = %v", err)
	}
	got, _ := svc.GetProposal(ctx, owner.ID, named.ProposalID)
	if got.Title != "Second attempt" {
		t.Errorf("title = %q, want %q", got.Title, "Second attempt")
	}
}

func TestDeleteProposal(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestService(db, repo.NewRepository(db))
	owner := createUser(t, db, "heidi@example.com")
	ctx := context.Background()
	id := createProposal(t, svc, owner.ID, "Short lived")

	if err := svc.DeleteProposal(ctx, owner.ID, id); err != nil {
		t.Fatalf("DeleteProposal() error = %v", err)
	}
	if err := svc.DeleteProposal(ctx, owner.ID, id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeleteProposal() error = %v, want not found", err)
	}
	if _, err := svc.GetProposal(ctx, owner.ID, id); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetProposal after delete error = %v, want not found", err)
	}
}

func TestProposalStatistics(t *testing.T) {
	db := setupTestDB(t)
	proposals := repo.NewRepository(db)
	svc := newTestService(db, proposals)
	stats := stat.NewStatService(proposals, nil, 0)
	owner := createUser(t, db, "ivan@example.com")
	ctx := context.Background()

	empty, err := stats.GetProposalStatistics(ctx, owner.ID)
	if err != nil {
		t.Fatalf("GetProposalStatistics() error = %v", err)
	}
	if *empty != (dto.StatisticsResponse{}) {
		t.Errorf("empty statistics = %+v, want zeros", *empty)
	}

	createProposal(t, svc, owner.ID, "a")
	createProposal(t, svc, owner.ID, "b")
	id := createProposal(t, svc, owner.ID, "c")
	reviewing := entity.ProposalStatusReviewing
	if _, err := svc.UpdateProposal(ctx, owner.ID, id, dto.UpdateProposalRequest{Status: &reviewing}); err != nil {
		t.Fatalf("UpdateProposal() error = %v", err)
	}

	got, err := stats.GetProposalStatistics(ctx, owner.ID)
	if err != nil {
		t.Fatalf("GetProposalStatistics() error = %v", err)
	}
	want := dto.StatisticsResponse{Total: 3, Draft: 2, Reviewing: 1}
	if *got != want {
		t.Errorf("statistics = %+v, want %+v", *got, want)
	}
}
