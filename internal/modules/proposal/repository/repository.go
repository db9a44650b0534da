package proposal

import (
	"context"
	"errors"
	"strings"

	"anoa.com/innoliber/internal/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleVersion means the row changed between the read and the write of a versioned update.
var ErrStaleVersion = errors.New("stale proposal version")

// sortableColumns lists every proposal column a list request may order by.
var sortableColumns = map[string]struct{}{
	"id": {}, "title": {}, "description": {}, "status": {}, "owner_id": {},
	"version": {}, "word_count": {}, "quality_score": {}, "content_score": {},
	"format_score": {}, "innovation_score": {}, "funding_agency": {},
	"funding_amount": {}, "project_duration": {}, "research_field": {},
	"created_at": {}, "updated_at": {}, "submitted_at": {}, "last_auto_save_at": {},
}

type ListParams struct {
	OwnerID   uint
	Status    string
	Search    string
	SortBy    string
	SortOrder string
	Offset    int
	Limit     int
}

type Repository interface {
	Create(ctx context.Context, proposal *entity.Proposal) error
	FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*entity.Proposal, error)
	FindAll(ctx context.Context, params ListParams) ([]*entity.Proposal, int64, error)
	CountByStatus(ctx context.Context, ownerID uint) (map[string]int64, error)
	// UpdateVersioned reads the row, lets mutate derive the new state and
	// writes it only if the stored version is still the one that was read.
	UpdateVersioned(ctx context.Context, id, ownerID uint, mutate func(current *entity.Proposal) (*entity.Proposal, error)) (*entity.Proposal, error)
	Delete(ctx context.Context, id, ownerID uint) (bool, error)
	// ListBatch walks every proposal in id order, across owners.
	ListBatch(ctx context.Context, afterID uint, limit int) ([]*entity.Proposal, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, proposal *entity.Proposal) error {
	return r.db.WithContext(ctx).Create(proposal).Error
}

func (r *repository) FindByIDAndOwner(ctx context.Context, id, ownerID uint) (*entity.Proposal, error) {
	return findByIDAndOwner(r.db.WithContext(ctx), id, ownerID)
}

func findByIDAndOwner(db *gorm.DB, id, ownerID uint) (*entity.Proposal, error) {
	var proposal entity.Proposal
	if err := db.Where("id = ? AND owner_id = ?", id, ownerID).First(&proposal).Error; err != nil {
		return nil, err
	}
	return &proposal, nil
}

func (r *repository) FindAll(ctx context.Context, params ListParams) ([]*entity.Proposal, int64, error) {
	var proposals []*entity.Proposal
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Proposal{}).Where("owner_id = ?", params.OwnerID)

	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	if search := strings.TrimSpace(params.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.Where(
			"LOWER(title) LIKE LOWER(?) OR LOWER(research_field) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)",
			pattern, pattern, pattern,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := params.SortBy
	if _, ok := sortableColumns[sortBy]; !ok {
		sortBy = "updated_at"
	}
	query = query.Order(clause.OrderByColumn{
		Column: clause.Column{Name: sortBy},
		Desc:   !strings.EqualFold(params.SortOrder, "asc"),
	})
	if sortBy != "id" {
		query = query.Order("id DESC")
	}

	if err := query.Offset(params.Offset).Limit(params.Limit).Find(&proposals).Error; err != nil {
		return nil, 0, err
	}

	return proposals, total, nil
}

func (r *repository) CountByStatus(ctx context.Context, ownerID uint) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}

	if err := r.db.WithContext(ctx).
		Model(&entity.Proposal{}).
		Select("status, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (r *repository) UpdateVersioned(ctx context.Context, id, ownerID uint, mutate func(current *entity.Proposal) (*entity.Proposal, error)) (*entity.Proposal, error) {
	var saved *entity.Proposal

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findByIDAndOwner(tx, id, ownerID)
		if err != nil {
			return err
		}

		updated, err := mutate(current)
		if err != nil {
			return err
		}

		res := tx.Model(&entity.Proposal{}).
			Where("id = ? AND owner_id = ? AND version = ?", id, ownerID, current.Version).
			Select("*").
			Omit("id", "owner_id", "created_at", clause.Associations).
			Updates(updated)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleVersion
		}

		saved, err = findByIDAndOwner(tx, id, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

func (r *repository) Delete(ctx context.Context, id, ownerID uint) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&entity.Proposal{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) ListBatch(ctx context.Context, afterID uint, limit int) ([]*entity.Proposal, error) {
	var proposals []*entity.Proposal
	if err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&proposals).Error; err != nil {
		return nil, err
	}
	return proposals, nil
}
