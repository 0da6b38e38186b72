package services

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusgigs/campusgigs-backend/internal/apperr"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/models"
)

// JobService is the boundary CRUD around companies and job posts; just
// enough surface for the lifecycle manager's ownership chain to exist.
type JobService struct {
	DB *gorm.DB
}

func NewJobService(db *gorm.DB) *JobService {
	return &JobService{DB: db}
}

func (s *JobService) CreateCompany(ctx context.Context, actor auth.Identity, req *dtos.CompanyCreationRequest) (*models.Company, error) {
	if actor.Role != models.RoleEmployer && actor.Role != models.RoleAdmin {
		return nil, apperr.Forbidden("only employers can register companies")
	}
	company := models.Company{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     actor.UserID,
	}
	writeCtx := context.WithoutCancel(ctx)
	if err := s.DB.WithContext(writeCtx).Create(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("a company with this name already exists")
		}
		return nil, apperr.Internal("failed to create company", err)
	}
	return &company, nil
}

func (s *JobService) CreateJobPost(ctx context.Context, actor auth.Identity, req *dtos.JobPostCreationRequest) (*models.JobPost, error) {
	var company models.Company
	if err := s.DB.WithContext(ctx).First(&company, req.CompanyID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("company not found")
		}
		return nil, apperr.Internal("failed to load company", err)
	}
	if actor.Role != models.RoleAdmin && company.OwnerID != actor.UserID {
		return nil, apperr.Forbidden("you do not own this company")
	}

	post := models.JobPost{
		CompanyID:   company.ID,
		CreatedByID: actor.UserID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		HourlyRate:  req.HourlyRate,
	}
	if len(req.Tags) > 0 {
		raw, err := json.Marshal(req.Tags)
		if err != nil {
			return nil, apperr.InvalidInput("invalid tags")
		}
		post.Tags = datatypes.JSON(raw)
	}

	writeCtx := context.WithoutCancel(ctx)
	if err := s.DB.WithContext(writeCtx).Create(&post).Error; err != nil {
		return nil, apperr.Internal("failed to create job post", err)
	}
	return &post, nil
}

// GetJobPost returns one post and bumps its view counter with an atomic
// UPDATE; concurrent views never under-count.
func (s *JobService) GetJobPost(ctx context.Context, id uint) (*models.JobPost, error) {
	var post models.JobPost
	if err := s.DB.WithContext(ctx).Preload("Company").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job post not found")
		}
		return nil, apperr.Internal("failed to load job post", err)
	}
	writeCtx := context.WithoutCancel(ctx)
	err := s.DB.WithContext(writeCtx).Model(&models.JobPost{}).
		Where("id = ?", post.ID).
		UpdateColumn("views_count", gorm.Expr("views_count + ?", 1)).Error
	if err != nil {
		return nil, apperr.Internal("failed to record view", err)
	}
	post.ViewsCount++
	return &post, nil
}

func (s *JobService) ListJobPosts(ctx context.Context, page dtos.PageRequest) (*dtos.PagedResult[models.JobPost], error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.JobPost{}).Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count job posts", err)
	}
	pageNum, limit := page.Normalize()
	var items []models.JobPost
	err := s.DB.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(page.Offset()).
		Preload("Company").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal("failed to list job posts", err)
	}
	return &dtos.PagedResult[models.JobPost]{Items: items, Total: total, Page: pageNum, Limit: limit}, nil
}
