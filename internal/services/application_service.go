package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/campusgigs/campusgigs-backend/internal/apperr"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/models"
)

// withdrawnNote is the fixed audit note attached to seeker withdrawals.
const withdrawnNote = "withdrawn by applicant"

// ApplicationService owns the application lifecycle: submission, status
// transitions with their audit trail, withdrawal, and the read projections.
// Every status change commits its history row and the application update in
// one transaction.
type ApplicationService struct {
	DB *gorm.DB
}

func NewApplicationService(db *gorm.DB) *ApplicationService {
	return &ApplicationService{DB: db}
}

// Apply submits the acting seeker's application to a job post. Requires an
// existing profile and no live application for the same (job post, profile)
// pair; a previously withdrawn one is replaced.
func (s *ApplicationService) Apply(ctx context.Context, actor auth.Identity, req *dtos.ApplyRequest) (*models.Application, error) {
	var post models.JobPost
	if err := s.DB.WithContext(ctx).First(&post, req.JobPostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job post not found")
		}
		return nil, apperr.Internal("failed to load job post", err)
	}

	var profile models.Profile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("no profile found, create a profile first")
		}
		return nil, apperr.Internal("failed to load profile", err)
	}

	var prior *models.Application
	var existing models.Application
	err := s.DB.WithContext(ctx).
		Where("job_post_id = ? AND profile_id = ?", post.ID, profile.ID).
		First(&existing).Error
	switch {
	case err == nil:
		if existing.StatusID != models.StatusWithdrawn {
			return nil, apperr.Conflict("you have already applied to this job")
		}
		prior = &existing
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first application for this pair
	default:
		return nil, apperr.Internal("failed to check existing application", err)
	}

	app := models.Application{
		JobPostID:   post.ID,
		ProfileID:   profile.ID,
		StatusID:    models.StatusPending,
		CoverLetter: req.CoverLetter,
		ResumeURL:   req.ResumeURL,
		AppliedAt:   time.Now().UTC(),
	}

	// Commits must not be torn by a client disconnect.
	writeCtx := context.WithoutCancel(ctx)
	err = s.DB.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		if prior != nil {
			// The withdrawn application is soft-deleted so the partial
			// unique index admits the fresh row. Its history stays.
			if err := tx.Delete(&models.Application{}, prior.ID).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&app).Error; err != nil {
			return err
		}
		return tx.Model(&models.JobPost{}).
			Where("id = ?", post.ID).
			UpdateColumn("applications_count", gorm.Expr("applications_count + ?", 1)).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("you have already applied to this job")
		}
		return nil, apperr.Internal("failed to create application", err)
	}
	return &app, nil
}

// UpdateStatus moves an application to a new status on behalf of an
// employer or admin. The caller must be the job post's creator, the owning
// company's owner, or an admin.
func (s *ApplicationService) UpdateStatus(ctx context.Context, actor auth.Identity, applicationID uint, req *dtos.UpdateStatusRequest) (*models.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	var status models.ApplicationStatus
	if err := s.DB.WithContext(ctx).First(&status, req.StatusID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.InvalidInput("unknown application status")
		}
		return nil, apperr.Internal("failed to load status", err)
	}

	if err := s.authorizeReviewer(ctx, actor, app.JobPostID); err != nil {
		return nil, err
	}
	if app.StatusID == req.StatusID {
		return nil, apperr.Conflict("application is already in this status")
	}

	now := time.Now().UTC()
	if err := s.transition(ctx, app, req.StatusID, &actor.UserID, req.Notes, func(tx *gorm.DB) error {
		return tx.Model(&models.Application{}).Where("id = ?", app.ID).Updates(map[string]interface{}{
			"status_id":      req.StatusID,
			"reviewed_by_id": actor.UserID,
			"reviewed_at":    now,
			"review_notes":   req.Notes,
		}).Error
	}); err != nil {
		return nil, err
	}
	return s.load(ctx, app.ID)
}

// Withdraw moves the application to Withdrawn on behalf of the seeker who
// owns the linked profile.
func (s *ApplicationService) Withdraw(ctx context.Context, actor auth.Identity, applicationID uint) (*models.Application, error) {
	app, err := s.load(ctx, applicationID)
	if err != nil {
		return nil, err
	}

	var profile models.Profile
	if err := s.DB.WithContext(ctx).First(&profile, app.ProfileID).Error; err != nil {
		return nil, apperr.Internal("failed to load profile", err)
	}
	if profile.UserID != actor.UserID {
		return nil, apperr.Forbidden("only the applicant can withdraw this application")
	}
	if app.StatusID == models.StatusWithdrawn {
		return nil, apperr.Conflict("application is already withdrawn")
	}

	if err := s.transition(ctx, app, models.StatusWithdrawn, &actor.UserID, withdrawnNote, func(tx *gorm.DB) error {
		return tx.Model(&models.Application{}).Where("id = ?", app.ID).
			UpdateColumn("status_id", models.StatusWithdrawn).Error
	}); err != nil {
		return nil, err
	}
	return s.load(ctx, app.ID)
}

// transition writes the history row and applies the update in one commit.
func (s *ApplicationService) transition(ctx context.Context, app *models.Application, toStatus uint, changedBy *uint, notes string, update func(tx *gorm.DB) error) error {
	writeCtx := context.WithoutCancel(ctx)
	err := s.DB.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		history := models.ApplicationHistory{
			ApplicationID: app.ID,
			FromStatusID:  app.StatusID,
			ToStatusID:    toStatus,
			ChangedByID:   changedBy,
			Notes:         notes,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}
		return update(tx)
	})
	if err != nil {
		return apperr.Internal("failed to update application status", err)
	}
	return nil
}

// authorizeReviewer walks job post -> company -> owner.
func (s *ApplicationService) authorizeReviewer(ctx context.Context, actor auth.Identity, jobPostID uint) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	var post models.JobPost
	if err := s.DB.WithContext(ctx).First(&post, jobPostID).Error; err != nil {
		return apperr.Internal("failed to load job post", err)
	}
	if post.CreatedByID == actor.UserID {
		return nil
	}
	var company models.Company
	if err := s.DB.WithContext(ctx).First(&company, post.CompanyID).Error; err != nil {
		return apperr.Internal("failed to load company", err)
	}
	if company.OwnerID == actor.UserID {
		return nil
	}
	return apperr.Forbidden("you cannot review applications for this job post")
}

func (s *ApplicationService) load(ctx context.Context, id uint) (*models.Application, error) {
	var app models.Application
	if err := s.DB.WithContext(ctx).Preload("Status").First(&app, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("application not found")
		}
		return nil, apperr.Internal("failed to load application", err)
	}
	return &app, nil
}

func (s *ApplicationService) GetByID(ctx context.Context, id uint) (*models.Application, error) {
	return s.load(ctx, id)
}

// GetByJobPost lists a job post's applications, newest first.
func (s *ApplicationService) GetByJobPost(ctx context.Context, jobPostID uint, page dtos.PageRequest) (*dtos.PagedResult[models.Application], error) {
	var post models.JobPost
	if err := s.DB.WithContext(ctx).First(&post, jobPostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("job post not found")
		}
		return nil, apperr.Internal("failed to load job post", err)
	}
	return s.list(ctx, "job_post_id = ?", jobPostID, page)
}

// GetByProfile lists a profile's applications, newest first.
func (s *ApplicationService) GetByProfile(ctx context.Context, profileID uint, page dtos.PageRequest) (*dtos.PagedResult[models.Application], error) {
	return s.list(ctx, "profile_id = ?", profileID, page)
}

func (s *ApplicationService) list(ctx context.Context, query string, arg interface{}, page dtos.PageRequest) (*dtos.PagedResult[models.Application], error) {
	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Application{}).Where(query, arg).Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count applications", err)
	}
	pageNum, limit := page.Normalize()
	var items []models.Application
	err := s.DB.WithContext(ctx).
		Where(query, arg).
		Order("applied_at DESC").
		Limit(limit).
		Offset(page.Offset()).
		Preload("Status").
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal("failed to list applications", err)
	}
	return &dtos.PagedResult[models.Application]{Items: items, Total: total, Page: pageNum, Limit: limit}, nil
}

// History returns the audit trail for one application, oldest first.
func (s *ApplicationService) History(ctx context.Context, applicationID uint) ([]models.ApplicationHistory, error) {
	if _, err := s.load(ctx, applicationID); err != nil {
		return nil, err
	}
	var rows []models.ApplicationHistory
	err := s.DB.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Internal("failed to load application history", err)
	}
	return rows, nil
}
