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

// DirectoryService covers users and seeker profiles. Real registration and
// credential handling live outside this service; EnsureUser backs the
// dev-login token endpoint only.
type DirectoryService struct {
	DB *gorm.DB
}

func NewDirectoryService(db *gorm.DB) *DirectoryService {
	return &DirectoryService{DB: db}
}

// EnsureUser returns the user with this email, creating the row on first
// sight. Role and display name apply at creation only.
func (s *DirectoryService) EnsureUser(ctx context.Context, email, displayName string, role models.Role) (*models.User, error) {
	if email == "" {
		return nil, apperr.InvalidInput("email is required")
	}
	switch role {
	case models.RoleSeeker, models.RoleEmployer, models.RoleAdmin:
	default:
		return nil, apperr.InvalidInput("unknown role")
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("failed to load user", err)
	}

	user = models.User{Email: email, DisplayName: displayName, Role: role}
	writeCtx := context.WithoutCancel(ctx)
	if err := s.DB.WithContext(writeCtx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if err := s.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
				return nil, apperr.Internal("failed to load user", err)
			}
			return &user, nil
		}
		return nil, apperr.Internal("failed to create user", err)
	}
	return &user, nil
}

// UpsertProfile creates or updates the acting seeker's profile.
func (s *DirectoryService) UpsertProfile(ctx context.Context, actor auth.Identity, req *dtos.ProfileUpsertRequest) (*models.Profile, error) {
	if actor.Role != models.RoleSeeker {
		return nil, apperr.Forbidden("only seekers have profiles")
	}

	var skills datatypes.JSON
	if len(req.Skills) > 0 {
		raw, err := json.Marshal(req.Skills)
		if err != nil {
			return nil, apperr.InvalidInput("invalid skills")
		}
		skills = datatypes.JSON(raw)
	}

	writeCtx := context.WithoutCancel(ctx)
	var profile models.Profile
	err := s.DB.WithContext(ctx).Where("user_id = ?", actor.UserID).First(&profile).Error
	switch {
	case err == nil:
		profile.Headline = req.Headline
		profile.Bio = req.Bio
		profile.Skills = skills
		profile.ResumeURL = req.ResumeURL
		if err := s.DB.WithContext(writeCtx).Save(&profile).Error; err != nil {
			return nil, apperr.Internal("failed to update profile", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		profile = models.Profile{
			UserID:    actor.UserID,
			Headline:  req.Headline,
			Bio:       req.Bio,
			Skills:    skills,
			ResumeURL: req.ResumeURL,
		}
		if err := s.DB.WithContext(writeCtx).Create(&profile).Error; err != nil {
			return nil, apperr.Internal("failed to create profile", err)
		}
	default:
		return nil, apperr.Internal("failed to load profile", err)
	}
	return &profile, nil
}

// ProfileByUser returns the profile linked to a user id.
func (s *DirectoryService) ProfileByUser(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	if err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("profile not found")
		}
		return nil, apperr.Internal("failed to load profile", err)
	}
	return &profile, nil
}
