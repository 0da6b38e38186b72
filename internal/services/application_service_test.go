package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusgigs/campusgigs-backend/internal/apperr"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/models"
)

func TestApplyCreatesPendingApplication(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)

	app, err := svc.Apply(context.Background(), asUser(f.Seeker), &dtos.ApplyRequest{
		JobPostID:   f.JobPost.ID,
		CoverLetter: "I can work weekends",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, app.StatusID)
	assert.Equal(t, f.Profile.ID, app.ProfileID)
	assert.False(t, app.AppliedAt.IsZero())

	var post models.JobPost
	require.NoError(t, db.First(&post, f.JobPost.ID).Error)
	assert.Equal(t, 1, post.ApplicationsCount)

	// Creation is not a transition, so no history row yet.
	var historyCount int64
	require.NoError(t, db.Model(&models.ApplicationHistory{}).Where("application_id = ?", app.ID).Count(&historyCount).Error)
	assert.Zero(t, historyCount)
}

func TestApplyPreconditions(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)
	ctx := context.Background()

	_, err := svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: 9999})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	noProfile := models.User{Email: "new@student.test", DisplayName: "No Profile", Role: models.RoleSeeker}
	require.NoError(t, db.Create(&noProfile).Error)
	_, err = svc.Apply(ctx, asUser(noProfile), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestApplyWithdrawReapplyCycle(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)
	ctx := context.Background()

	first, err := svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	require.NoError(t, err)

	// A live application blocks a second one.
	_, err = svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))

	withdrawn, err := svc.Withdraw(ctx, asUser(f.Seeker), first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWithdrawn, withdrawn.StatusID)

	var history []models.ApplicationHistory
	require.NoError(t, db.Where("application_id = ?", first.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusPending, history[0].FromStatusID)
	assert.Equal(t, models.StatusWithdrawn, history[0].ToStatusID)
	assert.Equal(t, withdrawnNote, history[0].Notes)
	require.NotNil(t, history[0].ChangedByID)
	assert.Equal(t, f.Seeker.ID, *history[0].ChangedByID)

	// After withdrawing, a fresh application for the same pair succeeds.
	second, err := svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, models.StatusPending, second.StatusID)

	// The withdrawn application was soft-deleted but its row and history
	// survive.
	var gone models.Application
	assert.Error(t, db.First(&gone, first.ID).Error)
	require.NoError(t, db.Unscoped().First(&gone, first.ID).Error)
	assert.True(t, gone.DeletedAt.Valid)
}

func TestUpdateStatusWritesExactlyOneHistoryRow(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)
	ctx := context.Background()

	app, err := svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, asUser(f.Employer), app.ID, &dtos.UpdateStatusRequest{
		StatusID: models.StatusShortlisted,
		Notes:    "Good fit",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusShortlisted, updated.StatusID)
	assert.Equal(t, "Shortlisted", updated.Status.Name)
	require.NotNil(t, updated.ReviewedByID)
	assert.Equal(t, f.Employer.ID, *updated.ReviewedByID)
	assert.NotNil(t, updated.ReviewedAt)
	assert.Equal(t, "Good fit", updated.ReviewNotes)

	var history []models.ApplicationHistory
	require.NoError(t, db.Where("application_id = ?", app.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StatusPending, history[0].FromStatusID)
	assert.Equal(t, models.StatusShortlisted, history[0].ToStatusID)
	assert.Equal(t, "Good fit", history[0].Notes)
}

func TestUpdateStatusValidation(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)
	ctx := context.Background()

	app, err := svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, asUser(f.Employer), 9999, &dtos.UpdateStatusRequest{StatusID: models.StatusReviewing})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	_, err = svc.UpdateStatus(ctx, asUser(f.Employer), app.ID, &dtos.UpdateStatusRequest{StatusID: 42})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))

	// Re-assigning the current status is a conflict, not a silent no-op.
	_, err = svc.UpdateStatus(ctx, asUser(f.Employer), app.ID, &dtos.UpdateStatusRequest{StatusID: models.StatusPending})
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestUpdateStatusPermissions(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)
	ctx := context.Background()

	app, err := svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	require.NoError(t, err)

	stranger := models.User{Email: "other@employer.test", DisplayName: "Other Co", Role: models.RoleEmployer}
	require.NoError(t, db.Create(&stranger).Error)
	_, err = svc.UpdateStatus(ctx, asUser(stranger), app.ID, &dtos.UpdateStatusRequest{StatusID: models.StatusReviewing})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	// The applicant cannot review their own application either.
	_, err = svc.UpdateStatus(ctx, asUser(f.Seeker), app.ID, &dtos.UpdateStatusRequest{StatusID: models.StatusReviewing})
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	// Admins bypass the ownership chain.
	admin := auth.Identity{UserID: 9999, Role: models.RoleAdmin}
	_, err = svc.UpdateStatus(ctx, admin, app.ID, &dtos.UpdateStatusRequest{StatusID: models.StatusReviewing})
	require.NoError(t, err)

	// The job post creator is authorized.
	_, err = svc.UpdateStatus(ctx, asUser(f.Employer), app.ID, &dtos.UpdateStatusRequest{StatusID: models.StatusInterviewing})
	require.NoError(t, err)
}

func TestWithdrawPermissions(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)
	ctx := context.Background()

	app, err := svc.Apply(ctx, asUser(f.Seeker), &dtos.ApplyRequest{JobPostID: f.JobPost.ID})
	require.NoError(t, err)

	other, _ := newSeeker(t, db, "intruder@student.test")
	_, err = svc.Withdraw(ctx, asUser(other), app.ID)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	_, err = svc.Withdraw(ctx, asUser(f.Employer), app.ID)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))

	_, err = svc.Withdraw(ctx, asUser(f.Seeker), app.ID)
	require.NoError(t, err)

	// Withdrawing twice is a conflict: the status is already Withdrawn.
	_, err = svc.Withdraw(ctx, asUser(f.Seeker), app.ID)
	assert.True(t, apperr.Is(err, apperr.CodeConflict))
}

func TestGetByJobPostPagination(t *testing.T) {
	db := newTestDB(t)
	f := seedMarketplace(t, db)
	svc := NewApplicationService(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		_, profile := newSeeker(t, db, string(rune('a'+i))+"@student.test")
		app := models.Application{
			JobPostID: f.JobPost.ID,
			ProfileID: profile.ID,
			StatusID:  models.StatusPending,
			AppliedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(&app).Error)
	}

	page1, err := svc.GetByJobPost(ctx, f.JobPost.ID, dtos.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page1.Total)
	require.Len(t, page1.Items, 2)
	// Newest appliedAt first.
	assert.True(t, page1.Items[0].AppliedAt.After(page1.Items[1].AppliedAt))

	page3, err := svc.GetByJobPost(ctx, f.JobPost.ID, dtos.PageRequest{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page3.Items, 1)

	_, err = svc.GetByJobPost(ctx, 9999, dtos.PageRequest{})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}
