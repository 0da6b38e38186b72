package services

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/database"
	"github.com/campusgigs/campusgigs-backend/internal/models"
)

// newTestDB opens a temp sqlite database with the production schema and
// seed data. TranslateError matches the production config so duplicate-key
// handling behaves identically.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

// fixture is one employer with a company and job post, plus one seeker with
// a profile.
type fixture struct {
	Employer models.User
	Company  models.Company
	JobPost  models.JobPost
	Seeker   models.User
	Profile  models.Profile
}

func seedMarketplace(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	f := fixture{
		Employer: models.User{Email: "owner@cafedelsol.test", DisplayName: "Cafe del Sol", Role: models.RoleEmployer},
		Seeker:   models.User{Email: "sam@student.test", DisplayName: "Sam Park", Role: models.RoleSeeker},
	}
	require.NoError(t, db.Create(&f.Employer).Error)
	require.NoError(t, db.Create(&f.Seeker).Error)

	f.Company = models.Company{Name: "Cafe del Sol", OwnerID: f.Employer.ID}
	require.NoError(t, db.Create(&f.Company).Error)

	f.JobPost = models.JobPost{
		CompanyID:   f.Company.ID,
		CreatedByID: f.Employer.ID,
		Title:       "Weekend barista",
		Description: "Saturday and Sunday shifts",
	}
	require.NoError(t, db.Create(&f.JobPost).Error)

	f.Profile = models.Profile{UserID: f.Seeker.ID, Headline: "Economics undergrad"}
	require.NoError(t, db.Create(&f.Profile).Error)
	return f
}

func newSeeker(t *testing.T, db *gorm.DB, email string) (models.User, models.Profile) {
	t.Helper()
	user := models.User{Email: email, DisplayName: email, Role: models.RoleSeeker}
	require.NoError(t, db.Create(&user).Error)
	profile := models.Profile{UserID: user.ID}
	require.NoError(t, db.Create(&profile).Error)
	return user, profile
}

func asUser(u models.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Role: u.Role}
}
