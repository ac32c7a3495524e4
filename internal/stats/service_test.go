package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

func seedStack(t *testing.T, conn *gorm.DB, industry enums.Industry, scale enums.Scale, status enums.StackStatus) {
	t.Helper()
	require.NoError(t, conn.Create(&models.Stack{
		Name:        "stack-" + uuid.NewString()[:8],
		Industry:    industry,
		Scale:       scale,
		Location:    "Remote",
		Description: "Seeded for stats tests",
		Status:      status,
	}).Error)
}

func TestGetAggregatesApprovedStacks(t *testing.T) {
	conn := dbtest.Open(t)
	ctx := context.Background()

	seedStack(t, conn, enums.IndustrySaaS, enums.ScaleSeed, enums.StackStatusApproved)
	seedStack(t, conn, enums.IndustrySaaS, enums.ScalePublic, enums.StackStatusApproved)
	seedStack(t, conn, enums.IndustryFintech, enums.ScalePublic, enums.StackStatusApproved)
	seedStack(t, conn, enums.IndustryEdTech, enums.ScaleSeed, enums.StackStatusApproved)
	seedStack(t, conn, enums.IndustryGaming, enums.ScaleSeed, enums.StackStatusRejected)

	user := &models.User{Username: "maria", Email: "maria@example.com", PasswordHash: "x"}
	require.NoError(t, conn.Create(user).Error)
	for _, status := range []enums.ContributionStatus{enums.ContributionStatusPending, enums.ContributionStatusPending, enums.ContributionStatusRejected} {
		require.NoError(t, conn.Create(&models.Contribution{
			Name:        "c",
			Industry:    enums.IndustryOther,
			Scale:       enums.ScaleSeed,
			Location:    "Remote",
			Description: "pending contribution",
			Status:      status,
			SubmittedBy: user.ID,
			SubmittedAt: user.CreatedAt,
		}).Error)
	}

	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	summary, err := svc.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(4), summary.TotalStacks)
	assert.Equal(t, int64(2), summary.PendingContributions)
	assert.Equal(t, int64(1), summary.TotalUsers)
	assert.Equal(t, []Bucket{
		{Key: "SaaS", Count: 2},
		{Key: "EdTech", Count: 1},
		{Key: "Fintech", Count: 1},
	}, summary.IndustryStats)
	assert.Equal(t, []Bucket{
		{Key: "Public", Count: 2},
		{Key: "Seed", Count: 2},
	}, summary.ScaleStats)
}

func TestDistributionBreaksTiesByKeyText(t *testing.T) {
	conn := dbtest.Open(t)
	for _, industry := range []enums.Industry{enums.IndustrySaaS, enums.IndustryFintech, enums.IndustryECommerce, enums.IndustryAIML, enums.IndustrySaaS} {
		seedStack(t, conn, industry, enums.ScaleSeed, enums.StackStatusApproved)
	}

	buckets, err := NewRepository(conn).IndustryDistribution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Bucket{
		{Key: "SaaS", Count: 2},
		{Key: "AI/ML", Count: 1},
		{Key: "E-commerce", Count: 1},
		{Key: "Fintech", Count: 1},
	}, buckets)
}

func TestGetEmptyCatalog(t *testing.T) {
	svc, err := NewService(NewRepository(dbtest.Open(t)))
	require.NoError(t, err)
	summary, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.TotalStacks)
	assert.NotNil(t, summary.IndustryStats)
	assert.Empty(t, summary.ScaleStats)
}

type brokenRepo struct{ *Repository }

func (brokenRepo) CountApprovedStacks(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestGetWrapsRepositoryErrors(t *testing.T) {
	svc, err := NewService(brokenRepo{Repository: NewRepository(dbtest.Open(t))})
	require.NoError(t, err)
	_, err = svc.Get(context.Background())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	assert.Error(t, err)
}
