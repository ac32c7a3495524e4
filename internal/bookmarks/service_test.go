package bookmarks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/stackfinderz-backend/internal/stacks"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stackfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/stackfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stackfinderz-backend/pkg/errors"
)

type fixture struct {
	db     *gorm.DB
	svc    Service
	repo   *Repository
	stacks *stacks.Repository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	stackRepo := stacks.NewRepository(conn)
	svc, err := NewService(repo, stackRepo)
	require.NoError(t, err)
	return fixture{db: conn, svc: svc, repo: repo, stacks: stackRepo}
}

func (f fixture) seedStack(t *testing.T, name string) *models.Stack {
	t.Helper()
	stack := &models.Stack{
		Name:        name,
		Industry:    enums.IndustrySaaS,
		Scale:       enums.ScaleSeed,
		Location:    "Berlin",
		Description: "A stack used in bookmark tests",
	}
	require.NoError(t, f.stacks.Create(context.Background(), stack))
	return stack
}

func TestToggleAddsThenRemoves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	stack := f.seedStack(t, "Notion")

	res, err := f.svc.Toggle(ctx, user, stack.ID)
	require.NoError(t, err)
	assert.True(t, res.Bookmarked)
	assert.Equal(t, msgAdded, res.Message)

	ids, err := f.svc.StackIDs(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{stack.ID}, ids)

	res, err = f.svc.Toggle(ctx, user, stack.ID)
	require.NoError(t, err)
	assert.False(t, res.Bookmarked)
	assert.Equal(t, msgRemoved, res.Message)

	ids, err = f.svc.StackIDs(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestToggleUnknownStack(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Toggle(context.Background(), uuid.New(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.Toggle(context.Background(), uuid.Nil, uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Toggle(context.Background(), uuid.New(), uuid.Nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestAddIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user, stack := uuid.New(), f.seedStack(t, "Figma")

	added, err := f.repo.Add(ctx, user, stack.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = f.repo.Add(ctx, user, stack.ID)
	require.NoError(t, err)
	assert.False(t, added)

	var count int64
	require.NoError(t, f.db.Model(&models.Bookmark{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListSkipsDanglingBookmarks(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	older := f.seedStack(t, "Discord")
	newer := f.seedStack(t, "Canva")

	now := time.Now().UTC()
	require.NoError(t, f.db.Create(&models.Bookmark{UserID: user, StackID: older.ID, CreatedAt: now.Add(-time.Hour)}).Error)
	require.NoError(t, f.db.Create(&models.Bookmark{UserID: user, StackID: newer.ID, CreatedAt: now}).Error)
	dangling := uuid.New()
	require.NoError(t, f.db.Create(&models.Bookmark{UserID: user, StackID: dangling, CreatedAt: now}).Error)

	list, err := f.svc.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Canva", list[0].Name)
	assert.Equal(t, "Discord", list[1].Name)

	// the dangling row is filtered, not deleted
	var count int64
	require.NoError(t, f.db.Model(&models.Bookmark{}).Where("stack_id = ?", dangling).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

type failingRepo struct{ bookmarkRepository }

func (failingRepo) ListStacks(context.Context, uuid.UUID) ([]models.Stack, error) {
	return nil, errors.New("db down")
}

func TestListWrapsRepositoryErrors(t *testing.T) {
	f := newFixture(t)
	svc, err := NewService(failingRepo{}, f.stacks)
	require.NoError(t, err)

	_, err = svc.List(context.Background(), uuid.New())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeDependency))
}
