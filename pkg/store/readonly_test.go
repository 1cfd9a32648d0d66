package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
)

// countingStore implements just enough of Store for the wrapper tests. Calling any
// other method panics on the nil embedded interface.
type countingStore struct {
	Store
	creates int
	gets    int
	marks   int
}

func (c *countingStore) CreateProject(ctx context.Context, p *models.Project) error {
	c.creates++
	return nil
}

func (c *countingStore) GetProject(ctx context.Context, id models.ProjectID) (*models.Project, error) {
	c.gets++
	return &models.Project{ID: id}, nil
}

func (c *countingStore) MarkAllNotificationsRead(ctx context.Context, userID models.UserID) (int64, error) {
	c.marks++
	return 3, nil
}

func TestReadOnlyStoreBlocksWrites(t *testing.T) {
	inner := &countingStore{}
	readOnly := true
	s := NewReadOnlyStore(inner, func() bool { return readOnly })
	ctx := context.Background()

	err := s.CreateProject(ctx, &models.Project{})
	assert.ErrorIs(t, err, ErrReadOnly)
	n, err := s.MarkAllNotificationsRead(ctx, models.NewUserID())
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Zero(t, n)
	assert.Zero(t, inner.creates)
	assert.Zero(t, inner.marks)

	p, err := s.GetProject(ctx, models.NewProjectID())
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, 1, inner.gets)
}

func TestReadOnlyStoreToggles(t *testing.T) {
	inner := &countingStore{}
	readOnly := true
	s := NewReadOnlyStore(inner, func() bool { return readOnly })
	ctx := context.Background()

	require.ErrorIs(t, s.CreateProject(ctx, &models.Project{}), ErrReadOnly)

	readOnly = false
	require.NoError(t, s.CreateProject(ctx, &models.Project{}))
	n, err := s.MarkAllNotificationsRead(ctx, models.NewUserID())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1, inner.creates)

	assert.Same(t, inner, s.(*ReadOnlyStore).Unwrap())
}
