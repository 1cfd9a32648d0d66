package projecthubtesting

import (
	"context"
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/models"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/projecthub"
	"github.com/surrealdb/surrealdb.go/contrib/projecthub/pkg/store/gormstore"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	st, err := gormstore.NewSQLiteStore(fmt.Sprintf("file:vu_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))

	app, err := projecthub.NewWithStore(&projecthub.Config{
		Store:      projecthub.StoreSQLite,
		JWTSecret:  "vu-secret",
		BcryptCost: bcrypt.MinCost,
	}, st)
	require.NoError(t, err)
	srv := httptest.NewServer(app.Router())
	t.Cleanup(func() {
		srv.Close()
		_ = app.Close()
	})
	return srv
}

func TestVirtualUserDeterministic(t *testing.T) {
	a, err := NewVirtualUser(3, "http://unused")
	require.NoError(t, err)
	b, err := NewVirtualUser(3, "http://unused")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.Equal(t, a.RNG.Intn(100), b.RNG.Intn(100))
	}
	assert.Equal(t, a.Name, b.Name)
	assert.Equal(t, "password3", a.Password)
}

func TestVirtualUserWorkflow(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	vu, err := NewVirtualUser(0, srv.URL)
	require.NoError(t, err)
	require.NoError(t, vu.Register(ctx))

	project, err := vu.CreateProject(ctx, "Launch Plan")
	require.NoError(t, err)
	require.NoError(t, vu.RenameProject(ctx, project, "Launch Plan v2"))

	for i := 0; i < 4; i++ {
		_, err := vu.CreateTask(ctx, project.ID, fmt.Sprintf("Step %d", i))
		require.NoError(t, err)
	}
	tasks := vu.Tasks[project.ID]
	require.NoError(t, vu.MoveTask(ctx, tasks[0]))
	assert.NotEqual(t, models.TaskToDo, vu.Tasks[project.ID][0].Status)
	require.NoError(t, vu.ReorderColumn(ctx, project.ID, models.TaskToDo))
	require.NoError(t, vu.DeleteTask(ctx, vu.Tasks[project.ID][1]))
	require.NoError(t, vu.VerifyAllData(ctx))

	require.NoError(t, vu.CompleteProject(ctx, project.ID))
	for _, task := range vu.Tasks[project.ID] {
		assert.Equal(t, models.TaskCompleted, task.Status)
	}

	second, err := vu.CreateProject(ctx, "Side Quest")
	require.NoError(t, err)
	_, err = vu.CreateTask(ctx, second.ID, "Only task")
	require.NoError(t, err)
	require.NoError(t, vu.DeleteProject(ctx, second.ID))
	assert.Len(t, vu.DeletedTasks, 2)

	require.NoError(t, vu.VerifyAllData(ctx))

	require.NoError(t, vu.Logout(ctx))
	require.NoError(t, vu.Login(ctx))
	require.NoError(t, vu.VerifyAllData(ctx))
}

func TestConcurrentVirtualUsers(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t)

	const numUsers = 4
	errs := make([]error, numUsers)
	var wg sync.WaitGroup
	for i := 0; i < numUsers; i++ {
		wg.Add(1)
		go func(index int) {
			defer wg.Done()
			vu, err := NewVirtualUser(index, srv.URL)
			if err != nil {
				errs[index] = err
				return
			}
			errs[index] = vu.RunScenario(ctx)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "virtual user %d", i)
	}
}
