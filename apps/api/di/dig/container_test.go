package dig_container_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dig_container "github.com/trezcool/masomo-console/apps/api/di/dig"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/access"
	"github.com/trezcool/masomo-console/core/program"
	"github.com/trezcool/masomo-console/core/report"
	inmemdb "github.com/trezcool/masomo-console/storage/database/inmem"
)

func TestNew(t *testing.T) {
	snapshotPath := filepath.Join(t.TempDir(), "snap", "masomo.db")
	newConfig := func() *core.Config {
		conf := core.NewTestConfig()
		conf.Debug = true
		conf.Database.SnapshotPath = snapshotPath
		return conf
	}

	c := dig_container.New(newConfig)
	err := c.Invoke(func(app dig_container.App, sources report.Sources, prgRepo program.Repository) {
		assert.NotNil(t, app.Server)
		assert.NotNil(t, app.Scheduler)
		assert.Nil(t, app.SQL)
		require.NotNil(t, app.Snapshots)
		defer func() { _ = app.Snapshots.Close() }()

		require.NoError(t, inmemdb.Seed(app.DB))

		// repositories share the container's database
		prgs, err := prgRepo.QueryPrograms(context.Background(), program.QueryFilter{})
		require.NoError(t, err)
		assert.Len(t, prgs, 3)

		ds, err := sources.Dataset(context.Background(), access.Principal{ID: "USR002", Role: access.RoleAdmin}, report.Programs)
		require.NoError(t, err)
		assert.Len(t, ds.Rows, 3)
	})
	require.NoError(t, err)
}
