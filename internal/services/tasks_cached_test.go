package services_test

import (
	"testing"

	"github.com/mek0124/momentum/internal/cache"
	"github.com/mek0124/momentum/internal/models"
	"github.com/mek0124/momentum/internal/services"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCachedTasks(t *testing.T) (*services.CachedTaskService, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := cache.NewRedisCacheWithClient(client)
	return services.NewCachedTaskService(services.NewTaskService(), c), mr
}

func TestCachedTasks_ListServedFromCache(t *testing.T) {
	db := setupDB(t)
	svc, _ := setupCachedTasks(t)
	owner := mustUser(t, db, "alice", false)
	task := mustTask(t, db, svc, owner, "cached title")

	first, err := svc.List(db, owner.ID)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Mutate the store behind the cache's back; the cached projection is
	// what the next read returns.
	require.NoError(t, db.Model(&models.Task{}).Where("id = ?", task.ID).Update("title", "changed underneath").Error)

	second, err := svc.List(db, owner.ID)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "cached title", second[0].Title)
}

func TestCachedTasks_MutationsInvalidate(t *testing.T) {
	db := setupDB(t)
	svc, _ := setupCachedTasks(t)
	owner := mustUser(t, db, "alice", false)
	task := mustTask(t, db, svc, owner, "original")

	_, err := svc.List(db, owner.ID)
	require.NoError(t, err)

	newTitle := "renamed"
	_, err = svc.Update(db, owner.ID, task.ID, services.TaskPatch{Title: &newTitle})
	require.NoError(t, err)

	listed, err := svc.List(db, owner.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "renamed", listed[0].Title)

	require.NoError(t, svc.Delete(db, owner.ID, task.ID))
	listed, err = svc.List(db, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestCachedTasks_KeysAreOwnerScoped(t *testing.T) {
	db := setupDB(t)
	svc, _ := setupCachedTasks(t)
	alice := mustUser(t, db, "alice", false)
	bob := mustUser(t, db, "bob", false)
	task := mustTask(t, db, svc, alice, "alice only")

	// Warm alice's entry, then read the same ID as bob.
	_, err := svc.Get(db, alice.ID, task.ID)
	require.NoError(t, err)

	_, err = svc.Get(db, bob.ID, task.ID)
	assert.Error(t, err, "a cached task must never leak across owners")
}

func TestCachedTasks_CacheOutageFallsThrough(t *testing.T) {
	db := setupDB(t)
	svc, mr := setupCachedTasks(t)
	owner := mustUser(t, db, "alice", false)
	task := mustTask(t, db, svc, owner, "resilient")

	mr.Close()

	got, err := svc.Get(db, owner.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "resilient", got.Title)

	listed, err := svc.List(db, owner.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}
