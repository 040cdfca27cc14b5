package authflowrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/acc-rfi-service/auth/authflowrepo"
)

func TestRepos(t *testing.T) {
	repos := map[string]func(t *testing.T) (authflowrepo.Repo, func(time.Duration)){
		"in-memory": func(t *testing.T) (authflowrepo.Repo, func(time.Duration)) {
			now := time.Now()
			repo := authflowrepo.NewInMemoryRepo()
			repo.SetNow(func() time.Time { return now })
			return repo, func(d time.Duration) { now = now.Add(d) }
		},
		"redis": func(t *testing.T) (authflowrepo.Repo, func(time.Duration)) {
			mr := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return authflowrepo.NewRedisRepo(client, "test:"), mr.FastForward
		},
	}

	for name, newRepo := range repos {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("round trip and delete", func(t *testing.T) {
				repo, _ := newRepo(t)
				state := &authflowrepo.AuthFlowState{SessionID: "s1", CreatedAt: time.Now().UTC().Truncate(time.Second)}
				require.NoError(t, repo.Upsert(ctx, "s1", state, time.Minute))

				got, err := repo.Get(ctx, "s1")
				require.NoError(t, err)
				require.Equal(t, state.SessionID, got.SessionID)
				require.True(t, state.CreatedAt.Equal(got.CreatedAt))

				require.NoError(t, repo.Delete(ctx, "s1"))
				_, err = repo.Get(ctx, "s1")
				require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
			})

			t.Run("expires", func(t *testing.T) {
				repo, advance := newRepo(t)
				require.NoError(t, repo.Upsert(ctx, "s2", &authflowrepo.AuthFlowState{SessionID: "s2"}, time.Minute))
				advance(2 * time.Minute)
				_, err := repo.Get(ctx, "s2")
				require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
			})

			t.Run("empty state", func(t *testing.T) {
				repo, _ := newRepo(t)
				_, err := repo.Get(ctx, "")
				require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
				require.Error(t, repo.Upsert(ctx, "", &authflowrepo.AuthFlowState{}, time.Minute))
			})
		})
	}
}
