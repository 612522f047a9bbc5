package subscription

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"citabot.app/internal/mocks"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const validToken = "abc1234567"

func strPtr(s string) *string        { return &s }
func listPtr(v ...string) *[]string { return &v }

func setupRegistry(t *testing.T) (*UseCase, *mocks.SubscriberStore, *mocks.Logger) {
	t.Helper()

	store := mocks.NewSubscriberStore(t)
	logger := mocks.NewLogger(t)
	uc, err := NewUseCase(UseCaseDependencies{
		Store:  store,
		Logger: logger,
		Now:    func() time.Time { return time.Date(2025, 9, 9, 10, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return uc, store, logger
}

func TestNewUseCase_RequiresDependencies(t *testing.T) {
	_, err := NewUseCase(UseCaseDependencies{Logger: mocks.NewLogger(t)})
	assert.True(t, errors.IsValidationError(err))
}

func TestUseCase_Register_RejectsShortToken(t *testing.T) {
	uc, _, _ := setupRegistry(t)

	created, err := uc.Register(context.Background(), RegisterParams{Token: "short"})
	assert.False(t, created)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 0, uc.Count())
}

func TestUseCase_Register_RejectsMalformedFavorites(t *testing.T) {
	uc, _, _ := setupRegistry(t)

	_, err := uc.Register(context.Background(), RegisterParams{Token: validToken, Favorites: listPtr("21", "valencia")})
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 0, uc.Count())
}

func TestUseCase_Register_UpsertsProvidedFields(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	store.On("Save", mock.Anything, mock.Anything).Return(nil).Times(3)
	ctx := context.Background()

	created, err := uc.Register(ctx, RegisterParams{Token: validToken, UserID: strPtr("user-1"), Favorites: listPtr("21", "21", " 5 ")})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = uc.Register(ctx, RegisterParams{Token: validToken})
	require.NoError(t, err)
	assert.False(t, created)

	sub, err := uc.Get(validToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", sub.UserID, "absent fields are left untouched")
	assert.Equal(t, []string{"21", "5"}, sub.Favorites)

	_, err = uc.Register(ctx, RegisterParams{Token: validToken, Favorites: listPtr()})
	require.NoError(t, err)
	sub, _ = uc.Get(validToken)
	assert.Empty(t, sub.Favorites)
	assert.Equal(t, 1, uc.Count())
}

func TestUseCase_RegisterThenUnregister_RestoresCount(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	before := uc.Count()
	_, err := uc.Register(ctx, RegisterParams{Token: validToken})
	require.NoError(t, err)
	assert.True(t, uc.Unregister(ctx, validToken))
	assert.False(t, uc.Unregister(ctx, validToken))
	assert.Equal(t, before, uc.Count())
}

func TestUseCase_UpdateFavorites_UnknownToken(t *testing.T) {
	uc, _, _ := setupRegistry(t)

	err := uc.UpdateFavorites(context.Background(), validToken, []string{"21"})
	assert.True(t, errors.IsNotFoundError(err))
	assert.Equal(t, 0, uc.Count())
}

func TestUseCase_FavoritesQueries(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	_, _ = uc.Register(ctx, RegisterParams{Token: "token-bbbbbbbb", Favorites: listPtr("21", "40")})
	_, _ = uc.Register(ctx, RegisterParams{Token: "token-aaaaaaaa", Favorites: listPtr("21")})
	require.NoError(t, uc.UpdateFavorites(ctx, "token-aaaaaaaa", []string{"5", "21"}))

	assert.Equal(t, []string{"21", "40", "5"}, uc.FavoriteStations())
	assert.Equal(t, []string{"token-aaaaaaaa", "token-bbbbbbbb"}, uc.SubscribersFavoriting("21"))
	assert.Equal(t, []string{"token-bbbbbbbb"}, uc.SubscribersFavoriting("40"))
	assert.Empty(t, uc.SubscribersFavoriting("99"))
	assert.Equal(t, []string{"token-aaaaaaaa", "token-bbbbbbbb"}, uc.Tokens())
}

func TestUseCase_Observe_NeverRepeatsUntilCleared(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	_, _ = uc.Register(ctx, RegisterParams{Token: validToken, Favorites: listPtr("21")})

	fresh, err := uc.Observe(ctx, validToken, "21:323", []string{"2025-09-10_08:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09-10_08:00"}, fresh)

	fresh, err = uc.Observe(ctx, validToken, "21:323", []string{"2025-09-10_08:00", "2025-09-11_09:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09-11_09:00"}, fresh)

	fresh, err = uc.Observe(ctx, validToken, "21:323", []string{"2025-09-10_08:00", "2025-09-11_09:00"})
	require.NoError(t, err)
	assert.Empty(t, fresh)

	cleared, err := uc.ClearHistory(ctx, validToken)
	require.NoError(t, err)
	assert.Equal(t, 1, cleared)

	fresh, err = uc.Observe(ctx, validToken, "21:323", []string{"2025-09-10_08:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-09-10_08:00"}, fresh)
}

func TestUseCase_Observe_ReplacesSeenSet(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()
	_, _ = uc.Register(ctx, RegisterParams{Token: validToken, Favorites: listPtr("21")})

	_, _ = uc.Observe(ctx, validToken, "21:323", []string{"2025-09-10_08:00"})
	_, _ = uc.Observe(ctx, validToken, "21:323", []string{"2025-09-12_10:00"})

	sub, err := uc.Get(validToken)
	require.NoError(t, err)
	assert.Len(t, sub.LastSeen["21:323"], 1)

	fresh, _ := uc.Observe(ctx, validToken, "21:323", []string{"2025-09-10_08:00"})
	assert.Equal(t, []string{"2025-09-10_08:00"}, fresh, "a slot that disappeared and came back is new again")
}

func TestUseCase_Observe_UnchangedSetDoesNotPersist(t *testing.T) {
	store := mocks.NewSubscriberStore(t)
	store.On("Load", mock.Anything).Return([]ports.SubscriberData{{
		Token:     validToken,
		Favorites: []string{"21"},
		LastSeen:  map[string][]string{"21:323": {"2025-09-10_08:00"}},
	}}, nil)

	uc, err := NewUseCase(UseCaseDependencies{Store: store, Logger: mocks.NewLogger(t)})
	require.NoError(t, err)
	require.NoError(t, uc.Load(context.Background()))

	fresh, err := uc.Observe(context.Background(), validToken, "21:323", []string{"2025-09-10_08:00"})
	require.NoError(t, err)
	assert.Empty(t, fresh)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUseCase_Observe_UnknownToken(t *testing.T) {
	uc, _, _ := setupRegistry(t)
	_, err := uc.Observe(context.Background(), validToken, "21:323", nil)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestUseCase_Load_SkipsInvalidTokens(t *testing.T) {
	uc, store, logger := setupRegistry(t)
	store.On("Load", mock.Anything).Return([]ports.SubscriberData{
		{Token: validToken, Favorites: []string{"21"}},
		{Token: "bad"},
	}, nil)

	require.NoError(t, uc.Load(context.Background()))
	assert.Equal(t, 1, uc.Count())
	assert.Equal(t, 1, logger.Count("WARN"))
}

func TestUseCase_Load_StoreFailure(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	store.On("Load", mock.Anything).Return(nil, stderrors.New("disk on fire"))

	err := uc.Load(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
}

func TestUseCase_PersistFailureKeepsMemoryState(t *testing.T) {
	uc, store, logger := setupRegistry(t)
	store.On("Save", mock.Anything, mock.Anything).Return(errors.NewPersistenceError("write failed", nil))

	created, err := uc.Register(context.Background(), RegisterParams{Token: validToken})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, uc.Count())
	assert.Equal(t, 1, logger.Count("ERROR"))
}

func TestUseCase_PersistWritesSortedSnapshot(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	var last []ports.SubscriberData
	store.On("Save", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		last = args.Get(1).([]ports.SubscriberData)
	}).Return(nil)
	ctx := context.Background()

	_, _ = uc.Register(ctx, RegisterParams{Token: "token-zzzzzzzz", Favorites: listPtr("21")})
	_, _ = uc.Register(ctx, RegisterParams{Token: "token-aaaaaaaa"})
	_, _ = uc.Observe(ctx, "token-zzzzzzzz", "21:259", []string{"2025-09-11_09:00", "2025-09-10_08:00"})

	require.Len(t, last, 2)
	assert.Equal(t, "token-aaaaaaaa", last[0].Token)
	assert.Equal(t, []string{"2025-09-10_08:00", "2025-09-11_09:00"}, last[1].LastSeen["21:259"])
}

func TestUseCase_ConcurrentAccess(t *testing.T) {
	uc, store, _ := setupRegistry(t)
	store.On("Save", mock.Anything, mock.Anything).Return(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("token-%08d", i)
			_, err := uc.Register(ctx, RegisterParams{Token: token, Favorites: listPtr("21")})
			assert.NoError(t, err)
			_, err = uc.Observe(ctx, token, "21:259", []string{"2025-09-10_08:00"})
			assert.NoError(t, err)
			_ = uc.SubscribersFavoriting("21")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, uc.Count())
}
