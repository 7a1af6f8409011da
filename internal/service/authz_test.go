package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/spaarke-dev/spaarke-sub016/internal/apperrors"
	"github.com/spaarke-dev/spaarke-sub016/internal/core"
	"github.com/spaarke-dev/spaarke-sub016/internal/data"
	"github.com/spaarke-dev/spaarke-sub016/internal/domain/access"
	"github.com/spaarke-dev/spaarke-sub016/internal/mocks"
	"github.com/spaarke-dev/spaarke-sub016/internal/ports"
	"github.com/spaarke-dev/spaarke-sub016/internal/reqcache"
	"github.com/spaarke-dev/spaarke-sub016/internal/testutil"
)

// rightsDirectory is a minimal in-test group directory.
type rightsDirectory map[string]access.Rights

func (d rightsDirectory) HasRight(group string, required access.Right) bool {
	return d[group].Has(required)
}

func newAuthzService(cache core.CacheRepository, dir access.GroupDirectory, source ports.SnapshotSource, logger *slog.Logger) *AuthorizationService {
	return NewAuthorizationService(AuthorizationServiceOptions{
		Source: source,
		Snapshots: core.NewSnapshotCacheService(core.SnapshotCacheServiceOptions{
			Cache:  cache,
			Config: core.SnapshotCacheConfig{TTL: 2 * time.Minute, SchemaVersion: "1"},
			Logger: logger,
		}),
		Evaluator: access.NewEvaluator(access.DefaultRules(dir)...),
		Logger:    logger,
	})
}

func newMemoryCache() *data.MemoryCacheRepo {
	return data.NewMemoryCacheRepo(data.MemoryCacheConfig{Capacity: 64})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(bytes.NewBuffer(nil), nil))
}

func TestAuthorizationService_Authorize_ExplicitRight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().
		Load(gomock.Any(), ports.SnapshotQuery{CallerID: "caller-1", ResourceID: "doc-1"}).
		Return(testutil.ReaderSnapshot(), nil).
		Times(1)

	svc := newAuthzService(newMemoryCache(), nil, source, discardLogger())

	decision, err := svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightRead)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	// Second request hits the shared cache; the source must not be called
	// again.
	decision, err = svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightRead)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAuthorizationService_Authorize_InsufficientRights(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).Return(testutil.ReaderSnapshot(), nil)

	svc := newAuthzService(newMemoryCache(), nil, source, discardLogger())

	decision, err := svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightWrite)
	require.NoError(t, err, "a deny is a decision, not an error")
	assert.False(t, decision.Allowed)
	assert.Equal(t, access.ReasonNoGrant, decision.Reason)
}

func TestAuthorizationService_Authorize_GroupGrant(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).
		Return(testutil.GroupOnlySnapshot("finance-team"), nil)

	dir := rightsDirectory{"finance-team": access.NewRights(access.RightWrite)}
	svc := newAuthzService(newMemoryCache(), dir, source, discardLogger())

	decision, err := svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightWrite)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestAuthorizationService_Authorize_ExplicitDenyWins(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	snap := testutil.NewSnapshot().
		WithRights(access.RightRead, access.RightWrite).
		WithDeny().
		Build()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).Return(snap, nil)

	svc := newAuthzService(newMemoryCache(), nil, source, discardLogger())

	decision, err := svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightRead)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, access.ReasonExplicitlyDenied, decision.Reason)
}

func TestAuthorizationService_Authorize_Validation(t *testing.T) {
	svc := newAuthzService(newMemoryCache(), nil, nil, discardLogger())

	_, err := svc.Authorize(context.Background(), testutil.NewPrincipal().WithSubject("").Build(), "doc-1", access.RightRead)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "", access.RightRead)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestAuthorizationService_Authorize_SourceFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).
		Return(access.Snapshot{}, errors.New("connection refused"))

	svc := newAuthzService(newMemoryCache(), nil, source, discardLogger())

	_, err := svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightRead)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrSourceUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAuthorizationService_Authorize_CancellationPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).
		Return(access.Snapshot{}, context.Canceled)

	svc := newAuthzService(newMemoryCache(), nil, source, discardLogger())

	_, err := svc.Authorize(ctx, testutil.NewPrincipal().Build(), "doc-1", access.RightRead)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrSourceUnavailable,
		"cancellation is not a source fault")
}

func TestAuthorizationService_Authorize_MemoizesWithinRequest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).
		Return(testutil.ReaderSnapshot(), nil).
		Times(1)

	svc := newAuthzService(newMemoryCache(), nil, source, discardLogger())
	principal := testutil.NewPrincipal().Build()

	ctx := reqcache.NewContext(context.Background(), reqcache.New())

	first, err := svc.Authorize(ctx, principal, "doc-1", access.RightRead)
	require.NoError(t, err)
	require.True(t, first.Allowed)

	// Evict the shared entry mid-request: the memoized snapshot must still
	// serve the second check without another source load.
	require.NoError(t, svc.snapshots.Invalidate(ctx, principal.Subject, "doc-1"))

	second, err := svc.Authorize(ctx, principal, "doc-1", access.RightRead)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAuthorizationService_Authorize_ConcurrentRequests(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// Both requests start uncached; each may trigger its own load.
	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).
		Return(testutil.ReaderSnapshot(), nil).
		MinTimes(1).MaxTimes(2)

	svc := newAuthzService(newMemoryCache(), nil, source, discardLogger())
	principal := testutil.NewPrincipal().Build()

	decisions := make([]access.Decision, 2)
	runner := testutil.NewConcurrentTestRunner(t)
	errs := runner.RunConcurrent(
		func() error {
			d, err := svc.Authorize(context.Background(), principal, "doc-1", access.RightRead)
			decisions[0] = d
			return err
		},
		func() error {
			d, err := svc.Authorize(context.Background(), principal, "doc-1", access.RightRead)
			decisions[1] = d
			return err
		},
	)
	runner.AssertNoErrors(errs)

	assert.True(t, decisions[0].Allowed)
	assert.True(t, decisions[1].Allowed)
}

func TestAuthorizationService_Authorize_CacheOutageDegrades(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	backendDown := errors.New("connection refused")
	cache := core.NewMockCacheRepository(ctrl)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, backendDown).AnyTimes()
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(backendDown).AnyTimes()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).Return(testutil.ReaderSnapshot(), nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	svc := newAuthzService(cache, nil, source, logger)

	decision, err := svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightRead)
	require.NoError(t, err, "a cache outage must stay invisible to the caller")
	assert.True(t, decision.Allowed)
	assert.Contains(t, logs.String(), "snapshot cache degraded")
}

func TestAuthorizationService_Authorize_LogsDenialReason(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	source := mocks.NewMockSnapshotSource(ctrl)
	source.EXPECT().Load(gomock.Any(), gomock.Any()).Return(testutil.DeniedSnapshot(), nil)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	svc := newAuthzService(newMemoryCache(), nil, source, logger)

	_, err := svc.Authorize(context.Background(), testutil.NewPrincipal().Build(), "doc-1", access.RightRead)
	require.NoError(t, err)

	assert.Contains(t, logs.String(), "authorization denied")
	assert.Contains(t, logs.String(), "explicitly_denied")
	assert.Contains(t, logs.String(), "caller-1")
}
