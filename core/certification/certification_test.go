package certification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academy/core"
	"github.com/trezcool/academy/core/certification"
	"github.com/trezcool/academy/core/notify"
	"github.com/trezcool/academy/storage/database/inmem"
)

type nopLogger struct{ warnings int }

func (l *nopLogger) Debug(string, ...interface{}) {}
func (l *nopLogger) Info(string, ...interface{})  {}
func (l *nopLogger) Warn(string, ...interface{})  { l.warnings++ }
func (l *nopLogger) Error(string, ...interface{}) {}
func (l *nopLogger) Fatal(string, ...interface{}) {}

type memCache struct {
	values      map[string]bool
	reads, sets int
	invalidated []string
	err         error
}

func newMemCache() *memCache { return &memCache{values: make(map[string]bool)} }

func (c *memCache) GetCertified(_ context.Context, userID string) (bool, bool, error) {
	c.reads++
	if c.err != nil {
		return false, false, c.err
	}
	v, ok := c.values[userID]
	return v, ok, nil
}

func (c *memCache) SetCertified(_ context.Context, userID string, certified bool) error {
	c.sets++
	c.values[userID] = certified
	return c.err
}

func (c *memCache) Invalidate(_ context.Context, userID string) error {
	c.invalidated = append(c.invalidated, userID)
	delete(c.values, userID)
	return c.err
}

type recordingNotifier struct {
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) {
	n.events = append(n.events, ev)
}

func TestService_Certify(t *testing.T) {
	ctx := context.Background()
	notifier := new(recordingNotifier)
	svc := certification.NewService(inmem.NewCertificationRepository(inmem.NewDB()), nil, notifier, new(nopLogger))

	certified, err := svc.IsCertified(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, certified)
	_, found, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, found)

	first := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return first }
	defer func() { core.NowFunc = time.Now }()

	newly, err := svc.Certify(ctx, "u1", "attempt-1")
	require.NoError(t, err)
	assert.True(t, newly)

	// a second passing attempt keeps the first certification
	core.NowFunc = func() time.Time { return first.Add(24 * time.Hour) }
	newly, err = svc.Certify(ctx, "u1", "attempt-2")
	require.NoError(t, err)
	assert.False(t, newly)

	cert, found, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cert.IsCertified)
	assert.Equal(t, "attempt-1", cert.PassingAttemptID)
	require.NotNil(t, cert.CertificationDate)
	assert.True(t, first.Equal(*cert.CertificationDate))

	certified, err = svc.IsCertified(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, certified)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notify.EventUserCertified, notifier.events[0].Type)
	assert.Equal(t, "attempt-1", notifier.events[0].AttemptID)
}

func TestService_cache(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	svc := certification.NewService(inmem.NewCertificationRepository(inmem.NewDB()), cache, nil, new(nopLogger))

	// not certified: never cached
	for i := 0; i < 2; i++ {
		certified, err := svc.IsCertified(ctx, "u1")
		require.NoError(t, err)
		assert.False(t, certified)
	}
	assert.Equal(t, 2, cache.reads)
	assert.Equal(t, 0, cache.sets)

	_, err := svc.Certify(ctx, "u1", "attempt-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, cache.invalidated)

	certified, err := svc.IsCertified(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, certified)
	assert.Equal(t, 1, cache.sets)
	assert.True(t, cache.values["u1"])

	// answered from the cache
	certified, err = svc.IsCertified(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, certified)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, 4, cache.reads)
}

// certifyingRepo certifies the user right after reading their row, as a concurrent Certify would.
type certifyingRepo struct {
	certification.Repository
	certify func()
}

func (r *certifyingRepo) GetCertification(ctx context.Context, userID string) (certification.Certification, bool, error) {
	cert, found, err := r.Repository.GetCertification(ctx, userID)
	if r.certify != nil {
		certify := r.certify
		r.certify = nil
		certify()
	}
	return cert, found, err
}

func TestService_cacheConcurrentCertify(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	repo := &certifyingRepo{Repository: inmem.NewCertificationRepository(inmem.NewDB())}
	svc := certification.NewService(repo, cache, nil, new(nopLogger))
	repo.certify = func() {
		_, err := svc.Certify(ctx, "u1", "attempt-1")
		require.NoError(t, err)
	}

	// read before the certification committed
	certified, err := svc.IsCertified(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, certified)
	_, cached := cache.values["u1"]
	assert.False(t, cached)

	certified, err = svc.IsCertified(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, certified)
}

func TestService_cacheDown(t *testing.T) {
	ctx := context.Background()
	cache := newMemCache()
	cache.err = errors.New("connection refused")
	logger := new(nopLogger)
	svc := certification.NewService(inmem.NewCertificationRepository(inmem.NewDB()), cache, nil, logger)

	_, err := svc.Certify(ctx, "u1", "attempt-1")
	require.NoError(t, err)

	certified, err := svc.IsCertified(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, certified)
	assert.Equal(t, 3, logger.warnings)
}
