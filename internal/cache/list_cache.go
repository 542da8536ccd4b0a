package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ojt-labs/account-api/internal/models"
)

// FillFunc materializes the account list on a cache miss.
type FillFunc func(ctx context.Context) ([]models.Account, error)

// Recorder receives hit/miss observations. Satisfied by the metrics service.
type Recorder interface {
	RecordCacheOperation(hit bool, duration time.Duration)
}

// AccountListCache is a single-slot read-through cache for account listings.
// One physical entry backs every listing endpoint shape; whichever request
// loses the race to arrive first fills the slot and all concurrent callers
// observe that value until it expires. Expiry is time-driven only: a sliding
// idle window renewed on each hit, capped by an absolute deadline from the
// fill.
type AccountListCache struct {
	mu   sync.Mutex // guards slot state
	gate sync.Mutex // single-permit fill gate

	value      []models.Account
	filled     bool
	storedAt   time.Time
	lastAccess time.Time

	sliding  time.Duration
	absolute time.Duration

	now      func() time.Time
	recorder Recorder
	logger   *zap.Logger
}

// NewAccountListCache constructs the process-wide listing cache.
func NewAccountListCache(sliding, absolute time.Duration, recorder Recorder, logger *zap.Logger) *AccountListCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountListCache{
		sliding:  sliding,
		absolute: absolute,
		now:      time.Now,
		recorder: recorder,
		logger:   logger,
	}
}

// GetOrFill returns the cached account list, filling it with the supplied
// query on a miss. The second return reports whether the call was a hit. At
// most one fill executes per miss window: concurrent callers queue on the
// gate and re-check the slot before querying. The gate is released on every
// exit path, including fill errors.
func (c *AccountListCache) GetOrFill(ctx context.Context, fill FillFunc) ([]models.Account, bool, error) {
	start := c.now()

	if value, ok := c.lookup(); ok {
		c.record(true, start)
		return value, true, nil
	}

	c.gate.Lock()
	defer c.gate.Unlock()

	// A concurrent request may have filled the slot while we waited.
	if value, ok := c.lookup(); ok {
		c.record(true, start)
		return value, true, nil
	}

	c.logger.Warn("account list cache miss, querying directory")
	value, err := fill(ctx)
	if err != nil {
		c.record(false, start)
		return nil, false, err
	}

	now := c.now()
	c.mu.Lock()
	c.value = value
	c.filled = true
	c.storedAt = now
	c.lastAccess = now
	c.mu.Unlock()

	c.record(false, start)
	return value, false, nil
}

// Invalidate drops the cached value.
func (c *AccountListCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.filled = false
}

// lookup checks the slot without touching the fill gate, evicting on expiry
// and renewing the sliding window on a hit.
func (c *AccountListCache) lookup() ([]models.Account, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.filled {
		return nil, false
	}

	now := c.now()
	if now.Sub(c.storedAt) >= c.absolute || now.Sub(c.lastAccess) >= c.sliding {
		c.value = nil
		c.filled = false
		return nil, false
	}

	c.lastAccess = now
	return c.value, true
}

func (c *AccountListCache) record(hit bool, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordCacheOperation(hit, c.now().Sub(start))
	}
}
