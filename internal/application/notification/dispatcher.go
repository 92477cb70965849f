// Package notification implements the scheduled reminder dispatcher of §4.5: a single ticker scans
// enabled preferences, converts each user's wall clock to local time, and fans reminders out
// through a fixed worker pool, deduplicating per (user, category, local date).
package notification

import (
	"context"
	"sync"
	"time"

	domainnotif "github.com/alchemorsel/nutricore/internal/domain/notification"
	"github.com/alchemorsel/nutricore/internal/domain/user"
	"github.com/alchemorsel/nutricore/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	tickInterval    = 60 * time.Second
	workerCount     = 8
	queueCapacity   = 512
	streamBatchSize = 200
	pushTimeout     = 10 * time.Second
	lastFiredTTL    = 48 * time.Hour
	shutdownGrace   = 5 * time.Second

	// fcmRateLimit caps outbound multicast sends so a tick that matches thousands of prefs at
	// once (e.g. every user's breakfast reminder landing on the same minute) doesn't burst past
	// FCM's per-project send quota.
	fcmRateLimit = 50 // sends/sec
	fcmBurst     = 100
)

var mealCategories = []domainnotif.Category{
	domainnotif.CategoryBreakfast,
	domainnotif.CategoryLunch,
	domainnotif.CategoryDinner,
	domainnotif.CategorySleep,
}

// Dispatcher is the long-running reminder loop of §4.5.
type Dispatcher struct {
	users  outbound.UserRepository
	push   outbound.PushSender
	cache  outbound.CacheRepository
	clock  outbound.Clock
	logger *zap.Logger

	// lastFired and lastWater are the in-memory rate-limit caches: the one process-wide mutable
	// state spec.md sanctions, rebuilt from cache on startup and kept authoritative through it on
	// every fire so a restart never double-sends (§4.5's idempotency invariant).
	lastFired sync.Map // firingKey string -> struct{}
	lastWater sync.Map // userID string -> time.Time

	sendLimiter *rate.Limiter
	queue       chan domainnotif.Notification
}

// NewDispatcher creates the scheduled notification dispatcher.
func NewDispatcher(users outbound.UserRepository, push outbound.PushSender, cache outbound.CacheRepository, clock outbound.Clock, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		users:       users,
		push:        push,
		cache:       cache,
		clock:       clock,
		logger:      logger.Named("notification-dispatcher"),
		sendLimiter: rate.NewLimiter(rate.Limit(fcmRateLimit), fcmBurst),
		queue:       make(chan domainnotif.Notification, queueCapacity),
	}
}

// Run drives the ticker loop until ctx is cancelled, then lets in-flight workers drain with a
// short grace period before returning, per §4.5's cancellation contract.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	g, workerCtx := errgroup.WithContext(context.Background())
	g.SetLimit(workerCount)
	for i := 0; i < workerCount; i++ {
		g.Go(func() error {
			d.drain(workerCtx)
			return nil
		})
	}

	for {
		select {
		case <-ctx.Done():
			close(d.queue)
			done := make(chan struct{})
			go func() { g.Wait(); close(done) }()
			select {
			case <-done:
			case <-time.After(shutdownGrace):
				d.logger.Warn("notification dispatcher shutdown grace period exceeded")
			}
			return nil
		case <-ticker.C:
			if err := d.tick(ctx); err != nil {
				d.logger.Warn("notification tick failed, skipping", zap.Error(err))
			}
		}
	}
}

// drain is a single worker's loop: pull enqueued notifications until the queue is closed.
func (d *Dispatcher) drain(ctx context.Context) {
	for notif := range d.queue {
		d.deliver(ctx, notif)
	}
}

// tick implements §4.5's per-tick scan: stream enabled prefs, convert to local time, enqueue
// reminders whose target minute matches, rate-limit water reminders by interval.
func (d *Dispatcher) tick(ctx context.Context) error {
	now := d.clock.Now()
	return d.users.StreamEnabledPrefs(ctx, streamBatchSize, func(batch []user.NotificationPrefs) error {
		for _, prefs := range batch {
			d.evaluate(ctx, prefs, now)
		}
		return nil
	})
}

func (d *Dispatcher) evaluate(ctx context.Context, prefs user.NotificationPrefs, now time.Time) {
	local, err := d.clock.InZone(now, prefs.Timezone)
	if err != nil {
		d.logger.Warn("invalid user timezone, skipping", zap.String("user_id", prefs.UserID), zap.Error(err))
		return
	}
	localMinute := local.Hour()*60 + local.Minute()
	localDate := local.Format("2006-01-02")

	for _, category := range mealCategories {
		minute, ok := prefs.MinuteFor(string(category))
		if !ok || !prefs.CategoryEnabled(string(category)) || minute != localMinute {
			continue
		}
		d.enqueueOnce(ctx, prefs.UserID, category, localDate)
	}

	if prefs.CategoryEnabled(string(domainnotif.CategoryWater)) {
		d.enqueueWaterIfDue(ctx, prefs, now)
	}
}

// enqueueOnce enqueues a meal/sleep reminder only if it has not already fired for this
// (user, category, local date), per §4.5's dedup invariant.
func (d *Dispatcher) enqueueOnce(ctx context.Context, userID string, category domainnotif.Category, localDate string) {
	key := domainnotif.FiringKey{UserID: userID, Category: category, LocalDate: localDate}
	cacheKey := "notif:last_fired:" + key.String()

	if _, loaded := d.lastFired.Load(key.String()); loaded {
		return
	}
	if d.checkCacheFired(ctx, cacheKey) {
		d.lastFired.Store(key.String(), struct{}{})
		return
	}

	d.lastFired.Store(key.String(), struct{}{})
	if err := d.cache.Set(ctx, cacheKey, []byte("1"), lastFiredTTL); err != nil {
		d.logger.Warn("failed to persist last-fired marker", zap.String("key", cacheKey), zap.Error(err))
	}

	select {
	case d.queue <- domainnotif.Notification{UserID: userID, Category: category}:
	default:
		d.logger.Warn("notification queue full, dropping", zap.String("user_id", userID), zap.String("category", string(category)))
	}
}

func (d *Dispatcher) checkCacheFired(ctx context.Context, cacheKey string) bool {
	val, err := d.cache.Get(ctx, cacheKey)
	if err != nil {
		return false
	}
	return len(val) > 0
}

// enqueueWaterIfDue implements the water reminder's interval-based rate limit, persisted through
// cache so it survives a restart.
func (d *Dispatcher) enqueueWaterIfDue(ctx context.Context, prefs user.NotificationPrefs, now time.Time) {
	cacheKey := "notif:last_water:" + prefs.UserID

	if last, ok := d.lastWater.Load(prefs.UserID); ok {
		if now.Sub(last.(time.Time)) < time.Duration(prefs.WaterIntervalHours)*time.Hour {
			return
		}
	} else if val, err := d.cache.Get(ctx, cacheKey); err == nil && len(val) > 0 {
		if last, parseErr := time.Parse(time.RFC3339, string(val)); parseErr == nil {
			d.lastWater.Store(prefs.UserID, last)
			if now.Sub(last) < time.Duration(prefs.WaterIntervalHours)*time.Hour {
				return
			}
		}
	}

	d.lastWater.Store(prefs.UserID, now)
	if err := d.cache.Set(ctx, cacheKey, []byte(now.Format(time.RFC3339)), lastFiredTTL); err != nil {
		d.logger.Warn("failed to persist last-water marker", zap.String("key", cacheKey), zap.Error(err))
	}

	select {
	case d.queue <- domainnotif.Notification{UserID: prefs.UserID, Category: domainnotif.CategoryWater}:
	default:
		d.logger.Warn("notification queue full, dropping water reminder", zap.String("user_id", prefs.UserID))
	}
}

// deliver sends a single notification to every active token a user has registered, deactivating
// any the provider reports as invalid or unregistered.
func (d *Dispatcher) deliver(ctx context.Context, notif domainnotif.Notification) {
	userID, err := parseUserID(notif.UserID)
	if err != nil {
		d.logger.Warn("malformed user id in notification, dropping", zap.String("user_id", notif.UserID))
		return
	}

	tokens, err := d.users.ListActiveFcmTokens(ctx, userID)
	if err != nil {
		d.logger.Warn("failed to list fcm tokens", zap.String("user_id", notif.UserID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	title, body := payloadFor(notif.Category)

	if err := d.sendLimiter.Wait(ctx); err != nil {
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	results, err := d.push.SendMulticast(sendCtx, tokenStrings, title, body)
	if err != nil {
		d.logger.Warn("push multicast failed", zap.String("user_id", notif.UserID), zap.Error(err))
		return
	}

	for _, r := range results {
		if !r.Success && r.Unregistered {
			if err := d.users.MarkTokenInactive(ctx, r.Token); err != nil {
				d.logger.Warn("failed to deactivate fcm token", zap.String("token", r.Token), zap.Error(err))
			}
		}
	}
}

func parseUserID(raw string) (uuid.UUID, error) {
	return uuid.Parse(raw)
}

func payloadFor(category domainnotif.Category) (title, body string) {
	switch category {
	case domainnotif.CategoryBreakfast:
		return "Breakfast time", "Don't forget to log your breakfast."
	case domainnotif.CategoryLunch:
		return "Lunch time", "Don't forget to log your lunch."
	case domainnotif.CategoryDinner:
		return "Dinner time", "Don't forget to log your dinner."
	case domainnotif.CategoryWater:
		return "Stay hydrated", "Time for a glass of water."
	case domainnotif.CategorySleep:
		return "Wind down", "It's almost your bedtime."
	case domainnotif.CategoryProgress:
		return "Weekly progress", "Check in on your progress this week."
	case domainnotif.CategoryReEngagement:
		return "We miss you", "Log a meal to keep your streak going."
	default:
		return "Reminder", ""
	}
}
