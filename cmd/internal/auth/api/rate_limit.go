package authapi

import (
	"net"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type lockoutTier struct {
	Threshold int
	Duration  time.Duration
}

// loginThrottle keeps recent credential failures per client IP and per subject
// (a normalized username or an account id). Expired entries are reclaimed by
// the cleanup loop between start and stop; the key count is capped.
type loginThrottle struct {
	cfg Config

	mu       sync.Mutex
	failures *ttlcache.Cache[string, []time.Time]
	running  atomic.Bool
}

func newLoginThrottle(cfg Config) *loginThrottle {
	ttl := max(cfg.LoginIPWindow, cfg.LockoutWindow, cfg.LockoutSevereDuration)
	maxKeys := cfg.ThrottleMaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultConfig().ThrottleMaxKeys
	}
	return &loginThrottle{
		cfg: cfg,
		failures: ttlcache.New[string, []time.Time](
			ttlcache.WithTTL[string, []time.Time](ttl),
			ttlcache.WithDisableTouchOnHit[string, []time.Time](),
			ttlcache.WithCapacity[string, []time.Time](uint64(maxKeys)), // #nosec G115 -- positive, checked above.
		),
	}
}

func (t *loginThrottle) start() {
	if t.running.CompareAndSwap(false, true) {
		go t.failures.Start()
	}
}

func (t *loginThrottle) stop() {
	if t.running.CompareAndSwap(true, false) {
		t.failures.Stop()
	}
}

func (t *loginThrottle) tracked() int { return t.failures.Len() }

func ipKey(ip net.IP) string { return "ip:" + ip.String() }

func userKey(username string) string {
	if username == "" {
		return ""
	}
	return "user:" + username
}

func accountKey(userID string) string {
	if userID == "" {
		return ""
	}
	return "account:" + userID
}

// check reports whether an attempt must be refused and for how long.
// subject is a userKey or accountKey; empty skips the lockout check.
func (t *loginThrottle) check(ip net.IP, subject string, now time.Time) (bool, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ip != nil && t.cfg.LoginIPMax > 0 {
		recent := within(t.get(ipKey(ip)), now, t.cfg.LoginIPWindow)
		if blocked, retry := evaluateWindowThrottle(now, recent, t.cfg.LoginIPMax, t.cfg.LoginIPWindow); blocked {
			return true, retry
		}
	}
	if subject != "" {
		recent := within(t.get(subject), now, t.cfg.LockoutWindow)
		slices.SortFunc(recent, func(a, b time.Time) int { return b.Compare(a) })
		if blocked, retry := evaluateProgressiveLockout(now, recent, t.cfg.lockoutTiers()); blocked {
			return true, retry
		}
	}
	return false, 0
}

// fail records one failed attempt against both keys.
func (t *loginThrottle) fail(ip net.IP, subject string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if ip != nil {
		t.append(ipKey(ip), now, t.cfg.LoginIPWindow)
	}
	if subject != "" {
		t.append(subject, now, t.cfg.LockoutWindow)
	}
}

// succeed clears the subject history; the IP history is kept.
func (t *loginThrottle) succeed(subject string) {
	if subject == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures.Delete(subject)
}

func (t *loginThrottle) get(key string) []time.Time {
	item := t.failures.Get(key)
	if item == nil {
		return nil
	}
	return item.Value()
}

func (t *loginThrottle) append(key string, now time.Time, window time.Duration) {
	next := append(within(t.get(key), now, window), now)
	t.failures.Set(key, next, ttlcache.DefaultTTL)
}

// within returns a fresh slice holding the entries of ts newer than now-window.
func within(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	cut := now.Add(-window)
	out := make([]time.Time, 0, len(ts)+1)
	for _, t := range ts {
		if t.After(cut) {
			out = append(out, t)
		}
	}
	return out
}

// evaluateWindowThrottle blocks once maxFailures fall inside window.
// retry is the time until enough of them age out to drop below the limit.
func evaluateWindowThrottle(now time.Time, failures []time.Time, maxFailures int, window time.Duration) (bool, time.Duration) {
	if maxFailures <= 0 {
		return false, 0
	}
	recent := within(failures, now, window)
	if len(recent) < maxFailures {
		return false, 0
	}
	slices.SortFunc(recent, func(a, b time.Time) int { return a.Compare(b) })
	release := recent[len(recent)-maxFailures].Add(window)
	return true, release.Sub(now)
}

// evaluateProgressiveLockout applies the strictest tier whose threshold is reached.
// failures must be ordered newest first; a tier locks until its duration has
// passed since the newest failure.
func evaluateProgressiveLockout(now time.Time, failures []time.Time, tiers []lockoutTier) (bool, time.Duration) {
	if len(failures) == 0 {
		return false, 0
	}
	latest := failures[0]

	var retry time.Duration
	for _, tier := range tiers {
		if tier.Threshold <= 0 || len(failures) < tier.Threshold {
			continue
		}
		if left := latest.Add(tier.Duration).Sub(now); left > retry {
			retry = left
		}
	}
	return retry > 0, retry
}

func writeRateLimited(w http.ResponseWriter, retryAfter time.Duration) {
	if retryAfter > 0 {
		secs := int64((retryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.FormatInt(secs, 10))
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many attempts. Try again later.")
}
