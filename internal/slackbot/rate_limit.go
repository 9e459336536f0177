package slackbot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MentionLimiter caps how often the bot replies to mentions, per user, per
// channel and across the workspace. A scope with a zero budget is disabled.
// A nil *MentionLimiter admits everything.
type MentionLimiter struct {
	user    *keyedBuckets
	channel *keyedBuckets
	global  *rate.Limiter
}

type keyedBuckets struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

func newKeyedBuckets(perMinute int) *keyedBuckets {
	if perMinute <= 0 {
		return nil
	}
	return &keyedBuckets{
		buckets: make(map[string]*rate.Limiter),
		limit:   perMinuteLimit(perMinute),
		burst:   perMinute,
	}
}

func (k *keyedBuckets) bucket(key string) *rate.Limiter {
	if k == nil || key == "" {
		return nil
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	lim, ok := k.buckets[key]
	if !ok {
		lim = rate.NewLimiter(k.limit, k.burst)
		k.buckets[key] = lim
	}
	return lim
}

func perMinuteLimit(n int) rate.Limit {
	return rate.Every(time.Minute / time.Duration(n))
}

// NewMentionLimiter returns nil when every budget is zero or negative, which
// leaves replies unthrottled.
func NewMentionLimiter(userPerMinute, channelPerMinute, globalPerMinute int) *MentionLimiter {
	if userPerMinute <= 0 && channelPerMinute <= 0 && globalPerMinute <= 0 {
		return nil
	}
	l := &MentionLimiter{
		user:    newKeyedBuckets(userPerMinute),
		channel: newKeyedBuckets(channelPerMinute),
	}
	if globalPerMinute > 0 {
		l.global = rate.NewLimiter(perMinuteLimit(globalPerMinute), globalPerMinute)
	}
	return l
}

// Allow reports whether a reply to user in channel fits every enabled budget.
// A rejected reply takes no tokens from any scope.
func (l *MentionLimiter) Allow(userID, channelID string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	limiters := []*rate.Limiter{l.global, l.user.bucket(userID), l.channel.bucket(channelID)}

	taken := make([]*rate.Reservation, 0, len(limiters))
	for _, lim := range limiters {
		if lim == nil {
			continue
		}
		r := lim.ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			for _, prev := range taken {
				prev.CancelAt(now)
			}
			return false
		}
		taken = append(taken, r)
	}
	return true
}
