package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtrack_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key family and outcome (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtrack_cache_lookups_total",
		Help: "Cache lookups by key family and outcome",
	}, []string{"family", "outcome"})

	// RateLimitRejections counts requests rejected by the rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtrack_rate_limit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	}, []string{"resource"})

	// ProgressWrites counts progress checkbox writes by outcome (saved, denied, invalid).
	ProgressWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtrack_progress_writes_total",
		Help: "Progress checkbox writes by outcome",
	}, []string{"outcome"})

	// UpsertRetries counts progress upserts that retried after a unique-key race.
	UpsertRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamtrack_progress_upsert_retries_total",
		Help: "Progress upserts retried after a concurrent insert",
	})

	// ChatMessages counts chat messages posted.
	ChatMessages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "teamtrack_chat_messages_total",
		Help: "Total number of chat messages posted",
	})

	// AvatarUploads counts avatar uploads by outcome (stored, rejected).
	AvatarUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtrack_avatar_uploads_total",
		Help: "Avatar uploads by outcome",
	}, []string{"outcome"})

	// AuthEvents counts authentication events (login, login_failed, logout, register, password_reset).
	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teamtrack_auth_events_total",
		Help: "Authentication events by type",
	}, []string{"event"})
)
