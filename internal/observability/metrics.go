package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PostsCreated counts committed posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "til_posts_created_total",
		Help: "Total number of posts committed",
	})

	// TagsCreated counts tags inserted for the first time.
	TagsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "til_tags_created_total",
		Help: "Total number of new tags inserted",
	})

	// AuthFailures counts rejected requests at the session gate by auth mode.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "til_auth_failures_total",
		Help: "Total number of requests rejected by the session gate",
	}, []string{"mode"})

	// CacheResults counts post list cache lookups by result (hit, miss, error).
	CacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "til_posts_cache_results_total",
		Help: "Post list cache lookups by result",
	}, []string{"result"})

	// RedisErrors counts failed Redis commands by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "til_redis_errors_total",
		Help: "Total number of failed Redis commands",
	}, []string{"command"})
)
