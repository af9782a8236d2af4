// Package metrics defines and registers all custom Prometheus metrics for
// the account system. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics are registered with the default registry via promauto at package
// load; the /metrics endpoint exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "accounts"

// RegistrationsTotal counts successfully created accounts.
var RegistrationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of accounts created.",
	},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok", "bad_password", "not_found", "bad_request"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// TokenRefreshesTotal counts refresh-token exchanges.
// Label:
//   - result: "ok" (rotated) or "rejected"
var TokenRefreshesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_refreshes_total",
		Help:      "Total number of refresh-token exchanges, by result.",
	},
	[]string{"result"},
)

// MediaUploadsTotal counts media uploads routed through the media store.
// Labels:
//   - kind: "avatar" or "cover_image"
//   - result: "ok" or "error"
var MediaUploadsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "media_uploads_total",
		Help:      "Total number of media uploads, by kind and result.",
	},
	[]string{"kind", "result"},
)

// MediaUploadDuration measures how long a single upload takes end-to-end.
var MediaUploadDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "media_upload_duration_seconds",
		Help:      "Duration of media uploads from handler to object store.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ProfileCacheTotal counts channel-profile cache lookups.
// Label:
//   - result: "hit" or "miss"
var ProfileCacheTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "profile_cache_total",
		Help:      "Total number of channel-profile cache lookups, by result.",
	},
	[]string{"result"},
)
