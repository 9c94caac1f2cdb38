package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for marketplace activity.
// Every method is safe on a nil receiver so services can run without
// metrics in tests.
type BusinessMetrics struct {
	// Auth
	Signups     prometheus.Counter
	Logins      *prometheus.CounterVec // result: success, failed
	CacheLookup *prometheus.CounterVec // cache: catalog; result: hit, miss, error

	// Catalog
	VersionsGenerated *prometheus.CounterVec // action: created, kept, deactivated
	QuotesServed      prometheus.Counter

	// Requests and proposals
	RequestsCreated     prometheus.Counter
	ProposalTransitions *prometheus.CounterVec // status: sent, accepted, rejected, withdrawn
	ProposalValue       prometheus.Histogram

	// Wish lists
	WishListsCreated    prometheus.Counter
	WishListInvitations *prometheus.CounterVec // event: sent, accepted

	// Uploads
	Uploads     *prometheus.CounterVec // content_type
	UploadBytes prometheus.Histogram

	// Background jobs
	JobsProcessed *prometheus.CounterVec // type, status: done, retry, failed
	JobDuration   *prometheus.HistogramVec
}

// NewBusinessMetrics registers the metrics with reg. A nil reg uses the
// default registry.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "marketplace"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	subsystem := "business"

	return &BusinessMetrics{
		Signups: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "signups_total", Help: "Accounts created",
		}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "logins_total", Help: "Login attempts by result",
		}, []string{"result"}),
		CacheLookup: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "cache_lookups_total", Help: "Read cache lookups by result",
		}, []string{"cache", "result"}),

		VersionsGenerated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "versions_generated_total", Help: "Product versions touched by regeneration",
		}, []string{"action"}),
		QuotesServed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "quotes_total", Help: "Price quotes computed",
		}),

		RequestsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "requests_created_total", Help: "Requests for items not in the catalog",
		}),
		ProposalTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "proposal_transitions_total", Help: "Proposal status changes",
		}, []string{"status"}),
		ProposalValue: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "proposal_value_cents", Help: "Total of accepted proposals",
			Buckets: prometheus.ExponentialBuckets(1000, 4, 8),
		}),

		WishListsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "wishlists_created_total", Help: "Wish lists created",
		}),
		WishListInvitations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "wishlist_invitations_total", Help: "Wish list invitations by event",
		}, []string{"event"}),

		Uploads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "uploads_total", Help: "Files uploaded by content type",
		}, []string{"content_type"}),
		UploadBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "upload_size_bytes", Help: "Uploaded file sizes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
		}),

		JobsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "jobs",
			Name: "processed_total", Help: "Background jobs by type and outcome",
		}, []string{"type", "status"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "jobs",
			Name: "duration_seconds", Help: "Background job run time",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"type"}),
	}
}

func (m *BusinessMetrics) Signup() {
	if m == nil {
		return
	}
	m.Signups.Inc()
}

func (m *BusinessMetrics) Login(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.Logins.WithLabelValues("success").Inc()
		return
	}
	m.Logins.WithLabelValues("failed").Inc()
}

func (m *BusinessMetrics) Cache(name, result string) {
	if m == nil {
		return
	}
	m.CacheLookup.WithLabelValues(name, result).Inc()
}

func (m *BusinessMetrics) Versions(created, kept, deactivated int) {
	if m == nil {
		return
	}
	m.VersionsGenerated.WithLabelValues("created").Add(float64(created))
	m.VersionsGenerated.WithLabelValues("kept").Add(float64(kept))
	m.VersionsGenerated.WithLabelValues("deactivated").Add(float64(deactivated))
}

func (m *BusinessMetrics) Quote() {
	if m == nil {
		return
	}
	m.QuotesServed.Inc()
}

func (m *BusinessMetrics) RequestCreated() {
	if m == nil {
		return
	}
	m.RequestsCreated.Inc()
}

// Proposal counts a transition into status. Accepted proposals also
// record their total.
func (m *BusinessMetrics) Proposal(status string, totalCents int64) {
	if m == nil {
		return
	}
	m.ProposalTransitions.WithLabelValues(status).Inc()
	if status == "accepted" {
		m.ProposalValue.Observe(float64(totalCents))
	}
}

func (m *BusinessMetrics) WishListCreated() {
	if m == nil {
		return
	}
	m.WishListsCreated.Inc()
}

func (m *BusinessMetrics) Invitation(event string) {
	if m == nil {
		return
	}
	m.WishListInvitations.WithLabelValues(event).Inc()
}

func (m *BusinessMetrics) Upload(contentType string, size int64) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(contentType).Inc()
	m.UploadBytes.Observe(float64(size))
}

func (m *BusinessMetrics) Job(jobType, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(jobType, status).Inc()
	m.JobDuration.WithLabelValues(jobType).Observe(took.Seconds())
}
