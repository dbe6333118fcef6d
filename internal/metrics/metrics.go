package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "campuscare"

// Recorder owns a private registry with the complaint counters. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	registry      *prometheus.Registry
	submitted     *prometheus.CounterVec
	statusChanges *prometheus.CounterVec
	comments      prometheus.Counter
	storeWrites   *prometheus.CounterVec
	logins        *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "complaints_submitted_total",
			Help:      "Complaints submitted by reporters.",
		}, []string{"category"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_changes_total",
			Help:      "Status updates applied by resolvers.",
		}, []string{"status"}),
		comments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comments_added_total",
			Help:      "Resolver comments appended.",
		}),
		storeWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_writes_total",
			Help:      "Full-snapshot writes of the complaint collection.",
		}, []string{"result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Authentication attempts by role and outcome.",
		}, []string{"role", "result"}),
	}
	r.registry.MustRegister(r.submitted, r.statusChanges, r.comments, r.storeWrites, r.logins)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ComplaintSubmitted(category string) {
	if r == nil {
		return
	}
	r.submitted.WithLabelValues(category).Inc()
}

func (r *Recorder) StatusChanged(status string) {
	if r == nil {
		return
	}
	r.statusChanges.WithLabelValues(status).Inc()
}

func (r *Recorder) CommentAdded() {
	if r == nil {
		return
	}
	r.comments.Inc()
}

func (r *Recorder) StoreWrite(err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.storeWrites.WithLabelValues(result).Inc()
}

// LoginAttempt records result, one of "ok", "invalid", "throttled".
func (r *Recorder) LoginAttempt(role, result string) {
	if r == nil {
		return
	}
	r.logins.WithLabelValues(role, result).Inc()
}

// Snapshot flattens every counter into "name{label=value,...}" keys.
func (r *Recorder) Snapshot() (map[string]float64, error) {
	out := make(map[string]float64)
	if r == nil {
		return out, nil
	}
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("metrics: gather: %w", err)
	}
	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, pair := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", pair.GetName(), pair.GetValue()))
			}
			name := family.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			out[name] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}

// WriteText prints the snapshot sorted by series name.
func (r *Recorder) WriteText(w io.Writer) error {
	snapshot, err := r.Snapshot()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s %g\n", name, snapshot[name]); err != nil {
			return err
		}
	}
	return nil
}
