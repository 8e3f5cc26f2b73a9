// Package syncer drives the active fetch path: repeated list calls against
// the remote service, followed by detail fetches for every discovered
// conversation whose content is still missing from the store.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/hrygo/chatporter/api"
	"github.com/hrygo/chatporter/daterange"
	"github.com/hrygo/chatporter/store"
)

// ErrRunInProgress is returned when Run is invoked while another run is
// still active. At most one orchestration run at a time.
var ErrRunInProgress = errors.New("sync run already in progress")

// defaultPace is the fixed delay between successive outbound requests.
const defaultPace = 500 * time.Millisecond

// Client is the subset of the API client the orchestrator needs.
type Client interface {
	ListConversations(ctx context.Context, cursor string) (*api.ListPage, error)
	GetConversation(ctx context.Context, id string) (*store.Conversation, error)
}

// Phase is the user-visible stage of a run.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseListing   Phase = "listing"
	PhaseDetailing Phase = "detailing"
	PhaseDone      Phase = "done"
	PhaseFailed    Phase = "failed"
)

// Status is a snapshot of the orchestrator state for status displays.
type Status struct {
	Phase   Phase
	Message string
}

// Report tallies one completed run.
type Report struct {
	Pages      int
	Discovered int
	Fetched    int
	Skipped    int
	Failed     int
	Errors     []string
	Duration   time.Duration
}

// Orchestrator performs paced, resumable synchronization runs.
type Orchestrator struct {
	client  Client
	store   *store.Store
	limiter *rate.Limiter
	logger  *slog.Logger

	running atomic.Bool

	mu     sync.Mutex
	status Status
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPace sets the fixed inter-request delay.
func WithPace(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.limiter = rate.NewLimiter(rate.Every(d), 1)
		} else {
			o.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// New creates an orchestrator writing into st.
func New(client Client, st *store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		client:  client,
		store:   st,
		limiter: rate.NewLimiter(rate.Every(defaultPace), 1),
		logger:  slog.Default(),
		status:  Status{Phase: PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the current user-visible status.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

func (o *Orchestrator) setStatus(phase Phase, message string) {
	o.mu.Lock()
	o.status = Status{Phase: phase, Message: message}
	o.mu.Unlock()
}

// Run performs one synchronization pass. A failed list call aborts the run;
// failed detail fetches are tallied and skipped. There is no resumption
// state: re-invoking after a failure starts over, and already-complete
// records are skipped via the stub check, which makes re-runs cheap.
func (o *Orchestrator) Run(ctx context.Context, interval daterange.Interval) (*Report, error) {
	if !o.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	started := time.Now()
	report := &Report{}
	cursor := ""

	for {
		o.setStatus(PhaseListing, "listing conversations")
		if err := o.limiter.Wait(ctx); err != nil {
			o.setStatus(PhaseFailed, "cancelled")
			return report, errors.Wrap(err, "pacing wait interrupted")
		}

		page, err := o.client.ListConversations(ctx, cursor)
		if err != nil {
			o.setStatus(PhaseFailed, "list request failed")
			return report, errors.Wrap(err, "list conversations failed")
		}
		report.Pages++
		report.Discovered += len(page.Items)

		for _, item := range page.Items {
			o.store.UpsertStub(item.ID, item.Meta)
		}

		if err := o.fetchDetails(ctx, page.Items, interval, report); err != nil {
			o.setStatus(PhaseFailed, "cancelled")
			return report, err
		}

		if len(page.Items) == 0 || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	report.Duration = time.Since(started)
	o.setStatus(PhaseDone, doneMessage(report))
	o.logger.Info("sync run completed",
		"pages", report.Pages,
		"discovered", report.Discovered,
		"fetched", report.Fetched,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration)
	return report, nil
}

// fetchDetails issues one paced detail fetch per work-set item: discovered
// conversations inside the interval whose store record is still a stub.
func (o *Orchestrator) fetchDetails(ctx context.Context, items []api.ListItem, interval daterange.Interval, report *Report) error {
	for _, item := range items {
		if !interval.Contains(item.Meta.CreateTime) {
			continue
		}
		record := o.store.Get(item.ID)
		if record != nil && !record.IsStub() {
			// Already complete, e.g. observed passively or fetched in a
			// previous run.
			report.Skipped++
			continue
		}

		o.setStatus(PhaseDetailing, "fetching conversation "+item.ID)
		if err := o.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "pacing wait interrupted")
		}

		detail, err := o.client.GetConversation(ctx, item.ID)
		if err != nil {
			report.Failed++
			report.Errors = append(report.Errors, item.ID+": "+err.Error())
			o.logger.Warn("detail fetch failed, skipping", "id", item.ID, "error", err)
			continue
		}
		if detail == nil {
			report.Skipped++
			continue
		}

		meta := store.MetaOf(detail)
		if len(detail.Messages) == 0 {
			// Nothing retained after ingestion filtering; stays a stub.
			o.store.UpsertStub(detail.ID, meta)
		} else {
			o.store.UpsertComplete(detail.ID, meta, detail.Messages)
		}
		report.Fetched++
	}
	return nil
}

func doneMessage(report *Report) string {
	if report.Failed > 0 {
		return "completed with errors"
	}
	return "completed"
}
