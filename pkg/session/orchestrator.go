// Package session sequences the client's integration steps: push registration,
// calendar connection, plan generation and retrieval, and calendar sync.
//
// The orchestrator owns two independent slots, the current plan and the
// current agenda. Each slot is replaced wholesale by exactly one kind of
// operation, so a reader sees either the previous complete value or the new
// one. Failures leave a slot untouched.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/harrisonrobin/raigen/pkg/api"
	"github.com/harrisonrobin/raigen/pkg/auth"
	"github.com/harrisonrobin/raigen/pkg/logging"
	"github.com/harrisonrobin/raigen/pkg/model"
	"github.com/harrisonrobin/raigen/pkg/push"
)

var (
	// ErrConnectionFailed wraps a rejected authorization-code exchange. The
	// code is spent, so the user has to reconnect.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrGenerationInFlight is returned when a generation is requested while one is running.
	ErrGenerationInFlight = errors.New("plan generation already in progress")
)

// Backend is the subset of *api.Client the orchestrator drives.
type Backend interface {
	TodayPlan(ctx context.Context, id model.Identity) (model.Plan, error)
	GeneratePlan(ctx context.Context, req model.PlanRequest) (model.Plan, error)
	SyncCalendar(ctx context.Context, id model.Identity, days int) (model.Agenda, error)
	CompleteBlock(ctx context.Context, id model.Identity, blockID string, completed bool) (model.Adherence, error)
	RequestReplan(ctx context.Context, id model.Identity, deltaMinutes int) (api.Ack, error)
	UpsertBlock(ctx context.Context, req model.BlockRequest) (model.BlockAck, error)
	Bootstrap(ctx context.Context, id model.Identity) (model.Bootstrap, error)
}

// PushRegistrar is implemented by *push.Registrar.
type PushRegistrar interface {
	Register(ctx context.Context, id model.Identity) (push.Outcome, error)
}

// Authorizer is implemented by *auth.Flow.
type Authorizer interface {
	Authorize(ctx context.Context) auth.Result
	Exchange(ctx context.Context, code string, id model.Identity) (api.Ack, error)
}

// Orchestrator sequences the client operations and owns the plan and agenda slots.
type Orchestrator struct {
	backend Backend
	push    PushRegistrar
	authz   Authorizer
	log     zerolog.Logger

	mu           sync.Mutex
	plan         *model.Plan
	agenda       []model.AgendaEvent
	agendaSynced bool
	generating   bool
	observed     *model.Identity
}

// New returns an Orchestrator with empty slots. registrar may be nil.
func New(backend Backend, registrar PushRegistrar, authz Authorizer) *Orchestrator {
	return &Orchestrator{
		backend: backend,
		push:    registrar,
		authz:   authz,
		log:     logging.WithComponent("session"),
	}
}

// ObserveIdentity runs push registration when id differs from the last
// identity seen, and does nothing otherwise. It reports whether registration ran.
// Registration failures are logged and dropped: push is optional.
func (o *Orchestrator) ObserveIdentity(ctx context.Context, id model.Identity) (push.Outcome, bool) {
	o.mu.Lock()
	if o.observed != nil && *o.observed == id {
		o.mu.Unlock()
		return 0, false
	}
	o.observed = &id
	o.mu.Unlock()

	if o.push == nil {
		return push.NotGranted, false
	}
	outcome, err := o.push.Register(ctx, id)
	if err != nil {
		o.log.Warn().Err(err).Str("user_id", string(id)).Msg("register push token failed")
	}
	return outcome, true
}

// ConnectCalendar runs the consent flow and, on success, hands the code to
// the backend once. A canceled flow never reaches the backend.
func (o *Orchestrator) ConnectCalendar(ctx context.Context, id model.Identity) error {
	res := o.authz.Authorize(ctx)
	switch res.Kind {
	case auth.Canceled:
		o.log.Info().Str("user_id", string(id)).Msg("calendar authorization canceled")
		return res.Err()
	case auth.Failed:
		o.log.Warn().Str("user_id", string(id)).Str("reason", res.Reason).Msg("calendar authorization failed")
		return res.Err()
	}

	if _, err := o.authz.Exchange(ctx, res.Code, id); err != nil {
		o.log.Error().Err(err).Str("user_id", string(id)).Msg("authorization code exchange rejected")
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	o.log.Info().Str("user_id", string(id)).Msg("google calendar connected")
	return nil
}

// FetchPlan reads today's plan. On failure the previous plan stays in place.
func (o *Orchestrator) FetchPlan(ctx context.Context, id model.Identity) (model.Plan, error) {
	plan, err := o.backend.TodayPlan(ctx, id)
	if err != nil {
		o.log.Warn().Err(err).Str("user_id", string(id)).Msg("fetch plan failed")
		return model.Plan{}, fmt.Errorf("fetch today's plan: %w", err)
	}
	o.setPlan(plan)
	return plan.Clone(), nil
}

// GeneratePlan asks the backend for a new plan. Only one generation runs at a
// time; the generating flag is cleared on every exit path.
func (o *Orchestrator) GeneratePlan(ctx context.Context, id model.Identity, tasks []model.Task, windows []model.FreeWindow, prefs model.UserPreferences) (model.Plan, error) {
	o.mu.Lock()
	if o.generating {
		o.mu.Unlock()
		return model.Plan{}, ErrGenerationInFlight
	}
	o.generating = true
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.generating = false
		o.mu.Unlock()
	}()

	req := model.NewPlanRequest(id, tasks, windows, prefs)
	o.log.Debug().
		Str("user_id", string(id)).
		Int("tasks", len(req.Tasks)).
		Bool("auto_windows", len(req.FreeWindows) == 0).
		Msg("generating plan")

	plan, err := o.backend.GeneratePlan(ctx, req)
	if err != nil {
		o.log.Warn().Err(err).Str("user_id", string(id)).Msg("generate plan failed")
		return model.Plan{}, fmt.Errorf("generate plan: %w", err)
	}
	o.setPlan(plan)
	o.log.Info().Str("user_id", string(id)).Int("blocks", len(plan.Blocks)).Str("plan_type", plan.PlanType).Msg("plan generated")
	return plan.Clone(), nil
}

// SyncCalendar replaces the agenda with the next days of events. An empty
// or missing event list is a valid, empty agenda.
func (o *Orchestrator) SyncCalendar(ctx context.Context, id model.Identity, days int) ([]model.AgendaEvent, error) {
	agenda, err := o.backend.SyncCalendar(ctx, id, days)
	if err != nil {
		o.log.Warn().Err(err).Str("user_id", string(id)).Int("days", days).Msg("calendar sync failed")
		return nil, fmt.Errorf("sync calendar: %w", err)
	}
	events := append([]model.AgendaEvent{}, agenda.Events...)

	o.mu.Lock()
	o.agenda = events
	o.agendaSynced = true
	o.mu.Unlock()

	return append([]model.AgendaEvent{}, events...), nil
}

// CompleteBlock marks a block done. The plan slot is not touched; fetch again to see the change.
func (o *Orchestrator) CompleteBlock(ctx context.Context, id model.Identity, blockID string, completed bool) (model.Adherence, error) {
	adh, err := o.backend.CompleteBlock(ctx, id, blockID, completed)
	if err != nil {
		return model.Adherence{}, fmt.Errorf("complete block %q: %w", blockID, err)
	}
	return adh, nil
}

func (o *Orchestrator) RequestReplan(ctx context.Context, id model.Identity, deltaMinutes int) error {
	if _, err := o.backend.RequestReplan(ctx, id, deltaMinutes); err != nil {
		return fmt.Errorf("request replan: %w", err)
	}
	return nil
}

func (o *Orchestrator) UpsertBlock(ctx context.Context, req model.BlockRequest) (model.BlockAck, error) {
	ack, err := o.backend.UpsertBlock(ctx, req)
	if err != nil {
		return model.BlockAck{}, fmt.Errorf("upsert calendar block: %w", err)
	}
	return ack, nil
}

// Bootstrap returns the user's server-side default preferences.
func (o *Orchestrator) Bootstrap(ctx context.Context, id model.Identity) (model.Bootstrap, error) {
	b, err := o.backend.Bootstrap(ctx, id)
	if err != nil {
		return model.Bootstrap{}, fmt.Errorf("bootstrap: %w", err)
	}
	return b, nil
}

// Plan returns a copy of the current plan and whether one exists.
func (o *Orchestrator) Plan() (model.Plan, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.plan == nil {
		return model.Plan{}, false
	}
	return o.plan.Clone(), true
}

// Agenda returns a copy of the current agenda and whether a sync has succeeded yet.
func (o *Orchestrator) Agenda() ([]model.AgendaEvent, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]model.AgendaEvent{}, o.agenda...), o.agendaSynced
}

// Generating reports whether a plan generation is in flight.
func (o *Orchestrator) Generating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.generating
}

func (o *Orchestrator) setPlan(plan model.Plan) {
	p := plan.Clone()
	o.mu.Lock()
	o.plan = &p
	o.mu.Unlock()
}
