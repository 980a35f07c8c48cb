package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/raigen/pkg/api"
	"github.com/harrisonrobin/raigen/pkg/auth"
	"github.com/harrisonrobin/raigen/pkg/model"
	"github.com/harrisonrobin/raigen/pkg/push"
)

type fakeBackend struct {
	mu sync.Mutex

	today      func() (model.Plan, error)
	generate   func(model.PlanRequest) (model.Plan, error)
	sync       func(days int) (model.Agenda, error)
	generated  []model.PlanRequest
	todayCalls int
}

func (f *fakeBackend) TodayPlan(context.Context, model.Identity) (model.Plan, error) {
	f.mu.Lock()
	f.todayCalls++
	f.mu.Unlock()
	return f.today()
}

func (f *fakeBackend) GeneratePlan(_ context.Context, req model.PlanRequest) (model.Plan, error) {
	f.mu.Lock()
	f.generated = append(f.generated, req)
	f.mu.Unlock()
	return f.generate(req)
}

func (f *fakeBackend) SyncCalendar(_ context.Context, _ model.Identity, days int) (model.Agenda, error) {
	return f.sync(days)
}

func (f *fakeBackend) CompleteBlock(context.Context, model.Identity, string, bool) (model.Adherence, error) {
	return model.Adherence{Completed: 1, Planned: 2}, nil
}

func (f *fakeBackend) RequestReplan(context.Context, model.Identity, int) (api.Ack, error) {
	return api.Ack{OK: true}, nil
}

func (f *fakeBackend) UpsertBlock(_ context.Context, req model.BlockRequest) (model.BlockAck, error) {
	return model.BlockAck{EventID: "ev1", Summary: req.Title}, nil
}

func (f *fakeBackend) Bootstrap(_ context.Context, id model.Identity) (model.Bootstrap, error) {
	return model.Bootstrap{UserID: id}, nil
}

type fakeRegistrar struct {
	calls []model.Identity
	err   error
}

func (f *fakeRegistrar) Register(_ context.Context, id model.Identity) (push.Outcome, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return push.Failed, f.err
	}
	return push.Registered, nil
}

type fakeAuthorizer struct {
	result    auth.Result
	exchanges []string
	err       error
}

func (f *fakeAuthorizer) Authorize(context.Context) auth.Result { return f.result }

func (f *fakeAuthorizer) Exchange(_ context.Context, code string, _ model.Identity) (api.Ack, error) {
	f.exchanges = append(f.exchanges, code)
	if f.err != nil {
		return api.Ack{}, f.err
	}
	return api.Ack{OK: true}, nil
}

var serverError = &api.RequestFailedError{Method: "GET", Path: "/plan/today", Status: 500, Body: "Internal Server Error"}

func samplePlan(date string) model.Plan {
	return model.Plan{
		Date: date,
		Blocks: []model.Block{
			{Title: "Deep Work: Proposal", Start: date + "T09:00:00Z", End: date + "T11:00:00Z"},
			{Title: "Admin Inbox Zero", Start: date + "T13:00:00Z", End: date + "T13:45:00Z"},
		},
		Rationale: "High-energy work first.",
		PlanType:  "full",
	}
}

func TestGeneratePlanReplacesSlotWithServerPlan(t *testing.T) {
	first := samplePlan("2026-10-18")
	second := model.Plan{Date: "2026-10-19", Blocks: []model.Block{{Title: "Only", Start: "a", End: "b"}}}
	backend := &fakeBackend{
		today:    func() (model.Plan, error) { return first, nil },
		generate: func(model.PlanRequest) (model.Plan, error) { return second, nil },
	}
	o := New(backend, nil, nil)

	_, err := o.FetchPlan(context.Background(), "u1")
	require.NoError(t, err)

	got, err := o.GeneratePlan(context.Background(), "u1", nil, nil, model.UserPreferences{})
	require.NoError(t, err)

	slot, ok := o.Plan()
	require.True(t, ok)
	if diff := cmp.Diff(second, slot); diff != "" {
		t.Errorf("plan slot mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("returned plan mismatch (-want +got):\n%s", diff)
	}
	assert.False(t, o.Generating())
}

func TestFailedOperationsKeepLastKnownPlan(t *testing.T) {
	good := samplePlan("2026-10-19")
	calls := 0
	backend := &fakeBackend{
		today: func() (model.Plan, error) {
			calls++
			if calls == 1 {
				return good, nil
			}
			return model.Plan{}, serverError
		},
		generate: func(model.PlanRequest) (model.Plan, error) { return model.Plan{}, serverError },
	}
	o := New(backend, nil, nil)

	_, err := o.FetchPlan(context.Background(), "u1")
	require.NoError(t, err)
	before, _ := o.Plan()

	_, err = o.FetchPlan(context.Background(), "u1")
	require.Error(t, err)
	after, ok := o.Plan()
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(before, after))

	_, err = o.GeneratePlan(context.Background(), "u1", nil, nil, model.UserPreferences{})
	require.Error(t, err)
	after, _ = o.Plan()
	assert.Empty(t, cmp.Diff(before, after))
	assert.False(t, o.Generating())
}

func TestFetchPlanServerErrorSurfacedOnce(t *testing.T) {
	backend := &fakeBackend{today: func() (model.Plan, error) { return model.Plan{}, serverError }}
	o := New(backend, nil, nil)

	_, err := o.FetchPlan(context.Background(), "u1")
	require.Error(t, err)
	assert.Equal(t, 500, api.StatusCode(err))
	assert.Equal(t, 1, backend.todayCalls)
	assert.False(t, o.Generating())
	_, ok := o.Plan()
	assert.False(t, ok)
}

func TestPlanSlotIsNotAliased(t *testing.T) {
	backend := &fakeBackend{today: func() (model.Plan, error) { return samplePlan("2026-10-19"), nil }}
	o := New(backend, nil, nil)

	got, err := o.FetchPlan(context.Background(), "u1")
	require.NoError(t, err)
	got.Blocks[0].Title = "mutated"

	slot, _ := o.Plan()
	assert.Equal(t, "Deep Work: Proposal", slot.Blocks[0].Title)
}

func TestGeneratePlanRejectsOverlappingRequests(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	backend := &fakeBackend{
		generate: func(model.PlanRequest) (model.Plan, error) {
			close(started)
			<-release
			return samplePlan("2026-10-19"), nil
		},
		sync: func(int) (model.Agenda, error) { return model.Agenda{}, nil },
	}
	o := New(backend, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := o.GeneratePlan(context.Background(), "u1", nil, nil, model.UserPreferences{})
		done <- err
	}()
	<-started
	assert.True(t, o.Generating())

	_, err := o.GeneratePlan(context.Background(), "u1", nil, nil, model.UserPreferences{})
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	// unrelated operations proceed while generation is in flight
	_, err = o.SyncCalendar(context.Background(), "u1", 7)
	require.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, o.Generating())
	assert.Len(t, backend.generated, 1)
}

func TestSyncCalendarEmptyEvents(t *testing.T) {
	backend := &fakeBackend{sync: func(days int) (model.Agenda, error) {
		assert.Equal(t, 7, days)
		return model.Agenda{}, nil
	}}
	o := New(backend, nil, nil)

	_, synced := o.Agenda()
	assert.False(t, synced)

	events, err := o.SyncCalendar(context.Background(), "u1", 7)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	slot, synced := o.Agenda()
	assert.True(t, synced)
	assert.NotNil(t, slot)
	assert.Empty(t, slot)
}

func TestSyncCalendarReplacesWholesale(t *testing.T) {
	summary := "Standup"
	calls := 0
	backend := &fakeBackend{sync: func(int) (model.Agenda, error) {
		calls++
		switch calls {
		case 1:
			return model.Agenda{Events: []model.AgendaEvent{{ID: "a", Summary: &summary}, {ID: "b"}}}, nil
		case 2:
			return model.Agenda{Events: []model.AgendaEvent{{ID: "c"}}}, nil
		default:
			return model.Agenda{}, errors.New("boom")
		}
	}}
	o := New(backend, nil, nil)

	_, err := o.SyncCalendar(context.Background(), "u1", 7)
	require.NoError(t, err)
	_, err = o.SyncCalendar(context.Background(), "u1", 7)
	require.NoError(t, err)
	slot, _ := o.Agenda()
	require.Len(t, slot, 1)
	assert.Equal(t, "c", slot[0].ID)

	_, err = o.SyncCalendar(context.Background(), "u1", 7)
	require.Error(t, err)
	slot, _ = o.Agenda()
	require.Len(t, slot, 1)
	assert.Equal(t, "c", slot[0].ID)
}

func TestObserveIdentityRegistersOncePerIdentity(t *testing.T) {
	reg := &fakeRegistrar{}
	o := New(&fakeBackend{}, reg, nil)

	for i := 0; i < 5; i++ {
		o.ObserveIdentity(context.Background(), "u1")
	}
	o.ObserveIdentity(context.Background(), "u2")
	o.ObserveIdentity(context.Background(), "u2")
	o.ObserveIdentity(context.Background(), "u1")

	assert.Equal(t, []model.Identity{"u1", "u2", "u1"}, reg.calls)
}

func TestObserveIdentitySwallowsRegistrationFailure(t *testing.T) {
	reg := &fakeRegistrar{err: serverError}
	o := New(&fakeBackend{}, reg, nil)

	outcome, ran := o.ObserveIdentity(context.Background(), "u1")
	assert.True(t, ran)
	assert.Equal(t, push.Failed, outcome)
}

func TestConnectCalendarCanceledSkipsExchange(t *testing.T) {
	authz := &fakeAuthorizer{result: auth.CanceledResult()}
	o := New(&fakeBackend{}, nil, authz)

	err := o.ConnectCalendar(context.Background(), "u1")
	assert.ErrorIs(t, err, auth.ErrAuthorizationCanceled)
	assert.Empty(t, authz.exchanges)
	assert.Equal(t, "Google auth canceled or failed", UserMessage(err))
}

func TestConnectCalendarFailedSkipsExchange(t *testing.T) {
	authz := &fakeAuthorizer{result: auth.FailedWith("state mismatch in redirect")}
	o := New(&fakeBackend{}, nil, authz)

	err := o.ConnectCalendar(context.Background(), "u1")
	assert.ErrorIs(t, err, auth.ErrAuthorizationFailed)
	assert.Empty(t, authz.exchanges)
}

func TestConnectCalendarExchangesOnce(t *testing.T) {
	authz := &fakeAuthorizer{result: auth.SucceededWith("code-1")}
	o := New(&fakeBackend{}, nil, authz)

	require.NoError(t, o.ConnectCalendar(context.Background(), "u1"))
	assert.Equal(t, []string{"code-1"}, authz.exchanges)
}

func TestConnectCalendarExchangeRejected(t *testing.T) {
	authz := &fakeAuthorizer{
		result: auth.SucceededWith("code-1"),
		err:    &api.RequestFailedError{Status: 400, Body: "invalid_grant"},
	}
	o := New(&fakeBackend{}, nil, authz)

	err := o.ConnectCalendar(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Equal(t, 400, api.StatusCode(err))
	assert.Equal(t, []string{"code-1"}, authz.exchanges)
	assert.Equal(t, "Google connection failed. Please reconnect.", UserMessage(err))
}

func TestPassThroughOperations(t *testing.T) {
	o := New(&fakeBackend{}, nil, nil)
	ctx := context.Background()

	adh, err := o.CompleteBlock(ctx, "u1", "b1", true)
	require.NoError(t, err)
	assert.Equal(t, model.Adherence{Completed: 1, Planned: 2}, adh)

	require.NoError(t, o.RequestReplan(ctx, "u1", 30))

	ack, err := o.UpsertBlock(ctx, model.BlockRequest{UserID: "u1", Title: "Focus"})
	require.NoError(t, err)
	assert.Equal(t, "Focus", ack.Summary)

	b, err := o.Bootstrap(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, model.Identity("u1"), b.UserID)

	_, ok := o.Plan()
	assert.False(t, ok, "pass-through operations must not write the plan slot")
}
