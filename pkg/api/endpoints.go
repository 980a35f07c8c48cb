package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/harrisonrobin/raigen/pkg/model"
)

// Ack is the generic {"ok": true} acknowledgement.
type Ack struct {
	OK bool `json:"ok"`
}

// RegisterPushToken stores the device push token for the user.
func (c *Client) RegisterPushToken(ctx context.Context, id model.Identity, token string) (Ack, error) {
	var ack Ack
	err := c.CallJSON(ctx, "/notify/register", &CallOptions{
		Method: http.MethodPost,
		Body: map[string]string{
			"user_id":         string(id),
			"expo_push_token": token,
		},
	}, &ack)
	return ack, err
}

// ExchangeGoogleCode hands an authorization code to the backend, which
// redeems it and links the calendar account. A code can only be redeemed once.
func (c *Client) ExchangeGoogleCode(ctx context.Context, code string, id model.Identity) (Ack, error) {
	var ack Ack
	err := c.CallJSON(ctx, "/auth/google/callback", &CallOptions{
		Method: http.MethodPost,
		Body: map[string]string{
			"code":    code,
			"user_id": string(id),
		},
	}, &ack)
	return ack, err
}

// TodayPlan reads the stored plan for today.
func (c *Client) TodayPlan(ctx context.Context, id model.Identity) (model.Plan, error) {
	q := url.Values{"user_id": {string(id)}}
	return c.callPlan(ctx, "/plan/today?"+q.Encode(), nil)
}

// GeneratePlan asks the backend to build and store today's plan.
func (c *Client) GeneratePlan(ctx context.Context, req model.PlanRequest) (model.Plan, error) {
	return c.callPlan(ctx, "/plan/generate", &CallOptions{Method: http.MethodPost, Body: req})
}

// callPlan decodes a plan response. A null body means the server has no plan,
// which is reported as ErrEmptyResponse rather than a zero plan.
func (c *Client) callPlan(ctx context.Context, path string, opts *CallOptions) (model.Plan, error) {
	var plan *model.Plan
	if err := c.CallJSON(ctx, path, opts, &plan); err != nil {
		return model.Plan{}, err
	}
	if plan == nil {
		return model.Plan{}, fmt.Errorf("%s: %w", path, ErrEmptyResponse)
	}
	return *plan, nil
}

// SyncCalendar returns the next days of calendar events.
func (c *Client) SyncCalendar(ctx context.Context, id model.Identity, days int) (model.Agenda, error) {
	var agenda model.Agenda
	q := url.Values{
		"user_id": {string(id)},
		"days":    {strconv.Itoa(days)},
	}
	err := c.CallJSON(ctx, "/calendar/sync?"+q.Encode(), nil, &agenda)
	return agenda, err
}

// CompleteBlock marks a block of today's plan as done (or not done).
// blockID may be the block id or its title.
func (c *Client) CompleteBlock(ctx context.Context, id model.Identity, blockID string, completed bool) (model.Adherence, error) {
	var out struct {
		OK        bool            `json:"ok"`
		Adherence model.Adherence `json:"adherence"`
	}
	err := c.CallJSON(ctx, "/plan/complete", &CallOptions{
		Method: http.MethodPost,
		Body: map[string]any{
			"user_id":   string(id),
			"block_id":  blockID,
			"completed": completed,
		},
	}, &out)
	return out.Adherence, err
}

// RequestReplan records a request to shift the rest of the day by deltaMinutes.
func (c *Client) RequestReplan(ctx context.Context, id model.Identity, deltaMinutes int) (Ack, error) {
	var ack Ack
	err := c.CallJSON(ctx, "/plan/replan", &CallOptions{
		Method: http.MethodPost,
		Body: map[string]any{
			"user_id":       string(id),
			"delta_minutes": deltaMinutes,
		},
	}, &ack)
	return ack, err
}

// UpsertBlock creates a calendar event, or updates it when EventID is set.
func (c *Client) UpsertBlock(ctx context.Context, req model.BlockRequest) (model.BlockAck, error) {
	var ack model.BlockAck
	err := c.CallJSON(ctx, "/calendar/block", &CallOptions{Method: http.MethodPost, Body: req}, &ack)
	return ack, err
}

// Bootstrap fetches the user's default preferences and caps.
func (c *Client) Bootstrap(ctx context.Context, id model.Identity) (model.Bootstrap, error) {
	var b model.Bootstrap
	q := url.Values{"user_id": {string(id)}}
	err := c.CallJSON(ctx, "/me/bootstrap?"+q.Encode(), nil, &b)
	return b, err
}
