package model

// Identity is the opaque user identifier sent with every backend call.
type Identity string

// Energy levels understood by the planner.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// Task is one unit of work the planner should place into the day.
type Task struct {
	Title     string `json:"title" yaml:"title"`
	GoalID    string `json:"goal_id,omitempty" yaml:"goal_id,omitempty"`
	EffortMin int    `json:"effort_min" yaml:"effort_min"`
	Energy    string `json:"energy" yaml:"energy"`
	Urgency   int    `json:"urgency" yaml:"urgency"`
	Impact    int    `json:"impact" yaml:"impact"`
}

// FreeWindow is an open interval in UTC, RFC 3339 encoded.
type FreeWindow struct {
	StartISO string `json:"start_iso" yaml:"start_iso"`
	EndISO   string `json:"end_iso" yaml:"end_iso"`
}

// ClockRange is a wall-clock interval such as 22:00-07:00. It may wrap midnight.
type ClockRange struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// HardBlock is a recurring interval the planner must not touch.
// Days are ISO weekdays, 1=Monday .. 7=Sunday.
type HardBlock struct {
	Label string `json:"label" yaml:"label"`
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
	Days  []int  `json:"days" yaml:"days"`
}

type UserPreferences struct {
	QuietHours ClockRange  `json:"quiet_hours" yaml:"quiet_hours"`
	HardBlocks []HardBlock `json:"hard_blocks" yaml:"hard_blocks"`
	MaxDayMin  int         `json:"max_day_min" yaml:"max_day_min"`
}

// PlanRequest is the body of a plan generation call. An empty FreeWindows
// asks the server to discover availability from the linked calendar.
type PlanRequest struct {
	UserID      Identity        `json:"user_id"`
	Tasks       []Task          `json:"tasks"`
	FreeWindows []FreeWindow    `json:"free_windows"`
	Preferences UserPreferences `json:"user_prefs"`
}

// NewPlanRequest copies its inputs so the request cannot change after construction.
// Nil slices are normalized to empty ones so they encode as [] rather than null.
func NewPlanRequest(id Identity, tasks []Task, windows []FreeWindow, prefs UserPreferences) PlanRequest {
	req := PlanRequest{
		UserID:      id,
		Tasks:       append([]Task{}, tasks...),
		FreeWindows: append([]FreeWindow{}, windows...),
		Preferences: prefs,
	}
	req.Preferences.HardBlocks = make([]HardBlock, 0, len(prefs.HardBlocks))
	for _, hb := range prefs.HardBlocks {
		hb.Days = append([]int{}, hb.Days...)
		req.Preferences.HardBlocks = append(req.Preferences.HardBlocks, hb)
	}
	return req
}

// Block is one scheduled slot of a plan.
type Block struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	GoalID    string `json:"goal_id,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}

// Plan is the server's answer for one user and one day.
type Plan struct {
	Date        string  `json:"date"`
	Blocks      []Block `json:"blocks"`
	Rationale   string  `json:"rationale,omitempty"`
	PlanType    string  `json:"plan_type,omitempty"`
	ReplanCount int     `json:"replan_count,omitempty"`
}

// Clone returns a deep copy so callers never share the block slice with the session.
func (p Plan) Clone() Plan {
	p.Blocks = append([]Block(nil), p.Blocks...)
	return p
}

// AgendaEvent is a calendar item. Summary is nil for busy-only entries.
type AgendaEvent struct {
	ID      string  `json:"id"`
	Summary *string `json:"summary"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
}

// Title returns the summary or "(busy)" when the calendar hides it.
func (e AgendaEvent) Title() string {
	if e.Summary == nil || *e.Summary == "" {
		return "(busy)"
	}
	return *e.Summary
}

// Agenda is the calendar sync response.
type Agenda struct {
	Events []AgendaEvent `json:"events"`
}

type Adherence struct {
	Completed int `json:"completed"`
	Planned   int `json:"planned"`
}

// BlockRequest creates or moves a single calendar block.
type BlockRequest struct {
	UserID   Identity `json:"user_id"`
	Title    string   `json:"title"`
	StartISO string   `json:"start_iso"`
	EndISO   string   `json:"end_iso"`
	EventID  string   `json:"event_id,omitempty"`
}

type BlockAck struct {
	EventID string `json:"event_id"`
	Summary string `json:"summary"`
}

// Caps are the per-user budget limits reported by the backend.
type Caps struct {
	SMSLimit      int `json:"sms_limit"`
	LLMCentsLimit int `json:"llm_cents_limit"`
}

// Bootstrap is the per-user defaults document.
type Bootstrap struct {
	UserID Identity        `json:"user_id"`
	Prefs  UserPreferences `json:"prefs"`
	Caps   Caps            `json:"caps"`
}
