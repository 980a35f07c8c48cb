package planfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/raigen/pkg/model"
)

const sample = `
tasks:
  - title: "Deep Work: Proposal"
    effort_min: 120
    energy: high
    urgency: 3
    impact: 3
    goal_id: g1
preferences:
  quiet_hours: {start: "22:00", end: "07:00"}
  hard_blocks:
    - {label: work, start: "09:00", end: "17:00", days: [1, 2, 3, 4, 5]}
  max_day_min: 240
`

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)

	want := File{
		Tasks:       []model.Task{{Title: "Deep Work: Proposal", GoalID: "g1", EffortMin: 120, Energy: "high", Urgency: 3, Impact: 3}},
		FreeWindows: []model.FreeWindow{},
		Preferences: DefaultPreferences(),
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Errorf("Parse mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejects(t *testing.T) {
	tests := map[string]string{
		"empty":          "  \n",
		"unknown field":  "tasks: []\nbogus: 1\n",
		"no title":       "tasks:\n  - {effort_min: 10, energy: low}\n",
		"no effort":      "tasks:\n  - {title: x, energy: low}\n",
		"bad energy":     "tasks:\n  - {title: x, effort_min: 10, energy: wired}\n",
		"bad clock":      "preferences:\n  quiet_hours: {start: '25:00', end: '07:00'}\n",
		"bad weekday":    "preferences:\n  hard_blocks:\n    - {label: w, start: '09:00', end: '17:00', days: [0]}\n",
		"window order":   "free_windows:\n  - {start_iso: '2026-10-19T10:00:00Z', end_iso: '2026-10-19T09:00:00Z'}\n",
		"window format":  "free_windows:\n  - {start_iso: 'tomorrow', end_iso: '2026-10-19T09:00:00Z'}\n",
		"negative limit": "preferences:\n  max_day_min: -5\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(input))
			assert.Error(t, err)
		})
	}
}

func TestParseAcceptsISOWeekend(t *testing.T) {
	f, err := Parse([]byte("preferences:\n  hard_blocks:\n    - {label: weekend, start: '10:00', end: '12:00', days: [6, 7]}\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{6, 7}, f.Preferences.HardBlocks[0].Days)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	f, err := Load("")
	require.NoError(t, err)
	assert.Len(t, f.Tasks, 2)
	assert.NotNil(t, f.FreeWindows)
	assert.Empty(t, f.FreeWindows)
	assert.NoError(t, f.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "today.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 240, f.Preferences.MaxDayMin)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadReader(t *testing.T) {
	f, err := LoadReader(strings.NewReader(sample))
	require.NoError(t, err)
	assert.Equal(t, "Deep Work: Proposal", f.Tasks[0].Title)
}
