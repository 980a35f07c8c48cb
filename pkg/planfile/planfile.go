// Package planfile loads the tasks, free windows and preferences that make up
// a plan generation request.
package planfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/raigen/pkg/model"
)

// File is the on-disk shape of a plan file.
type File struct {
	Tasks       []model.Task          `yaml:"tasks"`
	FreeWindows []model.FreeWindow    `yaml:"free_windows"`
	Preferences model.UserPreferences `yaml:"preferences"`
}

// Default returns the sample day used when no plan file is configured.
func Default() File {
	return File{
		Tasks: []model.Task{
			{Title: "Deep Work: Proposal", EffortMin: 120, Energy: model.EnergyHigh, Urgency: 3, Impact: 3},
			{Title: "Admin Inbox Zero", EffortMin: 45, Energy: model.EnergyLow, Urgency: 2, Impact: 1},
		},
		FreeWindows: []model.FreeWindow{},
		Preferences: DefaultPreferences(),
	}
}

// DefaultPreferences are quiet nights, weekday office hours and a four hour cap.
func DefaultPreferences() model.UserPreferences {
	return model.UserPreferences{
		QuietHours: model.ClockRange{Start: "22:00", End: "07:00"},
		HardBlocks: []model.HardBlock{
			{Label: "work", Start: "09:00", End: "17:00", Days: []int{1, 2, 3, 4, 5}},
		},
		MaxDayMin: 240,
	}
}

// Parse decodes and validates a plan file.
func Parse(data []byte) (File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return File{}, fmt.Errorf("planfile: payload is empty")
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return File{}, fmt.Errorf("planfile: decode: %w", err)
	}
	if f.FreeWindows == nil {
		f.FreeWindows = []model.FreeWindow{}
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func LoadReader(r io.Reader) (File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return File{}, fmt.Errorf("planfile: read: %w", err)
	}
	return Parse(data)
}

// Load reads path, or returns Default when path is empty.
func Load(path string) (File, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("planfile: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Validate checks the fields the planner cannot work around.
func (f File) Validate() error {
	for i, t := range f.Tasks {
		if strings.TrimSpace(t.Title) == "" {
			return fmt.Errorf("planfile: task %d has no title", i)
		}
		if t.EffortMin <= 0 {
			return fmt.Errorf("planfile: task %q needs a positive effort_min", t.Title)
		}
		switch t.Energy {
		case model.EnergyLow, model.EnergyMedium, model.EnergyHigh:
		default:
			return fmt.Errorf("planfile: task %q has unknown energy %q", t.Title, t.Energy)
		}
	}
	for i, w := range f.FreeWindows {
		start, err := time.Parse(time.RFC3339, w.StartISO)
		if err != nil {
			return fmt.Errorf("planfile: free window %d start: %w", i, err)
		}
		end, err := time.Parse(time.RFC3339, w.EndISO)
		if err != nil {
			return fmt.Errorf("planfile: free window %d end: %w", i, err)
		}
		if !end.After(start) {
			return fmt.Errorf("planfile: free window %d ends before it starts", i)
		}
	}

	p := f.Preferences
	if p.QuietHours.Start != "" || p.QuietHours.End != "" {
		if err := checkClock("quiet_hours", p.QuietHours.Start, p.QuietHours.End); err != nil {
			return err
		}
	}
	for _, hb := range p.HardBlocks {
		if err := checkClock("hard block "+hb.Label, hb.Start, hb.End); err != nil {
			return err
		}
		for _, d := range hb.Days {
			if d < 1 || d > 7 {
				return fmt.Errorf("planfile: hard block %q has weekday %d outside 1-7", hb.Label, d)
			}
		}
	}
	if p.MaxDayMin < 0 {
		return fmt.Errorf("planfile: max_day_min must not be negative")
	}
	return nil
}

func checkClock(what, start, end string) error {
	for _, v := range []string{start, end} {
		if _, err := time.Parse("15:04", v); err != nil {
			return fmt.Errorf("planfile: %s: %q is not HH:MM", what, v)
		}
	}
	return nil
}
