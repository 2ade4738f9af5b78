package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/calendar"
	"github.com/example/meeting-scheduler/internal/persistence/sqlite"
	"github.com/example/meeting-scheduler/internal/timezone"
)

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

type MigrateCmd struct{}

type migrationReport struct {
	CurrentVersion string   `json:"current_version"`
	Applied        []string `json:"applied"`
	Pending        []string `json:"pending"`
}

// Run reports the schema state. Opening the store already applied pending
// migrations.
func (c *MigrateCmd) Run(env *Env) error {
	status, err := sqlite.MigrationStatus(env.Ctx, env.Store.Pool(), env.Logger)
	if err != nil {
		return err
	}

	report := migrationReport{CurrentVersion: status.CurrentVersion, Applied: []string{}, Pending: []string{}}
	for _, applied := range status.Applied {
		report.Applied = append(report.Applied, applied.Version)
	}
	for _, pending := range status.Pending {
		report.Pending = append(report.Pending, pending.Version)
	}
	return writeJSON(env.Out, report)
}

type SlotsCmd struct {
	Participants []string `help:"Participant user ids." required:"" sep:","`
	Duration     int      `help:"Meeting length in minutes." default:"30"`
	From         string   `help:"First day to search (YYYY-MM-DD)." required:""`
	To           string   `help:"Last day to search (YYYY-MM-DD); defaults to --from."`
	Timezone     string   `help:"Zone the slots are laid out in."`
	Max          int      `help:"Maximum number of slots to return."`
	Title        string   `help:"Summary used for calendar output."`
	ICS          bool     `name:"ics" help:"Print the ranking as an iCalendar document."`
}

func (c *SlotsCmd) Run(env *Env) error {
	zone := c.Timezone
	if zone == "" {
		zone = env.Timezone
	}
	loc, err := timezone.Default.Resolve(zone)
	if err != nil {
		return fmt.Errorf("unknown timezone %q", zone)
	}
	from, err := parseDay(c.From, loc)
	if err != nil {
		return err
	}
	to := from
	if c.To != "" {
		if to, err = parseDay(c.To, loc); err != nil {
			return err
		}
	}

	slots, err := env.Analytics.FindOptimalSlots(env.Ctx, application.SlotSearchInput{
		ParticipantIDs:  c.Participants,
		DurationMinutes: c.Duration,
		StartDate:       from,
		EndDate:         to,
		Timezone:        zone,
		MaxResults:      c.Max,
	})
	if err != nil {
		return err
	}

	if c.ICS {
		if len(slots) == 0 {
			env.Logger.Warn("no slot qualified; nothing to export")
			return nil
		}
		return calendar.Encode(env.Out, calendar.NewExporter(nil).Slots(c.Title, slots))
	}
	return writeJSON(env.Out, slots)
}

type ConflictsCmd struct {
	User  string `arg:"" help:"User id."`
	Start string `help:"Interval start (RFC 3339)." required:""`
	End   string `help:"Interval end (RFC 3339)." required:""`
}

func (c *ConflictsCmd) Run(env *Env) error {
	start, err := time.Parse(time.RFC3339, c.Start)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, c.End)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	conflicts, err := env.Analytics.DetectConflicts(env.Ctx, application.ConflictCheckInput{UserID: c.User, Start: start, End: end})
	if err != nil {
		return err
	}
	return writeJSON(env.Out, conflicts)
}

type PatternsCmd struct {
	User   string `arg:"" help:"User id."`
	Period int    `help:"Look-back in days." default:"30"`
}

func (c *PatternsCmd) Run(env *Env) error {
	report, err := env.Analytics.AnalyzePatterns(env.Ctx, c.User, c.Period)
	if err != nil {
		return err
	}
	return writeJSON(env.Out, report)
}

type WorkloadCmd struct {
	Users []string `arg:"" help:"User ids to compare."`
}

func (c *WorkloadCmd) Run(env *Env) error {
	report, err := env.Analytics.BalanceWorkload(env.Ctx, c.Users)
	if err != nil {
		return err
	}
	return writeJSON(env.Out, report)
}

type EffectivenessCmd struct {
	Meeting string `arg:"" help:"Meeting id."`
}

func (c *EffectivenessCmd) Run(env *Env) error {
	report, err := env.Analytics.ScoreEffectiveness(env.Ctx, c.Meeting)
	if err != nil {
		return err
	}
	return writeJSON(env.Out, report)
}

type OptimizeCmd struct {
	User string `arg:"" help:"User id."`
}

func (c *OptimizeCmd) Run(env *Env) error {
	report, err := env.Analytics.OptimizeSchedule(env.Ctx, c.User)
	if err != nil {
		return err
	}
	return writeJSON(env.Out, report)
}

type AgendaCmd struct {
	Topic        string   `arg:"" help:"Meeting topic."`
	Duration     int      `help:"Meeting length in minutes." default:"60"`
	Participants []string `help:"Participant user ids." sep:","`
}

func (c *AgendaCmd) Run(env *Env) error {
	agenda, err := env.Analytics.GenerateAgenda(env.Ctx, application.AgendaInput{
		Topic:           c.Topic,
		ParticipantIDs:  c.Participants,
		DurationMinutes: c.Duration,
	})
	if err != nil {
		return err
	}
	return writeJSON(env.Out, agenda)
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", value)
	}
	return day, nil
}
