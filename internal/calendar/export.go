// Package calendar renders meetings and candidate slots as iCalendar
// (RFC 5545) documents.
package calendar

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/meeting-scheduler/internal/persistence"
	"github.com/example/meeting-scheduler/internal/scheduler"
)

// ContentType is the media type of encoded calendars.
const ContentType = "text/calendar; charset=utf-8"

const (
	productID = "-//Meeting Scheduler//Scheduling Engine//EN"
	uidDomain = "meeting-scheduler"
)

// Exporter builds calendars. DTSTAMP values come from its clock.
type Exporter struct {
	now func() time.Time
}

// NewExporter returns an Exporter stamping events with now (time.Now when nil).
func NewExporter(now func() time.Time) *Exporter {
	if now == nil {
		now = time.Now
	}
	return &Exporter{now: now}
}

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	return cal
}

// Meeting renders one meeting as a calendar with a single VEVENT. Users, when
// provided, supply names and emails for the organizer and attendees;
// participants without a known user are left out.
func (x *Exporter) Meeting(meeting persistence.Meeting, participants []persistence.Participant, users map[string]persistence.User) *ical.Calendar {
	cal := newCalendar()

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, fmt.Sprintf("%s@%s", meeting.ID, uidDomain))
	event.Props.SetDateTime(ical.PropDateTimeStamp, x.now().UTC())
	event.Props.SetText(ical.PropSummary, meeting.Title)
	event.Props.SetDateTime(ical.PropDateTimeStart, meeting.Start.UTC())
	event.Props.SetDateTime(ical.PropDateTimeEnd, meeting.End.UTC())
	event.Props.SetText(ical.PropStatus, eventStatus(meeting.Status))
	event.Props.SetText(ical.PropCategories, string(meeting.Type))

	if description := meetingDescription(meeting); description != "" {
		event.Props.SetText(ical.PropDescription, description)
	}
	if meeting.Location != "" {
		event.Props.SetText(ical.PropLocation, meeting.Location)
	}
	if meeting.MeetingURL != "" {
		event.Props.SetText(ical.PropURL, meeting.MeetingURL)
	}

	if organizer, ok := users[meeting.OrganizerID]; ok {
		prop := ical.NewProp(ical.PropOrganizer)
		prop.Value = "mailto:" + organizer.Email
		prop.Params.Set(ical.ParamCommonName, organizer.Name)
		event.Props.Add(prop)
	}
	for _, participant := range participants {
		user, ok := users[participant.UserID]
		if !ok {
			continue
		}
		prop := ical.NewProp(ical.PropAttendee)
		prop.Value = "mailto:" + user.Email
		prop.Params.Set(ical.ParamCommonName, user.Name)
		prop.Params.Set(ical.ParamParticipationStatus, participationStatus(participant.ResponseStatus))
		role := "OPT-PARTICIPANT"
		if participant.IsRequired {
			role = "REQ-PARTICIPANT"
		}
		prop.Params.Set(ical.ParamRole, role)
		event.Props.Add(prop)
	}

	cal.Children = append(cal.Children, event.Component)
	return cal
}

// Slots renders ranked candidate slots as tentative events titled after the
// meeting being planned, best slot first.
func (x *Exporter) Slots(title string, slots []scheduler.TimeSlot) *ical.Calendar {
	cal := newCalendar()
	if strings.TrimSpace(title) == "" {
		title = "Proposed meeting"
	}
	stamp := x.now().UTC()

	for i, slot := range slots {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("slot-%d-%d@%s", slot.Start.Unix(), i+1, uidDomain))
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetText(ical.PropSummary, fmt.Sprintf("%s (option %d, score %.1f)", title, i+1, slot.Score))
		event.Props.SetDateTime(ical.PropDateTimeStart, slot.Start.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, slot.End.UTC())
		event.Props.SetText(ical.PropStatus, "TENTATIVE")
		event.Props.SetText(ical.PropDescription, slotDescription(slot))
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// Encode writes cal in iCalendar text form.
func Encode(w io.Writer, cal *ical.Calendar) error {
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode calendar: %w", err)
	}
	return nil
}

// EncodeToBytes is Encode into a fresh buffer.
func EncodeToBytes(cal *ical.Calendar) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, cal); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func meetingDescription(meeting persistence.Meeting) string {
	parts := make([]string, 0, 2)
	if meeting.Description != "" {
		parts = append(parts, meeting.Description)
	}
	if meeting.Agenda != "" {
		parts = append(parts, "Agenda:\n"+meeting.Agenda)
	}
	return strings.Join(parts, "\n\n")
}

func slotDescription(slot scheduler.TimeSlot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %.1f", slot.Score)
	if slot.Timezone != "" {
		fmt.Fprintf(&b, "\nTimezone: %s", slot.Timezone)
	}
	if len(slot.ParticipantsAvailable) > 0 {
		fmt.Fprintf(&b, "\nAvailable: %s", strings.Join(slot.ParticipantsAvailable, ", "))
	}
	for _, conflict := range slot.Conflicts {
		fmt.Fprintf(&b, "\nConflict: %s", conflict)
	}
	return b.String()
}

func eventStatus(status persistence.MeetingStatus) string {
	if status == persistence.MeetingStatusCancelled {
		return "CANCELLED"
	}
	return "CONFIRMED"
}

func participationStatus(status persistence.ResponseStatus) string {
	switch status {
	case persistence.ResponseAccepted:
		return "ACCEPTED"
	case persistence.ResponseDeclined:
		return "DECLINED"
	case persistence.ResponseTentative:
		return "TENTATIVE"
	}
	return "NEEDS-ACTION"
}
