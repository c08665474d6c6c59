package collab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

const (
	meetSolutionType    = "hangoutsMeet"
	emailReminderMinute = 30
	popupReminderMinute = 10
)

// GoogleCalendar creates events with a Meet link on a Google calendar.
type GoogleCalendar struct {
	service    *calendar.Service
	calendarID string
	timezone   string
	logger     *slog.Logger
}

// NewGoogleCalendar authenticates with the authorized-user or service account
// JSON at credentialsFile.
func NewGoogleCalendar(ctx context.Context, credentialsFile, calendarID, timezone string, logger *slog.Logger) (*GoogleCalendar, error) {
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	svc, err := calendar.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(calendar.CalendarEventsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendar{service: svc, calendarID: calendarID, timezone: timezone, logger: logger}, nil
}

// CreateEvent inserts the meeting and notifies every attendee.
func (c *GoogleCalendar) CreateEvent(ctx context.Context, m Meeting) (*Event, error) {
	event := buildEvent(m, c.timezone, uuid.NewString())

	created, err := c.service.Events.Insert(c.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert calendar event: %w", err)
	}

	c.logger.Info("Calendar event created",
		slog.String("event_id", created.Id),
		slog.String("summary", m.Summary),
		slog.Int("attendees", len(m.Attendees)),
	)
	return &Event{ID: created.Id, HTMLLink: created.HtmlLink, MeetLink: created.HangoutLink}, nil
}

func buildEvent(m Meeting, timezone, requestID string) *calendar.Event {
	attendees := make([]*calendar.EventAttendee, 0, len(m.Attendees))
	for _, email := range m.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	return &calendar.Event{
		Summary:     m.Summary,
		Description: m.Description,
		Start:       &calendar.EventDateTime{DateTime: m.Start.Format(time.RFC3339), TimeZone: timezone},
		End:         &calendar.EventDateTime{DateTime: m.End.Format(time.RFC3339), TimeZone: timezone},
		Attendees:   attendees,
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             requestID,
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: meetSolutionType},
			},
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: emailReminderMinute},
				{Method: "popup", Minutes: popupReminderMinute},
			},
			// UseDefault=false is the zero value and would be dropped otherwise
			ForceSendFields: []string{"UseDefault"},
		},
	}
}
