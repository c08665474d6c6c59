// Package collab talks to the calendar and mail collaborators used by the
// meeting and email jobs.
package collab

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"google.golang.org/api/googleapi"
)

// ErrDisabled is returned when the Google integration is switched off.
var ErrDisabled = errors.New("google integration is disabled")

type Meeting struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Attendees   []string
}

type Event struct {
	ID       string
	HTMLLink string
	MeetLink string
}

type Calendar interface {
	CreateEvent(ctx context.Context, m Meeting) (*Event, error)
}

type Email struct {
	Recipients  []string
	Subject     string
	HTMLBody    string
	Attachments []string
}

type Mailer interface {
	// Send delivers the message and returns the provider's message id.
	Send(ctx context.Context, e Email) (string, error)
}

// Disabled satisfies Calendar and Mailer when the integration is off.
type Disabled struct{}

func (Disabled) CreateEvent(context.Context, Meeting) (*Event, error) { return nil, ErrDisabled }
func (Disabled) Send(context.Context, Email) (string, error)         { return "", ErrDisabled }

// IsTransient reports whether a Google API failure is worth retrying.
func IsTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
