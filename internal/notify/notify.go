// Package notify delivers a random verse once a day at the user's chosen time.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"biblify/internal/verse"
)

const (
	Title = "Your Verse for the Day"

	// DefaultWindow is the delivery window used when exact timing is off.
	DefaultWindow = 15 * time.Minute

	linkScheme = "biblify"
	linkHost   = "verse"
)

var ErrInvalidLink = errors.New("invalid verse link")

// Settings is the part of the preferences the scheduler reads.
type Settings struct {
	Enabled bool
	Hour    int
	Minute  int
}

// NextFire returns today at hour:minute:00 in now's location, or the same
// time tomorrow when that is not strictly after now.
func NextFire(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Schedule is a planned delivery: exactly at Start, or anywhere inside
// [Start, Start+Window) when Exact is false.
type Schedule struct {
	Start  time.Time
	Window time.Duration
	Exact  bool
}

// Plan computes the next delivery for s.
func Plan(now time.Time, s Settings, exact bool) Schedule {
	sched := Schedule{Start: NextFire(now, s.Hour, s.Minute), Exact: exact}
	if !exact {
		sched.Window = DefaultWindow
	}
	return sched
}

// Pick returns the delivery time, drawn uniformly from the window.
func (s Schedule) Pick(rng *rand.Rand) time.Time {
	if s.Exact || s.Window <= 0 || rng == nil {
		return s.Start
	}
	return s.Start.Add(time.Duration(rng.Int64N(int64(s.Window))))
}

// Notification is one delivered verse.
type Notification struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Link  string      `json:"link"`
	Verse verse.Verse `json:"verse"`
}

// NewNotification builds the notification for v.
func NewNotification(v verse.Verse) Notification {
	return Notification{
		Title: Title,
		Body:  fmt.Sprintf("\"%s\" — %s", v.Text, v.Reference),
		Link:  Link(v),
		Verse: v,
	}
}

// Link encodes a verse as a deep link into the reader.
func Link(v verse.Verse) string {
	return fmt.Sprintf("%s://%s?text=%s&reference=%s",
		linkScheme, linkHost, url.QueryEscape(v.Text), url.QueryEscape(v.Reference))
}

// ParseLink decodes a link produced by Link.
func ParseLink(link string) (verse.Verse, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return verse.Verse{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if u.Scheme != linkScheme || u.Host != linkHost {
		return verse.Verse{}, fmt.Errorf("%w: %q", ErrInvalidLink, link)
	}
	q := u.Query()
	text := q.Get("text")
	if text == "" {
		return verse.Verse{}, fmt.Errorf("%w: missing text", ErrInvalidLink)
	}
	return verse.Verse{Text: text, Reference: q.Get("reference")}, nil
}

// Notifier delivers a notification.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// WriterNotifier prints notifications, wrapped to Width columns.
type WriterNotifier struct {
	W     io.Writer
	Width int
}

func (w WriterNotifier) Notify(_ context.Context, n Notification) error {
	width := w.Width
	if width <= 0 {
		width = 72
	}
	_, err := fmt.Fprintf(w.W, "%s\n\n%s\n\n%s\n", n.Title, wordwrap.String(n.Body, width), n.Link)
	return err
}

// CommandNotifier runs an external command with the title and body appended
// to its arguments, for example notify-send.
type CommandNotifier struct {
	Command string
	Args    []string
}

// ParseCommand splits a configured command line on whitespace.
func ParseCommand(line string) (CommandNotifier, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return CommandNotifier{}, false
	}
	return CommandNotifier{Command: fields[0], Args: fields[1:]}, true
}

func (c CommandNotifier) Notify(ctx context.Context, n Notification) error {
	args := append(append([]string(nil), c.Args...), n.Title, n.Body)
	out, err := exec.CommandContext(ctx, c.Command, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify command %s failed: %w: %s", c.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
