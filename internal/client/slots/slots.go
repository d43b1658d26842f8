// Package slots is the client side of the slot capacity ledger: it offers
// only bookable events and never adjusts capacity locally.
package slots

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/atmanstudio/booking/internal/domain"
)

var ErrNotBookable = errors.New("this slot is no longer available, please pick another one")

type Lister interface {
	ListSchedule(ctx context.Context, serviceSlug string) ([]domain.ScheduleEvent, error)
}

type Picker struct {
	lister Lister
	slug   string
}

// NewPicker lists events of one service, or of every service when slug is
// empty.
func NewPicker(l Lister, slug string) *Picker {
	return &Picker{lister: l, slug: slug}
}

// Bookable fetches the schedule and returns the bookable events, earliest
// first. Every call goes to the server.
func (p *Picker) Bookable(ctx context.Context) ([]domain.ScheduleEvent, error) {
	events, err := p.lister.ListSchedule(ctx, p.slug)
	if err != nil {
		return nil, err
	}
	return domain.FilterBookable(events), nil
}

// Select re-fetches the schedule and returns event id if it is still
// bookable.
func (p *Picker) Select(ctx context.Context, id int64) (*domain.ScheduleEvent, error) {
	events, err := p.Bookable(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, ErrNotBookable
}

func Render(w io.Writer, events []domain.ScheduleEvent, loc *time.Location) error {
	if len(events) == 0 {
		_, err := fmt.Fprintln(w, "No available slots.")
		return err
	}
	if loc == nil {
		loc = time.Local
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSERVICE\tSTART\tEND\tFREE")
	for _, e := range events {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\n",
			e.ID,
			e.ServiceTitle,
			e.StartTime.In(loc).Format("Mon 02 Jan 15:04"),
			e.EndTime.In(loc).Format("15:04"),
			e.AvailableSpots(),
			e.MaxParticipants,
		)
	}
	return tw.Flush()
}
