// Package console is the admin booking console: a filtered booking list
// with the payment snapshot of each row, staged status edits and confirmed
// deletes.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/atmanstudio/booking/internal/client/api"
	"github.com/atmanstudio/booking/internal/domain"
)

var (
	ErrUnknownBooking = errors.New("booking is not in the current list")
	ErrNoDraft        = errors.New("no status change to save")
)

type Backend interface {
	ListBookings(ctx context.Context, q api.BookingQuery) ([]api.Booking, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) (*api.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

type Row struct {
	api.Booking
	// Draft is the staged, unsaved status; empty when none.
	Draft string
}

type Console struct {
	backend Backend
	confirm Confirmer

	mu     sync.Mutex
	query  api.BookingQuery
	rows   []api.Booking
	drafts map[int64]domain.BookingStatus
}

func New(b Backend, c Confirmer) *Console {
	return &Console{
		backend: b,
		confirm: c,
		drafts:  map[int64]domain.BookingStatus{},
	}
}

// Load fetches the bookings matching q and keeps drafts of rows that are
// still listed.
func (c *Console) Load(ctx context.Context, q api.BookingQuery) ([]Row, error) {
	if s := strings.TrimSpace(q.Status); s != "" {
		if _, err := domain.ParseBookingStatus(s); err != nil {
			return nil, err
		}
	}

	list, err := c.backend.ListBookings(ctx, q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.query = q
	c.rows = list

	listed := make(map[int64]bool, len(list))
	for _, b := range list {
		listed[b.ID] = true
	}
	for id := range c.drafts {
		if !listed[id] {
			delete(c.drafts, id)
		}
	}

	return c.rowsLocked(), nil
}

func (c *Console) Rows() []Row {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rowsLocked()
}

func (c *Console) rowsLocked() []Row {
	out := make([]Row, 0, len(c.rows))
	for _, b := range c.rows {
		out = append(out, Row{Booking: b, Draft: string(c.drafts[b.ID])})
	}
	return out
}

// Stage records a status choice locally. Nothing is sent until Save.
// Choosing the current status again clears the draft.
func (c *Console) Stage(id int64, status string) error {
	s, err := domain.ParseBookingStatus(status)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.findLocked(id)
	if !ok {
		return ErrUnknownBooking
	}

	if string(s) == b.Status {
		delete(c.drafts, id)
		return nil
	}
	c.drafts[id] = s
	return nil
}

func (c *Console) Discard(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.drafts, id)
}

// Save sends the staged status of booking id, then reloads the list.
func (c *Console) Save(ctx context.Context, id int64) (*api.Booking, error) {
	c.mu.Lock()
	draft, ok := c.drafts[id]
	c.mu.Unlock()
	if !ok {
		return nil, ErrNoDraft
	}

	b, err := c.backend.UpdateBookingStatus(ctx, id, string(draft))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	delete(c.drafts, id)
	q := c.query
	c.mu.Unlock()

	if _, err := c.Load(ctx, q); err != nil {
		return b, err
	}
	return b, nil
}

// Delete asks for confirmation and, if given, deletes booking id and reloads
// the list. It reports whether the booking was deleted.
func (c *Console) Delete(ctx context.Context, id int64) (bool, error) {
	c.mu.Lock()
	b, ok := c.findLocked(id)
	q := c.query
	c.mu.Unlock()
	if !ok {
		return false, ErrUnknownBooking
	}

	yes, err := c.confirm.Confirm(fmt.Sprintf("Delete booking #%d (%s, %s)?", b.ID, b.Name, b.Status))
	if err != nil || !yes {
		return false, err
	}

	if err := c.backend.DeleteBooking(ctx, id); err != nil {
		return false, err
	}

	c.Discard(id)
	if _, err := c.Load(ctx, q); err != nil {
		return true, err
	}
	return true, nil
}

func (c *Console) findLocked(id int64) (api.Booking, bool) {
	for _, b := range c.rows {
		if b.ID == id {
			return b, true
		}
	}
	return api.Booking{}, false
}

func Render(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No bookings.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSERVICE\tSTART\tNAME\tPHONE\tEMAIL\tSTATUS\tPAYMENT\tPAYMENT STATUS")
	for _, r := range rows {
		status := r.Status
		if r.Draft != "" {
			status += " -> " + r.Draft + " (unsaved)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.ServiceTitle,
			r.EventStartTime.Format("2006-01-02 15:04"),
			r.Name,
			r.Phone,
			r.Email,
			status,
			dash(r.PaymentID),
			dash(r.PaymentStatus),
		)
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// PromptConfirmer asks on Out and reads the answer from In. Only "y" or
// "yes" confirms.
type PromptConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptConfirmer) Confirm(prompt string) (bool, error) {
	if _, err := fmt.Fprintf(p.Out, "%s [y/N]: ", prompt); err != nil {
		return false, err
	}

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// AlwaysConfirm answers yes without asking.
type AlwaysConfirm struct{}

func (AlwaysConfirm) Confirm(string) (bool, error) { return true, nil }
