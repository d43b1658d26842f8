package bookingctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/atmanstudio/booking/internal/auth"
	"github.com/atmanstudio/booking/internal/client/api"
	"github.com/atmanstudio/booking/internal/client/bookingflow"
	"github.com/atmanstudio/booking/internal/client/console"
	"github.com/atmanstudio/booking/internal/client/paymentstatus"
	"github.com/atmanstudio/booking/internal/client/slots"
	"github.com/atmanstudio/booking/internal/domain"
)

// Run executes cfg against the API. Prompts are read from in; results go to
// out. User-facing failures are returned as errors carrying the server
// message.
func Run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	if out == nil {
		return errors.New("output is required")
	}

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("load time zone: %w", err)
		}
		loc = l
	}

	switch cfg.Command {
	case CmdSlots:
		return runSlots(ctx, cfg, out, loc)
	case CmdBook:
		return runBook(ctx, cfg, out)
	case CmdStatus:
		return runStatus(ctx, cfg, out)
	case CmdAdmin:
		return runAdmin(ctx, cfg, in, out)
	}
	return fmt.Errorf("unknown command %q", cfg.Command)
}

func runSlots(ctx context.Context, cfg Config, out io.Writer, loc *time.Location) error {
	events, err := slots.NewPicker(api.New(cfg.APIURL), cfg.Service).Bookable(ctx)
	if err != nil {
		return userError(err)
	}
	return slots.Render(out, events, loc)
}

type printNavigator struct {
	out io.Writer
}

func (n printNavigator) Navigate(url string) error {
	_, err := fmt.Fprintf(n.out, "Continue to payment: %s\n", url)
	return err
}

func runBook(ctx context.Context, cfg Config, out io.Writer) error {
	form := bookingflow.Form{
		ScheduleEventID:     cfg.EventID,
		Name:                cfg.Name,
		Phone:               cfg.Phone,
		Email:               cfg.Email,
		Comment:             cfg.Comment,
		AcceptPrivacyPolicy: cfg.AcceptPrivacy,
		AcceptPersonalData:  cfg.AcceptPersonalData,
		AcceptTerms:         cfg.AcceptTerms,
	}

	// Nothing goes over the wire until the form is valid.
	if fe := bookingflow.Validate(form); fe != nil {
		return fieldError(fe)
	}

	client := api.New(cfg.APIURL)

	if _, err := slots.NewPicker(client, cfg.Service).Select(ctx, cfg.EventID); err != nil {
		return userError(err)
	}

	res, err := bookingflow.New(client, printNavigator{out: out}).Submit(ctx, form)
	if err != nil {
		var fe *bookingflow.FieldError
		if errors.As(err, &fe) {
			return fieldError(fe)
		}
		return userError(err)
	}

	if res.Confirmation != "" {
		_, err = fmt.Fprintf(out, "%s\nBooking #%d (%s)\n", res.Confirmation, res.BookingID, res.Status)
		return err
	}
	_, err = fmt.Fprintf(out, "Booking #%d (%s), payment %s\nFollow it with: bookingctl status -payment-id %s\n",
		res.BookingID, res.Status, res.PaymentID, res.PaymentID)
	return err
}

func runStatus(ctx context.Context, cfg Config, out io.Writer) error {
	if cfg.PaymentID == "" {
		return printView(out, paymentstatus.Static(cfg.Segment))
	}

	r := paymentstatus.New(api.New(cfg.APIURL), func(v paymentstatus.View) {
		if !v.Final {
			_ = printView(out, v)
		}
	}, paymentstatus.WithInterval(cfg.Interval), paymentstatus.WithMaxFailures(cfg.MaxFailures))

	v := r.Run(ctx, cfg.PaymentID)
	if err := ctx.Err(); err != nil {
		return err
	}
	return printView(out, v)
}

func printView(out io.Writer, v paymentstatus.View) error {
	var msg string
	switch v.State {
	case domain.DisplaySuccess:
		msg = "Payment succeeded. Your booking is confirmed."
	case domain.DisplayFailed:
		msg = "Payment failed. Your booking has been cancelled."
	default:
		msg = "Waiting for payment confirmation..."
	}

	if v.Snapshot != nil {
		msg = fmt.Sprintf("%s (payment %s: %s, booking #%d: %s)", msg,
			v.Snapshot.PaymentID, v.Snapshot.Status, v.Snapshot.BookingID, v.Snapshot.BookingStatus)
	}
	if v.Err != nil {
		msg += "\nCould not check the payment status: " + api.Message(v.Err)
	}
	if v.Final && v.Err != nil && !v.State.Terminal() {
		msg += "\nGiving up. Check again later."
	}

	_, err := fmt.Fprintln(out, msg)
	return err
}

func runAdmin(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	token := cfg.Token
	if token == "" || cfg.Action == ActionToken {
		t, err := auth.IssueAdminToken(cfg.Secret, cfg.Subject, cfg.TokenTTL, time.Now())
		if err != nil {
			if errors.Is(err, auth.ErrNoSecret) && cfg.Action != ActionToken {
				return errors.New("admin: -token or -secret is required")
			}
			return err
		}
		token = t
	}

	if cfg.Action == ActionToken {
		_, err := fmt.Fprintln(out, token)
		return err
	}

	var confirm console.Confirmer = console.PromptConfirmer{In: in, Out: out}
	if cfg.Yes {
		confirm = console.AlwaysConfirm{}
	}
	c := console.New(api.New(cfg.APIURL, api.WithToken(token)), confirm)

	q := api.BookingQuery{
		Status:    cfg.Status,
		ServiceID: cfg.ServiceID,
		Search:    cfg.Search,
		DateFrom:  cfg.DateFrom,
		DateTo:    cfg.DateTo,
	}
	if cfg.Action != ActionList {
		q = api.BookingQuery{}
	}

	rows, err := c.Load(ctx, q)
	if err != nil {
		return userError(err)
	}

	switch cfg.Action {
	case ActionSetStatus:
		if err := c.Stage(cfg.BookingID, cfg.Status); err != nil {
			return err
		}
		if _, err := c.Save(ctx, cfg.BookingID); err != nil {
			if errors.Is(err, console.ErrNoDraft) {
				_, err = fmt.Fprintf(out, "Booking #%d is already %s.\n", cfg.BookingID, cfg.Status)
				return err
			}
			return userError(err)
		}
		rows = c.Rows()
	case ActionDelete:
		deleted, err := c.Delete(ctx, cfg.BookingID)
		if err != nil {
			return userError(err)
		}
		if !deleted {
			_, err = fmt.Fprintln(out, "Cancelled.")
			return err
		}
		rows = c.Rows()
	}

	return console.Render(out, rows)
}

func fieldError(fe *bookingflow.FieldError) error {
	return fmt.Errorf("%s: %s", fe.Field, fe.Message)
}

func userError(err error) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return errors.New(api.Message(err))
	}
	return err
}
