// Package bookingctl is a terminal client for the booking API: it lists
// bookable slots, books one, follows a payment to its outcome and drives the
// admin booking console.
package bookingctl

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	CmdSlots  = "slots"
	CmdBook   = "book"
	CmdStatus = "status"
	CmdAdmin  = "admin"

	ActionList      = "list"
	ActionSetStatus = "set-status"
	ActionDelete    = "delete"
	ActionToken     = "token"
)

type envDefaults struct {
	APIURL string `env:"BOOKING_API_URL" envDefault:"http://localhost:8080"`
	Token  string `env:"BOOKING_ADMIN_TOKEN"`
	Secret string `env:"ADMIN_JWT_SECRET"`
}

// Config holds one bookingctl invocation.
type Config struct {
	Command string
	Action  string

	APIURL   string
	Token    string
	Secret   string
	Timezone string

	Service string

	EventID int64
	Name    string
	Phone   string
	Email   string
	Comment string

	AcceptPrivacy      bool
	AcceptPersonalData bool
	AcceptTerms        bool

	PaymentID   string
	Segment     string
	Interval    time.Duration
	MaxFailures int

	Status    string
	Search    string
	ServiceID int64
	DateFrom  string
	DateTo    string
	BookingID int64
	Yes       bool
	TokenTTL  time.Duration
	Subject   string
}

// ParseConfig parses `[flags] <command> [action] [flags]` into a Config.
// Flag defaults for the API URL and admin credentials come from the
// environment.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var d envDefaults
	if err := env.Parse(&d); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		APIURL:      d.APIURL,
		Token:       d.Token,
		Secret:      d.Secret,
		Interval:    7 * time.Second,
		MaxFailures: 5,
		TokenTTL:    12 * time.Hour,
		Subject:     "bookingctl",
	}

	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "booking API base URL (env BOOKING_API_URL)")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "admin bearer token (env BOOKING_ADMIN_TOKEN)")
	fs.StringVar(&cfg.Secret, "secret", cfg.Secret, "admin JWT secret used to mint a token when -token is empty (env ADMIN_JWT_SECRET)")
	fs.StringVar(&cfg.Timezone, "tz", "", "time zone for slot times (default: local)")

	fs.StringVar(&cfg.Service, "service", "", "service slug to list (default: all)")

	fs.Int64Var(&cfg.EventID, "schedule", 0, "schedule event id to book")
	fs.StringVar(&cfg.Name, "name", "", "customer name")
	fs.StringVar(&cfg.Phone, "phone", "", "customer phone")
	fs.StringVar(&cfg.Email, "email", "", "customer email")
	fs.StringVar(&cfg.Comment, "comment", "", "booking comment")
	fs.BoolVar(&cfg.AcceptPrivacy, "accept-privacy", false, "accept the privacy policy")
	fs.BoolVar(&cfg.AcceptPersonalData, "accept-personal-data", false, "consent to personal data processing")
	fs.BoolVar(&cfg.AcceptTerms, "accept-terms", false, "accept the terms of service")

	fs.StringVar(&cfg.PaymentID, "payment-id", "", "payment id to follow")
	fs.StringVar(&cfg.Segment, "state", "", "return URL status segment (success, waiting, failed), used when -payment-id is empty")
	fs.DurationVar(&cfg.Interval, "interval", cfg.Interval, "payment status poll interval")
	fs.IntVar(&cfg.MaxFailures, "max-failures", cfg.MaxFailures, "consecutive failed polls before giving up")

	fs.StringVar(&cfg.Status, "status", "", "booking status (filter for list, target for set-status)")
	fs.StringVar(&cfg.Search, "search", "", "search name, phone, email or payment id")
	fs.Int64Var(&cfg.ServiceID, "service-id", 0, "filter by service id")
	fs.StringVar(&cfg.DateFrom, "from", "", "event date lower bound (YYYY-MM-DD)")
	fs.StringVar(&cfg.DateTo, "to", "", "event date upper bound (YYYY-MM-DD)")
	fs.Int64Var(&cfg.BookingID, "id", 0, "booking id")
	fs.BoolVar(&cfg.Yes, "yes", false, "delete without asking")
	fs.DurationVar(&cfg.TokenTTL, "ttl", cfg.TokenTTL, "lifetime of a minted admin token")
	fs.StringVar(&cfg.Subject, "subject", cfg.Subject, "subject of a minted admin token")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return Config{}, errors.New("command is required: slots, book, status or admin")
	}
	cfg.Command, rest = rest[0], rest[1:]

	switch cfg.Command {
	case CmdSlots, CmdBook, CmdStatus:
	case CmdAdmin:
		if len(rest) == 0 || strings.HasPrefix(rest[0], "-") {
			return Config{}, errors.New("admin action is required: list, set-status, delete or token")
		}
		cfg.Action, rest = rest[0], rest[1:]
		switch cfg.Action {
		case ActionList, ActionSetStatus, ActionDelete, ActionToken:
		default:
			return Config{}, fmt.Errorf("unknown admin action %q", cfg.Action)
		}
	default:
		return Config{}, fmt.Errorf("unknown command %q", cfg.Command)
	}

	if err := fs.Parse(rest); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch {
	case c.Command == CmdBook && c.EventID <= 0:
		return errors.New("book: -schedule is required")
	case c.Command == CmdAdmin && (c.Action == ActionSetStatus || c.Action == ActionDelete) && c.BookingID <= 0:
		return fmt.Errorf("admin %s: -id is required", c.Action)
	case c.Command == CmdAdmin && c.Action == ActionSetStatus && c.Status == "":
		return errors.New("admin set-status: -status is required")
	case c.Interval <= 0:
		return errors.New("interval must be positive")
	case c.MaxFailures <= 0:
		return errors.New("max-failures must be positive")
	}
	return nil
}
