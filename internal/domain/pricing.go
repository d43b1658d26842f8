package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

// Money is an amount in minor currency units (kopecks).
type Money int64

// ParseMoney parses a decimal amount such as "2500", "2500.5" or "2500.50".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" || len(frac) > 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return Money(w*100 + f), nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d", int64(m)/100, int64(m)%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts both JSON numbers and numeric strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}

	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

type PriceEntry struct {
	Price *Money `json:"price,omitempty"`
}

type GroupPrice struct {
	PricePerPerson *Money `json:"price_per_person,omitempty"`
}

// Pricing is the pricing block of a service. Unknown keys are ignored.
type Pricing struct {
	Group      *GroupPrice `json:"group,omitempty"`
	Individual *PriceEntry `json:"individual,omitempty"`
	Fixed      *PriceEntry `json:"fixed,omitempty"`
}

// PriceFor resolves the price of one seat at the event. ok is false when the
// service has no positive price for that kind of event.
func (p Pricing) PriceFor(e ScheduleEvent) (Money, bool) {
	var v *Money
	if e.IsIndividual {
		if p.Individual != nil {
			v = p.Individual.Price
		}
	} else if p.Group != nil {
		v = p.Group.PricePerPerson
	}

	if v == nil && p.Fixed != nil {
		v = p.Fixed.Price
	}

	if v == nil || *v <= 0 {
		return 0, false
	}

	return *v, true
}
