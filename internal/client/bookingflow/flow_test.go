package bookingflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atmanstudio/booking/internal/client/api"
)

type fakeSubmitter struct {
	mu    sync.Mutex
	calls int
	res   *api.BookingResult
	err   error

	entered chan struct{}
	release chan struct{}
}

func (f *fakeSubmitter) CreateBooking(context.Context, api.BookingRequest) (*api.BookingResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.entered != nil {
		close(f.entered)
		<-f.release
	}
	return f.res, f.err
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingNavigator struct {
	urls []string
}

func (n *recordingNavigator) Navigate(url string) error {
	n.urls = append(n.urls, url)
	return nil
}

func validForm() Form {
	return Form{
		ScheduleEventID:     4,
		Name:                "Anna",
		Phone:               "+7999",
		Email:               "anna@example.com",
		AcceptPrivacyPolicy: true,
		AcceptPersonalData:  true,
		AcceptTerms:         true,
	}
}

func TestValidationFailsWithoutRequest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		edit  func(*Form)
		field string
	}{
		{name: "no slot", edit: func(f *Form) { f.ScheduleEventID = 0 }, field: "schedule_event_id"},
		{name: "no privacy consent", edit: func(f *Form) { f.AcceptPrivacyPolicy = false }, field: "consent"},
		{name: "no personal data consent", edit: func(f *Form) { f.AcceptPersonalData = false }, field: "consent"},
		{name: "no terms", edit: func(f *Form) { f.AcceptTerms = false }, field: "consent"},
		{name: "blank name", edit: func(f *Form) { f.Name = " " }, field: "name"},
		{name: "blank phone", edit: func(f *Form) { f.Phone = "" }, field: "phone"},
		{name: "blank email", edit: func(f *Form) { f.Email = "" }, field: "email"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sub := &fakeSubmitter{}
			f := validForm()
			tc.edit(&f)

			_, err := New(sub, nil).Submit(context.Background(), f)
			var fe *FieldError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tc.field, fe.Field)
			assert.Zero(t, sub.count())
		})
	}
}

func TestRedirectsToConfirmationURL(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{res: &api.BookingResult{BookingID: 9, Status: "waiting_payment", PaymentID: "p", ConfirmationURL: "https://pay.example/x", Message: "Complete the payment"}}
	nav := &recordingNavigator{}

	out, err := New(sub, nav).Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Equal(t, []string{"https://pay.example/x"}, nav.urls)
	assert.Equal(t, "https://pay.example/x", out.RedirectURL)
	assert.Empty(t, out.Confirmation)
}

func TestLocalConfirmationWithoutURL(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{res: &api.BookingResult{BookingID: 9, Status: "pending"}}
	nav := &recordingNavigator{}

	out, err := New(sub, nav).Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.Empty(t, nav.urls)
	assert.Equal(t, DefaultConfirmation, out.Confirmation)
	assert.Equal(t, 1, sub.count())
}

func TestServerErrorIsReturnedVerbatim(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{err: &api.APIError{StatusCode: 409, Message: "No seats available"}}
	fl := New(sub, nil)

	_, err := fl.Submit(context.Background(), validForm())
	require.Error(t, err)
	assert.Equal(t, "No seats available", api.Message(err))
	assert.False(t, fl.Busy())
	assert.Equal(t, 1, sub.count())
}

func TestSecondSubmitWhileInFlightIsSuppressed(t *testing.T) {
	t.Parallel()

	sub := &fakeSubmitter{
		res:     &api.BookingResult{BookingID: 1, Status: "pending"},
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	fl := New(sub, nil)

	done := make(chan error, 1)
	go func() {
		_, err := fl.Submit(context.Background(), validForm())
		done <- err
	}()

	<-sub.entered
	assert.True(t, fl.Busy())

	_, err := fl.Submit(context.Background(), validForm())
	require.ErrorIs(t, err, ErrInFlight)

	close(sub.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, sub.count())
	assert.False(t, fl.Busy())
}
