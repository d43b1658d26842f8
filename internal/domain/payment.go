package domain

// Provider payment statuses.
const (
	PaymentPending           = "pending"
	PaymentWaitingForCapture = "waiting_for_capture"
	PaymentSucceeded         = "succeeded"
	PaymentCanceled          = "canceled"
	PaymentCancelled         = "cancelled"
	PaymentFailed            = "failed"
)

// DisplayState is what the customer sees on the payment status page.
type DisplayState string

const (
	DisplaySuccess DisplayState = "success"
	DisplayWaiting DisplayState = "waiting"
	DisplayFailed  DisplayState = "failed"
)

// DisplayStateOf maps a provider payment status to a display state. Unknown
// statuses are treated as still in progress.
func DisplayStateOf(paymentStatus string) DisplayState {
	switch paymentStatus {
	case PaymentSucceeded:
		return DisplaySuccess
	case PaymentWaitingForCapture, PaymentPending:
		return DisplayWaiting
	case PaymentCanceled, PaymentCancelled, PaymentFailed:
		return DisplayFailed
	}
	return DisplayWaiting
}

// ParseDisplayState reads the status segment of a return URL.
func ParseDisplayState(segment string) DisplayState {
	switch DisplayState(segment) {
	case DisplaySuccess, DisplayFailed:
		return DisplayState(segment)
	}
	return DisplayWaiting
}

func (d DisplayState) Terminal() bool {
	return d == DisplaySuccess || d == DisplayFailed
}
