package redisrepo

import "fmt"

const ns = "studio:v1"

// KeySchedule is the cached schedule of one service; an empty slug is the
// whole schedule.
func KeySchedule(serviceSlug string) string {
	if serviceSlug == "" {
		return ns + ":schedule:all"
	}
	return fmt.Sprintf("%s:schedule:svc:%s", ns, serviceSlug)
}

// KeyScheduleIndex is the set of cached schedule keys.
func KeyScheduleIndex() string {
	return ns + ":schedule:index"
}

func KeyIdemBooking(scheduleEventID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%d:%s", ns, scheduleEventID, idemKey)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func ChannelScheduleChanged() string {
	return ns + ":schedule:changed"
}
