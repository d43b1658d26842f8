package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// SchedulePubSub fans out schedule changes between service instances.
type SchedulePubSub struct {
	rdb     *redis.Client
	channel string
}

func NewSchedulePubSub(rdb *redis.Client) *SchedulePubSub {
	return &SchedulePubSub{
		rdb:     rdb,
		channel: ChannelScheduleChanged(),
	}
}

// ScheduleChange is the message published when an event's seats or
// attributes change.
type ScheduleChange struct {
	Type            string `json:"type"`
	ScheduleEventID int64  `json:"schedule_event_id"`
	TsUnix          int64  `json:"ts_unix"`
}

func (p *SchedulePubSub) PublishScheduleChanged(ctx context.Context, scheduleEventID int64) error {
	msg := ScheduleChange{
		Type:            "schedule_changed",
		ScheduleEventID: scheduleEventID,
		TsUnix:          time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe blocks delivering changes to handler until ctx is done.
// ready, when non-nil, is closed once the subscription is active.
func (p *SchedulePubSub) Subscribe(
	ctx context.Context,
	ready chan<- struct{},
	handler func(ctx context.Context, msg ScheduleChange),
) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg ScheduleChange
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil &&
				msg.ScheduleEventID != 0 {
				handler(ctx, msg)
			}
		}
	}
}
