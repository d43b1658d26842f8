package service

import (
	"log/slog"

	"github.com/atmanstudio/booking/internal/payment"
	"github.com/atmanstudio/booking/internal/repository"
	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
	"github.com/atmanstudio/booking/internal/service/admin"
	"github.com/atmanstudio/booking/internal/service/booking"
	"github.com/atmanstudio/booking/internal/service/changes"
	"github.com/atmanstudio/booking/internal/service/ledger"
	"github.com/atmanstudio/booking/internal/service/payments"
)

type Services struct {
	Ledger   *ledger.Service
	Booking  *booking.Service
	Payments *payments.Service
	Admin    *admin.Service
	Changes  *changes.Broadcaster
	Hub      *changes.Hub
}

type Config struct {
	Ledger   ledger.Config
	Payments payments.Config
}

// Deps are the optional collaborators of the services. Nil redis parts
// disable caching, rate limiting and cross-instance change fan-out; a nil
// provider books everything with manual confirmation.
type Deps struct {
	Cache     *redisrepo.Cache
	PubSub    *redisrepo.SchedulePubSub
	Limiter   *redisrepo.Limiter
	Provider  payment.Provider
	Publisher changes.Publisher
	Logger    *slog.Logger
}

func NewServices(store repository.Store, deps Deps, cfg Config) *Services {
	hub := changes.NewHub()
	bc := changes.NewBroadcaster(deps.Cache, deps.PubSub, hub, deps.Publisher, deps.Logger)

	return &Services{
		Ledger:   ledger.New(store, deps.Cache, bc, cfg.Ledger),
		Booking:  booking.New(store, deps.Provider, deps.Limiter, bc, deps.Logger),
		Payments: payments.New(store, deps.Provider, bc, deps.Logger, cfg.Payments),
		Admin:    admin.New(store, bc),
		Changes:  bc,
		Hub:      hub,
	}
}
