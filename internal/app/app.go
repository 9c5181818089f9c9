package app

import (
	"context"
	"crypto/rand"
	"fmt"
	stdHTTP "net/http"
	"os"
	"time"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"reservations/internal/application/usecases/booking"
	"reservations/internal/application/usecases/catalog"
	"reservations/internal/application/usecases/waitlist"
	"reservations/internal/config"
	"reservations/internal/infrastructure/risk"
	"reservations/internal/infrastructure/tickets"
	"reservations/internal/interfaces/http"
	messageInterface "reservations/internal/interfaces/message"
	"reservations/internal/interfaces/message/events"
	"reservations/internal/interfaces/message/outbox"
	"reservations/internal/jobs"
	"reservations/internal/observability"
	"reservations/internal/repository"
	"reservations/internal/repository/memory"
)

// Deps are the outside world. DB and RedisClient are only used with
// postgres storage.
type Deps struct {
	WatermillLogger watermill.LoggerAdapter
	Config          config.Config

	Spreadsheets events.SpreadsheetsService
	Receipts     events.ReceiptsService
	Payments     booking.PaymentsProvider

	RedisClient *redis.Client
	DB          *sqlx.DB
}

type App struct {
	logger    zerolog.Logger
	router    *message.Router
	forwarder *outbox.Forwarder
	srv       *http.Server
	sweeper   *jobs.Sweeper
	db        *sqlx.DB
}

type storage struct {
	catalog   catalog.EventsRepo
	ledger    booking.SeatLedger
	bookings  booking.BookingsRepo
	refunds   booking.RefundsRepo
	waitlist  waitlist.Repository
	tx        booking.Transactor
	publisher booking.EventPublisher
	counter   risk.Counter

	eventsSubscribers events.SubscriberFactory
	routerPublisher   message.Publisher
	datalake          events.EventRepository
	forwarder         *outbox.Forwarder
}

func NewApp(deps Deps) (*App, error) {
	cfg := deps.Config
	logger := deps.WatermillLogger

	var (
		st  storage
		err error
	)
	if deps.DB != nil {
		st, err = postgresStorage(deps)
	} else {
		st, err = memoryStorage(logger)
	}
	if err != nil {
		return nil, err
	}

	signingKey, err := ticketSigningKey(cfg.TicketSigningKey)
	if err != nil {
		return nil, err
	}
	signer, err := tickets.NewSigner(signingKey, nil)
	if err != nil {
		return nil, err
	}

	riskConfig := risk.DefaultConfig()
	riskConfig.Window = cfg.RiskWindow
	riskConfig.ReviewAttempts = int64(cfg.RiskReviewAttempts)
	riskConfig.RejectAttempts = int64(cfg.RiskRejectAttempts)

	bookingConfig := booking.DefaultConfig()
	bookingConfig.HoldTTL = cfg.HoldTTL
	bookingConfig.Schedule = cfg.Fees
	bookingConfig.RiskTimeout = cfg.RiskTimeout
	bookingConfig.RiskMaxRetries = cfg.RiskMaxRetries
	bookingConfig.RefundReconcileAfter = cfg.RefundReconcileAfter

	bookingsUsecase := booking.NewUsecase(
		st.ledger,
		st.bookings,
		st.refunds,
		st.tx,
		st.publisher,
		risk.NewVelocityEvaluator(st.counter, riskConfig),
		deps.Payments,
		signer,
		bookingConfig,
	)
	waitlistUsecase := waitlist.NewUsecase(st.waitlist, st.ledger, st.tx, st.publisher, waitlist.Config{
		OfferTTL: cfg.OfferTTL,
	})
	catalogUsecase := catalog.NewUsecase(st.catalog)

	router, err := messageInterface.NewRouter(messageInterface.RouterDeps{
		Logger:               logger,
		EventsSubscribers:    st.eventsSubscribers,
		Publisher:            st.routerPublisher,
		EventHandler:         events.NewHandler(deps.Spreadsheets, deps.Receipts, waitlistUsecase),
		EventProcessorConfig: events.NewEventProcessorConfig(st.eventsSubscribers, logger),
		EventsRepo:           st.datalake,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	srv := http.NewServer(
		commonHTTP.NewEcho(),
		cfg.HTTPAddr,
		catalogUsecase,
		bookingsUsecase,
		waitlistUsecase,
		router.IsRunning,
	)

	sweeper := jobs.NewSweeper(
		jobs.Task{Name: "expire_holds", Interval: cfg.HoldSweepInterval, Run: bookingsUsecase.SweepExpiredHolds},
		jobs.Task{Name: "expire_offers", Interval: cfg.OfferSweepInterval, Run: waitlistUsecase.SweepExpiredOffers},
		jobs.Task{Name: "reconcile_refunds", Interval: cfg.RefundReconcileInterval, Run: bookingsUsecase.ReconcileRefunds},
	)

	return &App{
		logger:    zerolog.New(os.Stdout).With().Timestamp().Str("service", observability.ServiceName).Logger(),
		router:    router,
		forwarder: st.forwarder,
		srv:       srv,
		sweeper:   sweeper,
		db:        deps.DB,
	}, nil
}

func postgresStorage(deps Deps) (storage, error) {
	if deps.RedisClient == nil {
		return storage{}, fmt.Errorf("redis client is required for postgres storage")
	}

	db := deps.DB
	logger := deps.WatermillLogger
	getter := trmsqlx.DefaultCtxGetter
	tx := repository.NewTransactor(db)
	eventsRepo := repository.NewEventsRepository(db, getter)
	bookingsRepo := repository.NewBookingsRepository(db, getter, tx)
	refundsRepo := repository.NewRefundsRepository(db, getter, tx)

	redisPublisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
		Client: deps.RedisClient,
	}, logger)
	if err != nil {
		return storage{}, fmt.Errorf("failed to create redis publisher: %w", err)
	}

	forwarder, err := outbox.NewForwarder(db, redisPublisher, logger)
	if err != nil {
		return storage{}, err
	}

	subscribers := events.RedisSubscribers(deps.RedisClient, logger)

	return storage{
		catalog:   eventsRepo,
		ledger:    eventsRepo,
		bookings:  bookingsRepo,
		refunds:   refundsRepo,
		waitlist:  repository.NewWaitlistRepository(db, getter, tx),
		tx:        tx,
		publisher: outbox.NewEventPublisher(db, getter, logger),
		counter:   risk.NewRedisCounter(deps.RedisClient),

		eventsSubscribers: subscribers,
		routerPublisher:   observability.DecoratePublisher(redisPublisher),
		datalake:          repository.NewDatalakeRepository(db),
		forwarder:         forwarder,
	}, nil
}

// memoryStorage keeps everything in process. Events are delivered over a Go
// channel once the unit that produced them committed; there is no data lake.
func memoryStorage(logger watermill.LoggerAdapter) (storage, error) {
	store := memory.NewStore()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	publisher := observability.DecoratePublisher(pubSub)
	bus, err := events.NewEventBus(publisher, logger)
	if err != nil {
		return storage{}, fmt.Errorf("failed to create event bus: %w", err)
	}

	return storage{
		catalog:   store,
		ledger:    store,
		bookings:  store,
		refunds:   store,
		waitlist:  store,
		tx:        store,
		publisher: store.Outbox(bus),
		counter:   risk.NewMemoryCounter(nil),

		eventsSubscribers: events.SharedSubscriber(pubSub),
		routerPublisher:   publisher,
	}, nil
}

// ticketSigningKey returns key, or a random one that only lives as long as
// the process.
func ticketSigningKey(key string) ([]byte, error) {
	if key != "" {
		return []byte(key), nil
	}

	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("generate ticket signing key: %w", err)
	}
	return random, nil
}

// Handler exposes the HTTP API without a listener.
func (a *App) Handler() stdHTTP.Handler {
	return a.srv.Handler()
}

func (a *App) Running() <-chan struct{} {
	return a.router.Running()
}

func (a *App) Run(ctx context.Context) error {
	if a.db != nil {
		err := repository.InitializeDBSchema(a.db)
		if err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info().Msg("starting router")

		return a.router.Run(ctx)
	})

	if a.forwarder != nil {
		g.Go(func() error {
			a.logger.Info().Msg("starting outbox forwarder")

			return a.forwarder.Run(ctx)
		})
	}

	g.Go(func() error {
		select {
		case <-a.router.Running():
		case <-ctx.Done():
			return nil
		}
		a.logger.Info().Msg("router is running")

		a.logger.Info().Msg("starting sweeper")
		return a.sweeper.Run(ctx)
	})

	g.Go(func() error {
		select {
		case <-a.router.Running():
		case <-ctx.Done():
			return nil
		}

		a.logger.Info().Msg("starting server")
		return a.srv.Start()
	})

	g.Go(func() error {
		// Shut down
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := a.srv.Stop(shutdownCtx)
		if err != nil {
			a.logger.Err(err).Msg("error stopping server")
		}

		return err
	})

	// Will block until all goroutines finish
	err := g.Wait()
	if err != nil {
		a.logger.Err(err).Msg("app stopped with error")
		return err
	}

	a.logger.Info().Msg("app stopped")
	return nil
}
