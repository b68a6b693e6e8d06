// Package app assembles the stores, gates and services from configuration.
// Both the HTTP server and the purge job build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"

	aijobservice "rgpdgate/internal/aijob/service"
	aijobstore "rgpdgate/internal/aijob/store"
	"rgpdgate/internal/alert"
	consentservice "rgpdgate/internal/consent/service"
	consentstore "rgpdgate/internal/consent/store"
	incidentservice "rgpdgate/internal/incident/service"
	incidentstore "rgpdgate/internal/incident/store"
	legalservice "rgpdgate/internal/legal/service"
	legalstore "rgpdgate/internal/legal/store"
	"rgpdgate/internal/platform/config"
	platformkafka "rgpdgate/internal/platform/kafka"
	"rgpdgate/internal/platform/metrics"
	"rgpdgate/internal/platform/postgres"
	platformredis "rgpdgate/internal/platform/redis"
	"rgpdgate/internal/policy"
	reviewservice "rgpdgate/internal/review/service"
	reviewstore "rgpdgate/internal/review/store"
	rgpdservice "rgpdgate/internal/rgpd/service"
	rgpdstore "rgpdgate/internal/rgpd/store"
	suspensionservice "rgpdgate/internal/suspension/service"
	suspensionstore "rgpdgate/internal/suspension/store"
	"rgpdgate/internal/tenancy"
	"rgpdgate/internal/tenant"
	tenantmetrics "rgpdgate/internal/tenant/metrics"
	tenantservice "rgpdgate/internal/tenant/service"
	tenantstore "rgpdgate/internal/tenant/store/tenant"
	httptransport "rgpdgate/internal/transport/http"
	userservice "rgpdgate/internal/user/service"
	userstore "rgpdgate/internal/user/store"
	"rgpdgate/migrations"
	audit "rgpdgate/pkg/platform/audit"
	auditkafka "rgpdgate/pkg/platform/audit/store/kafka"
	auditpostgres "rgpdgate/pkg/platform/audit/store/postgres"
	"rgpdgate/pkg/platform/clock"
)

// ErrBundleStoreRequired is returned by New when no Redis URL is configured.
// Export bundles must be visible to every replica and to the purge job.
var ErrBundleStoreRequired = errors.New("app: redis.url is required for export bundles")

// App holds the wired services and the connections they own.
type App struct {
	Services httptransport.Services
	Policy   *policy.Engine
	Rgpd     *rgpdservice.Service

	pool  *pgxpool.Pool
	redis *platformredis.Client
	kafka *kgo.Client
	nats  *nats.Conn
}

// New connects to the configured backends and builds every service.
// Postgres and Redis are required. Kafka and NATS are optional: without
// them audit stays in Postgres only and alerts go to the log.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, reg prometheus.Registerer) (*App, error) {
	if cfg.Redis.URL == "" {
		return nil, ErrBundleStoreRequired
	}
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.pool = pool
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, migrations.FS, logger); err != nil {
			return nil, err
		}
	}

	sink, anonymizer, err := a.auditSink(ctx, cfg.Kafka, logger)
	if err != nil {
		return nil, err
	}
	bundles, err := a.bundleStore(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	channels, err := a.alertChannels(cfg.NATS, logger)
	if err != nil {
		return nil, err
	}

	sysClock := clock.System{}
	runner := tenancy.NewPostgresRunner(pool,
		tenancy.WithAppRole(cfg.Database.AppRole),
		tenancy.WithObserver(m),
	)
	emitter := audit.NewEmitter(sink,
		audit.WithClock(sysClock),
		audit.WithLogger(logger),
		audit.WithMetrics(m),
	)

	users := userstore.NewPostgres()
	consents := consentstore.NewPostgres()
	jobs := aijobstore.NewPostgres()
	suspensions := suspensionstore.NewPostgres()
	cases := reviewstore.NewPostgres()
	legalDocs := legalstore.NewPostgres()
	trail := auditpostgres.New()

	consentSvc := consentservice.New(consents, runner, emitter,
		consentservice.WithClock(sysClock),
		consentservice.WithLogger(logger),
		consentservice.WithMetrics(m),
	)
	suspensionSvc := suspensionservice.New(users, suspensions, runner, emitter,
		suspensionservice.WithClock(sysClock),
		suspensionservice.WithLogger(logger),
		suspensionservice.WithMetrics(m),
	)
	tenantSvc := tenant.NewService(tenantstore.NewPostgres(), users, runner, emitter,
		tenantservice.WithClock(sysClock),
		tenantservice.WithLogger(logger),
		tenantservice.WithMetrics(tenantmetrics.New(reg)),
	)
	aiSvc := aijobservice.New(jobs, tenantSvc, consentSvc, suspensionSvc, runner, emitter,
		aijobservice.WithClock(sysClock),
		aijobservice.WithLogger(logger),
	)
	a.Rgpd = rgpdservice.New(rgpdservice.Stores{
		Requests:   rgpdstore.NewRequestPostgres(),
		Exports:    rgpdstore.NewExportPostgres(),
		Bundles:    bundles,
		Users:      users,
		Consents:   consents,
		Jobs:       jobs,
		Trail:      trail,
		Actors:     anonymizer,
		Purgeables: []rgpdservice.Purgeable{suspensions, cases, legalDocs},
	}, runner, emitter,
		rgpdservice.WithClock(sysClock),
		rgpdservice.WithLogger(logger),
		rgpdservice.WithMetrics(m),
		rgpdservice.WithPurgeLimits(cfg.Purge.BatchSize, cfg.Purge.Concurrency),
	)
	dispatcher := alert.NewDispatcher(channels,
		alert.WithLogger(logger),
		alert.WithMetrics(m),
	)

	a.Policy = policy.New(policy.WithLogger(logger), policy.WithMetrics(m))
	a.Services = httptransport.Services{
		Consent:    consentSvc,
		Suspension: suspensionSvc,
		AI:         aiSvc,
		Rgpd:       a.Rgpd,
		Review: reviewservice.New(cases, runner, emitter,
			reviewservice.WithClock(sysClock),
			reviewservice.WithLogger(logger),
		),
		Incidents: incidentservice.New(incidentstore.NewPostgres(), runner, emitter, dispatcher,
			incidentservice.WithClock(sysClock),
			incidentservice.WithLogger(logger),
			incidentservice.WithMetrics(m),
			incidentservice.WithUsersNotificationThreshold(cfg.Incident.UsersNotificationThreshold),
		),
		Tenants: tenantSvc,
		Legal: legalservice.New(legalDocs, runner, emitter,
			legalservice.WithClock(sysClock),
			legalservice.WithLogger(logger),
		),
		Users: userservice.New(users, runner,
			userservice.WithClock(sysClock),
			userservice.WithLogger(logger),
		),
	}

	ok = true
	return a, nil
}

// auditSink writes to Postgres inside the caller's transaction and, when
// brokers are configured, mirrors each event to Kafka. The returned
// anonymizer erases a subject from every place the sink wrote to.
func (a *App) auditSink(ctx context.Context, cfg config.KafkaConfig, logger *slog.Logger) (audit.Sink, audit.Anonymizer, error) {
	trail := auditpostgres.New()
	client, err := platformkafka.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return trail, trail, nil
	}
	a.kafka = client
	if err := platformkafka.EnsureTopic(ctx, client, cfg, logger); err != nil {
		return nil, nil, err
	}
	mirror := auditkafka.NewSink(client, cfg.AuditTopic)
	return audit.Fanout(trail, mirror), audit.AnonymizeAll(trail, mirror), nil
}

func (a *App) bundleStore(ctx context.Context, cfg config.RedisConfig) (rgpdservice.BundleStore, error) {
	client, err := platformredis.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	a.redis = client
	return rgpdstore.NewBundleRedis(client.Client), nil
}

// alertChannels publishes to NATS when configured and otherwise raises
// alerts on the structured log.
func (a *App) alertChannels(cfg config.NATSConfig, logger *slog.Logger) ([]alert.Channel, error) {
	conn, err := alert.Connect(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	if conn == nil {
		return []alert.Channel{
			alert.NewLogChannel(alert.ChannelEmail, logger),
			alert.NewLogChannel(alert.ChannelChat, logger),
			alert.NewLogChannel(alert.ChannelPager, logger),
		}, nil
	}
	a.nats = conn
	return alert.Channels(conn, cfg.SubjectPrefix), nil
}

// Health pings the database and Redis.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	if a.pool != nil {
		errs = append(errs, a.pool.Ping(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Health(ctx))
	}
	return errors.Join(errs...)
}

// Close releases every connection opened by New.
func (a *App) Close() {
	if a.nats != nil {
		_ = a.nats.Drain()
	}
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
