package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bsm/redislock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"agrigate/internal/audit"
	"agrigate/internal/compliance"
	"agrigate/internal/notice"
	"agrigate/internal/payment"
	"agrigate/internal/platform/config"
	"agrigate/internal/platform/httpserver"
	"agrigate/internal/platform/logger"
	platformpg "agrigate/internal/platform/postgres"
	platformredis "agrigate/internal/platform/redis"
	"agrigate/internal/queue"
	"agrigate/internal/storage"
	storagepg "agrigate/internal/storage/postgres"
	httptransport "agrigate/internal/transport/http"
	"agrigate/internal/worker"
	workermetrics "agrigate/internal/worker/metrics"
)

// main wires high-level dependencies and keeps the process lifecycle small.
// Business logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	pool, err := platformpg.New(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close()
	}

	rdb, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var (
		programs   storage.ProgramStore
		farms      storage.FarmStore
		logs       storage.ComplianceStore
		payments   storage.PaymentStore
		notices    storage.NoticeStore
		auditStore storage.AuditStore
	)
	if pool != nil {
		programs = storagepg.NewProgramStore(pool)
		farms = storagepg.NewFarmStore(pool)
		logs = storagepg.NewComplianceStore(pool)
		payments = storagepg.NewPaymentStore(pool)
		notices = storagepg.NewNoticeStore(pool)
		auditStore = storagepg.NewAuditStore(pool)
		log.Info("using postgres stores")
	} else {
		memPrograms := storage.NewInMemoryProgramStore()
		memFarms := storage.NewInMemoryFarmStore()
		memLogs := storage.NewInMemoryComplianceStore()
		memPayments := storage.NewInMemoryPaymentStore()
		farm, seeded := storage.SeedSampleData(memPrograms, memFarms, memLogs, memPayments)
		programs, farms, logs, payments = memPrograms, memFarms, memLogs, memPayments
		notices = storage.NewInMemoryNoticeStore()
		auditStore = storage.NewInMemoryAuditStore()
		log.Info("using memory stores with sample data", "farm_id", farm.ID, "programs", len(seeded))
	}

	policy := queue.Policy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		MaxDelay:    cfg.MaxDelay,
		Visibility:  cfg.Visibility,
	}
	var q queue.Queue
	if rdb != nil {
		q = queue.NewRedisQueue(rdb.Client, policy)
		log.Info("using redis queue")
	} else {
		q = queue.NewInMemoryQueue(policy)
		log.Info("using memory queue")
	}

	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		sink, err := audit.NewKafkaSink(cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			return err
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink))
		log.Info("audit kafka sink enabled", "topic", cfg.AuditTopic)
	}
	auditor := audit.NewService(auditStore, auditOpts...)

	noticeSvc, err := notice.NewService(programs, notices, notice.NewJSONInterpreter(), auditor,
		notice.WithLogger(log), notice.WithMaxAttempts(policy.MaxAttempts))
	if err != nil {
		return err
	}

	complianceOpts := []compliance.Option{compliance.WithLogger(log)}
	if rdb != nil {
		complianceOpts = append(complianceOpts, compliance.WithLocker(redislock.New(rdb.Client)))
	}
	complianceSvc, err := compliance.NewService(farms, logs, compliance.NewSimulatedAnalyzer(farms), auditor, complianceOpts...)
	if err != nil {
		return err
	}

	paymentSvc, err := payment.NewService(payments, auditor, payment.WithLogger(log))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	workers, err := worker.New(q,
		worker.WithWorkers(cfg.WorkersPerTopic),
		worker.WithVisibility(policy.Visibility),
		worker.WithLogger(log),
		worker.WithMetrics(workermetrics.New(registry)),
	)
	if err != nil {
		return err
	}
	workers.Handle(queue.TopicNoticeProcessing, noticeSvc.HandleJob)
	workers.Handle(queue.TopicComplianceCheck, complianceSvc.HandleJob)
	workers.Handle(queue.TopicPaymentProcessing, paymentSvc.HandleJob)

	deps := map[string]httptransport.Pinger{}
	if rdb != nil {
		deps["redis"] = httptransport.PingerFunc(rdb.Health)
	}
	if pool != nil {
		deps["postgres"] = httptransport.PingerFunc(pool.Ping)
	}
	srv := httpserver.New(cfg.OpsAddr, httptransport.NewRouter(registry, deps))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("worker pool starting", "workers_per_topic", cfg.WorkersPerTopic)
		return workers.Run(ctx)
	})
	g.Go(func() error {
		log.Info("ops server listening", "addr", cfg.OpsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return httpserver.Shutdown(srv)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("worker stopped")
	return nil
}
