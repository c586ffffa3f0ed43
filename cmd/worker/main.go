package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/yukyudata/deployops/internal/activity"
	"github.com/yukyudata/deployops/internal/backup"
	"github.com/yukyudata/deployops/internal/config"
	"github.com/yukyudata/deployops/internal/db"
	"github.com/yukyudata/deployops/internal/deployer"
	"github.com/yukyudata/deployops/internal/health"
	"github.com/yukyudata/deployops/internal/logging"
	"github.com/yukyudata/deployops/internal/metrics"
	"github.com/yukyudata/deployops/internal/metricsource"
	"github.com/yukyudata/deployops/internal/notify"
	"github.com/yukyudata/deployops/internal/slot"
	"github.com/yukyudata/deployops/internal/store"
	"github.com/yukyudata/deployops/internal/traffic"
	"github.com/yukyudata/deployops/internal/workflow"
)

const taskQueue = "deployops-tasks"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	corePool, err := db.NewCorePool(ctx, cfg.CoreDatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to core database")
	}
	defer corePool.Close()
	metrics.RegisterPgxPoolMetrics(corePool)

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, taskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorTypingInterceptor{}},
	})

	dockerDeployer := deployer.NewDockerDeployer(cfg.DockerHost)
	backupStore := backup.NewStore(cfg.DBBackupPath, cfg.AppDatabasePath)
	offsite := backup.NewOffsite(logger, cfg.BackupS3Bucket, cfg.BackupS3Endpoint,
		cfg.BackupS3Region, cfg.BackupS3AccessKey, cfg.BackupS3SecretKey)
	checker := health.NewChecker(10 * time.Second)
	metricsSource := metricsource.NewHTTPSource("http://"+cfg.AppHost, 10*time.Second)
	slotStore := slot.NewFileStore(cfg.SlotStatePath)
	router := traffic.NewUpstreamRouter(cfg.UpstreamConfDir, cfg.ProxyContainer, dockerDeployer)

	// Register activities
	w.RegisterActivity(activity.NewRecord(store.NewDeploymentStore(corePool)))
	w.RegisterActivity(activity.NewDeploy(dockerDeployer))
	w.RegisterActivity(activity.NewBackup(backupStore, offsite))
	w.RegisterActivity(activity.NewHealth(checker, metricsSource))
	w.RegisterActivity(activity.NewSmoke(logger))
	w.RegisterActivity(activity.NewSlot(slotStore))
	w.RegisterActivity(activity.NewTraffic(router))
	w.RegisterActivity(activity.NewNotify(notify.NewNotifier(cfg.SlackWebhookURL)))
	w.RegisterActivity(activity.NewMigrate(dockerDeployer))
	w.RegisterActivity(activity.NewPreflight(dockerDeployer, cfg.DBBackupPath, cfg.AppDatabasePath, cfg.ProxyContainer))

	// Register workflows
	w.RegisterWorkflow(workflow.DeployWorkflow)
	w.RegisterWorkflow(workflow.CanaryDeployWorkflow)
	w.RegisterWorkflow(workflow.RollbackWorkflow)
	w.RegisterWorkflow(workflow.CleanupOldBackupsWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", taskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	// Register cron schedules. Errors for already-existing schedules are
	// ignored so that re-deploys do not fail.
	registerCronSchedules(ctx, tc, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

type cronSchedule struct {
	id       string
	cron     string
	workflow interface{}
	args     []interface{}
}

func registerCronSchedules(ctx context.Context, tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) {
	schedules := []cronSchedule{
		{
			id:       "backup-retention-cron",
			cron:     "0 5 * * *",
			workflow: workflow.CleanupOldBackupsWorkflow,
			args:     []interface{}{cfg.BackupRetentionDays},
		},
	}

	scheduleClient := tc.ScheduleClient()

	for _, s := range schedules {
		_, err := scheduleClient.Create(ctx, temporalclient.ScheduleOptions{
			ID: s.id,
			Spec: temporalclient.ScheduleSpec{
				CronExpressions: []string{s.cron},
			},
			Action: &temporalclient.ScheduleWorkflowAction{
				ID:        s.id,
				Workflow:  s.workflow,
				Args:      s.args,
				TaskQueue: taskQueue,
			},
		})
		if err != nil {
			if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") || strings.Contains(err.Error(), "already registered") {
				logger.Info().Str("id", s.id).Msg("cron schedule already exists, skipping")
			} else {
				logger.Fatal().Err(err).Str("id", s.id).Msg("failed to create cron schedule")
			}
		} else {
			logger.Info().Str("id", s.id).Str("cron", s.cron).Msg("created cron schedule")
		}
	}
}
