package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/config"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/cache"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/database"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/service"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var aggregateHour int

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background aggregation worker",
	Long: `Start the background worker that recomputes daily and weekly
statistics for every device and space each night. Results are upserted, so
a rerun after a crash replaces rather than duplicates records.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().IntVar(&aggregateHour, "aggregate-hour", 0, "UTC hour to run the nightly aggregation")
}

func runWorker(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Create an error group to manage goroutines
	g, ctx := errgroup.WithContext(ctx)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Failed to connect to Redis, continuing without caching")
	} else {
		defer redisClient.Close()
	}

	repo := repository.NewRepository(db)
	statsSvc := service.NewStatisticsService(repo, cfg.Power.Ratings, log)

	g.Go(func() error {
		log.Infof("Starting nightly aggregation scheduler (hour %02d:10 UTC)", aggregateHour)

		scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(
				gocron.NewAtTime(uint(aggregateHour), 10, 0),
			)),
			gocron.NewTask(func() {
				aggregateYesterday(ctx, repo, statsSvc)
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()

		// Wait for context cancellation
		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Error("Worker error")
		return err
	}

	log.Info("Worker shutting down gracefully")
	return nil
}

// aggregateYesterday recomputes yesterday's statistics for every device and
// every space with devices. Subjects without data are skipped, any other
// failure is logged and the sweep continues.
func aggregateYesterday(ctx context.Context, repo repository.Repository, stats service.StatisticsService) {
	date := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	log.Infof("Running nightly aggregation for %s", date)

	devices, err := repo.ListDevices(ctx, 0)
	if err != nil {
		log.WithError(err).Error("Nightly aggregation: failed to list devices")
		return
	}

	spaceIDs := make(map[uint]struct{})
	for _, device := range devices {
		if device.SpaceID != nil {
			spaceIDs[*device.SpaceID] = struct{}{}
		}

		if _, err := stats.DailySensorAverage(ctx, device.ID, date); err != nil && !skippable(err) {
			log.WithError(err).Warnf("Nightly aggregation: sensor stats failed for device %s", device.UID)
		}
		if _, err := stats.WeeklySensorAverage(ctx, device.ID, date); err != nil && !skippable(err) {
			log.WithError(err).Warnf("Nightly aggregation: weekly sensor stats failed for device %s", device.UID)
		}
		if _, err := stats.DailyPowerUsage(ctx, device.ID, date); err != nil && !skippable(err) {
			log.WithError(err).Warnf("Nightly aggregation: power stats failed for device %s", device.UID)
		}
		if _, err := stats.WeeklyPowerUsage(ctx, device.ID, date); err != nil && !skippable(err) {
			log.WithError(err).Warnf("Nightly aggregation: weekly power stats failed for device %s", device.UID)
		}
	}

	for spaceID := range spaceIDs {
		if _, err := stats.SpaceDailySensorAverage(ctx, spaceID, date); err != nil && !skippable(err) {
			log.WithError(err).Warnf("Nightly aggregation: sensor stats failed for space %d", spaceID)
		}
		if _, err := stats.SpaceDailyPowerUsage(ctx, spaceID, date); err != nil && !skippable(err) {
			log.WithError(err).Warnf("Nightly aggregation: power stats failed for space %d", spaceID)
		}
	}

	log.Infof("Nightly aggregation for %s complete", date)
}

// skippable reports errors that are expected for idle or unrated subjects
func skippable(err error) bool {
	return errors.Is(err, service.ErrNoData) || errors.Is(err, service.ErrNoPowerRating)
}
