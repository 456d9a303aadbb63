package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/dailylove/internal/bot"
	"github.com/example/dailylove/internal/daily"
	"github.com/example/dailylove/internal/progress"
	"github.com/example/dailylove/internal/scheduler"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	catalog, err := a.catalog()
	if err != nil {
		return err
	}
	if _, err := catalog.Track(a.cfg.DefaultTrack); err != nil {
		return err
	}
	selector, err := a.selector()
	if err != nil {
		return err
	}

	store, err := openStorage(a.cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	service, err := daily.NewService(daily.ServiceConfig{
		Catalog:         catalog,
		Tracker:         progress.NewTracker(store.progress, a.log),
		Selector:        selector,
		Personalization: store.personalization,
		Completions:     store.completions,
		Logger:          a.log,
	})
	if err != nil {
		return err
	}

	api, err := bot.NewAPI(a.cfg.TelegramToken)
	if err != nil {
		return err
	}
	a.log.Info("authorized on account", "username", api.Self.UserName)

	botCfg := bot.DefaultConfig()
	botCfg.DefaultTrack = a.cfg.DefaultTrack
	botCfg.Location = a.cfg.Location()
	botCfg.AdminUserIDs = a.cfg.AdminUserIDs
	b, err := bot.New(api, bot.Deps{
		Service:         service,
		Subscribers:     store.subscribers,
		Personalization: store.personalization,
		Counter:         store.counter,
	}, botCfg, a.log)
	if err != nil {
		return err
	}

	if a.cfg.EnableScheduler {
		sched := scheduler.New(store.subscribers, service, b, scheduler.Options{
			StartHour: a.cfg.NotificationStartHour,
			EndHour:   a.cfg.NotificationEndHour,
			Location:  a.cfg.Location(),
		}, a.log)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	a.log.Info("bot started, press Ctrl+C to stop")
	err = b.Start(ctx)
	if errors.Is(err, context.Canceled) {
		a.log.Info("bot stopped")
		return nil
	}
	return err
}
