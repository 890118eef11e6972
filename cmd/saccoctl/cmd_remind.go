package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"sacco/internal/amqp"
	"sacco/internal/core"
	"sacco/internal/services"
)

var (
	remindYear    int
	remindMonth   int
	remindMessage string
	remindQueue   bool
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send dues reminders for a month",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		req := core.ReminderRequest{Year: remindYear, Month: remindMonth, Message: remindMessage}
		if req.Year == 0 {
			req.Year = now.Year()
		}
		if req.Month == 0 {
			req.Month = int(now.Month())
		}
		if err := req.Validate(); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			var publisher services.ReminderPublisher
			if remindQueue && a.cfg.AMQPEnabled() {
				client, err := amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
				if err != nil {
					return err
				}
				defer client.Close()
				publisher = client
			}
			out, err := services.NewReminderService(publisher, a.backend, a.logger).Send(ctx, req)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), out)
		})
	},
}

func init() {
	f := remindCmd.Flags()
	f.IntVar(&remindYear, "year", 0, "year (default current)")
	f.IntVar(&remindMonth, "month", 0, "month 1-12 (default current)")
	f.StringVarP(&remindMessage, "message", "m", "", "reminder text sent to members")
	f.BoolVar(&remindQueue, "queue", false, "queue the job for sacco-worker when AMQP is configured")
	_ = remindCmd.MarkFlagRequired("message")
}
