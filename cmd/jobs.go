package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-topups/app/worker"
)

var (
	workerMode bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile pending checkouts with SumUp",
	Long:  "Check every pending checkout against SumUp, apply terminal statuses and book paid top-ups.",
	Run: func(_ *cobra.Command, _ []string) {
		runReconcile()
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runReconcile() {
	deps, cleanup := mustCreateCheckoutService()
	defer cleanup()

	loop := worker.NewReconcileLoop(deps.checkoutService, deps.cfg.Jobs.ReconcileInterval)

	if !workerMode {
		_ = loop.RunOnce(context.Background())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loginToGateway(ctx, deps)
	_ = loop.RunOnce(ctx)
	if err := loop.Run(ctx); err != nil {
		logrus.WithError(err).WithField("job", "reconcile").Fatal("Worker failed")
	}
}
