package main

import (
	"context"
	"os"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/stake-disburser/pkg/app"
	"github.com/code-payments/stake-disburser/pkg/disbursement"
)

type disburseApp struct {
	service disbursement.Service
}

func (a *disburseApp) Init(_ app.Config, _ *newrelic.Application) error {
	sc, err := disbursement.NewSolanaClient(disbursement.WithEnvConfigs())
	if err != nil {
		return err
	}

	a.service, err = disbursement.New(sc, disbursement.WithEnvConfigs())
	return err
}

func (a *disburseApp) Run(ctx context.Context) error {
	_, err := a.service.Disburse(ctx)
	return err
}

func (a *disburseApp) Stop() {
}

func main() {
	err := app.Run(&disburseApp{})
	if err != nil {
		logrus.StandardLogger().WithError(err).Error("disbursement failed")
	}
	os.Exit(app.ExitCode(err))
}
