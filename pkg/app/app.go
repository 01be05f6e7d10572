package app

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/code-payments/stake-disburser/pkg/metrics"
)

// App is a one-shot application whose lifetime is tied to the process.
//
// Init is called once the base configuration, logger and metrics provider are
// set up. Run performs the job and returns when it has completed, failed or
// observed cancellation of ctx. Stop releases resources and is always called,
// even if Init or Run failed.
type App interface {
	Init(config Config, metricsProvider *newrelic.Application) error

	Run(ctx context.Context) error

	Stop()
}

// newRelicFlushTimeout bounds the final harvest on exit, independent of the
// job's shutdown grace period.
const newRelicFlushTimeout = 5 * time.Second

var (
	configPath  = flag.String("config", "config.yaml", "configuration file path")
	envFilePath = flag.String("env-file", "", "optional dotenv file loaded into the environment before any config is read")

	osSigCh = make(chan os.Signal, 1)
)

func init() {
	signal.Notify(osSigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

// Run loads the base configuration, then initializes and runs app. The
// returned error is the first failure observed, and is nil only if app ran
// to completion.
func Run(app App, options ...Option) error {
	flag.Parse()

	logger := logrus.StandardLogger().WithField("type", "app")

	if err := loadEnvFile(*envFilePath); err != nil {
		logger.WithError(err).Error("failed to load env file")
		return err
	}

	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("failed to load config")
		return err
	}

	if len(config.AppName) == 0 {
		logger.Error("must specify an application name")
		return errors.New("application name is required")
	}

	opts := opts{
		signals:             osSigCh,
		shutdownGracePeriod: config.ShutdownGracePeriod,
	}
	for _, o := range options {
		o(&opts)
	}

	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Error("error connecting to new relic")
			return errors.Wrap(err, "error connecting to new relic")
		}

		metricsProvider = nr
		defer nr.Shutdown(newRelicFlushTimeout)
	}

	configureLogger(config, metricsProvider)

	defer app.Stop()

	if err := app.Init(config.AppConfig, metricsProvider); err != nil {
		logger.WithError(err).Error("failed to initialize application")
		return errors.Wrap(err, "failed to initialize application")
	}

	ctx, cancel := context.WithCancel(metrics.NewContext(context.Background(), metricsProvider))
	defer cancel()

	resultCh := make(chan error, 1)
	go func() {
		resultCh <- app.Run(ctx)
	}()

	select {
	case err := <-resultCh:
		return err
	case sig := <-opts.signals:
		logger.WithField("signal", sig.String()).Info("interrupt received, shutting down")
	}

	cancel()

	// The job checks ctx between units of work, so give the current one a
	// chance to finish before giving up on it. A nil result means the job
	// completed all of its work despite the signal.
	select {
	case err := <-resultCh:
		return err
	case <-time.After(opts.shutdownGracePeriod):
		return errors.Errorf("failed to stop the application within %v", opts.shutdownGracePeriod)
	}
}

// loadEnvFile exports the variables in path that aren't already set, so the
// real environment always takes precedence.
func loadEnvFile(path string) error {
	if len(path) == 0 {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "failed to load env file %s", path)
	}
	return nil
}

func loadConfig() (BaseConfig, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if _, err := os.Stat(*configPath); err == nil {
		viper.SetConfigFile(*configPath)
	} else if !os.IsNotExist(err) {
		return BaseConfig{}, errors.Wrap(err, "failed to check if config exists")
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return BaseConfig{}, errors.Wrap(err, "failed to read config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "failed to unmarshal config")
	}
	return config, nil
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	logrus.SetFormatter(metrics.NewLogFormatter(metricsProvider, &logrus.JSONFormatter{}))

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stdout)
}

// ExitCode maps the result of Run to a process exit status.
func ExitCode(err error) int {
	if err != nil {
		return 1
	}
	return 0
}
