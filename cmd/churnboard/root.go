package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/spektr-org/churnboard/config"
	"github.com/spektr-org/churnboard/features"
	"github.com/spektr-org/churnboard/logging"
	"github.com/spektr-org/churnboard/model"
	"github.com/spektr-org/churnboard/predict"
	"github.com/spektr-org/churnboard/records"
)

// ============================================================================
// CHURNBOARD CLI — Attrition dashboard server and offline tools
// ============================================================================

const version = "0.1.0"

// env is the state shared by every subcommand once the root has run.
type env struct {
	configPath string
	cfg        config.Config
	log        *logrus.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	cmd := &cobra.Command{
		Use:          "churnboard",
		Short:        "Employee attrition dashboard",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init()
		},
	}
	cmd.PersistentFlags().StringVar(&e.configPath, "config", "", "YAML config file (default $CONFIG_PATH or config.yaml)")

	cmd.AddCommand(
		newServeCmd(e),
		newPredictCmd(e),
		newExportCmd(e),
		newOverviewCmd(e),
		newSeedCmd(e),
	)
	return cmd
}

func (e *env) init() error {
	var err error
	if e.configPath != "" {
		e.cfg, err = config.LoadFrom(e.configPath, true, ".env")
	} else {
		e.cfg, err = config.Load()
	}
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	e.log, err = logging.New(e.cfg.Log.Level, e.cfg.Log.Format)
	return err
}

// predictor loads the scaler and classifier artifacts.
func (e *env) predictor() (*predict.Predictor, error) {
	scaler, err := features.LoadScaler(e.cfg.Model.Scaler)
	if err != nil {
		return nil, errors.Wrap(err, "load scaler")
	}
	classifier, err := model.Load(e.cfg.Model.Classifier, features.FeatureNames,
		model.WithTimeout(e.cfg.Model.RemoteTimeout))
	if err != nil {
		return nil, errors.Wrap(err, "load classifier")
	}
	e.log.WithFields(logrus.Fields{
		"scaler":     e.cfg.Model.Scaler,
		"classifier": e.cfg.Model.Classifier,
	}).Info("🧠 model artifacts loaded")
	return predict.New(scaler, classifier, e.log), nil
}

// store opens the base tables, deriving predictions when needed.
func (e *env) store(ctx context.Context) (*records.Store, *predict.Predictor, error) {
	p, err := e.predictor()
	if err != nil {
		return nil, nil, err
	}
	s, err := records.Open(ctx, e.cfg.Data.Options(), p, e.log)
	if err != nil {
		return nil, nil, err
	}
	return s, p, nil
}
