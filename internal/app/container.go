// Package app wires the use-case services to their infrastructure adapters.
package app

import (
	"context"
	"time"

	"github.com/mendtool/mend/internal/infrastructure/classifier"
	"github.com/mendtool/mend/internal/infrastructure/config"
	"github.com/mendtool/mend/internal/infrastructure/healer"
	"github.com/mendtool/mend/internal/infrastructure/history"
	"github.com/mendtool/mend/internal/infrastructure/runner"
	"github.com/mendtool/mend/internal/infrastructure/toolcache"
	"github.com/mendtool/mend/internal/infrastructure/validator"
	"github.com/mendtool/mend/internal/pkg/logger"
	"github.com/mendtool/mend/internal/ports"
	"github.com/mendtool/mend/internal/services"
)

// Container holds the wired dependency graph.
type Container struct {
	HealService   *services.HealLoopService
	DoctorService *services.DoctorService
	ConfigLoader  *config.FileLoader
	RunRepository ports.RunRepository
	Logger        ports.Logger
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	cfgLoader := config.NewFileLoader("")
	cfg, err := cfgLoader.Load(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.NewStd(verbose)
	prober := toolcache.NewProber()
	shellRunner := runner.NewShellRunner(cfg.Execution.Shell)
	timeout := time.Duration(cfg.Execution.TimeoutSeconds) * time.Second
	runRepo := history.NewSQLiteStore()

	outputClassifier, err := classifier.New(cfg.Classifier.RulesFile)
	if err != nil {
		// fall back to the embedded default rules
		outputClassifier, err = classifier.New("")
		if err != nil {
			return nil, err
		}
	}

	healService := &services.HealLoopService{
		ConfigProvider: cfgLoader,
		HealerFactory:  healer.NewFactory(shellRunner, prober, log, timeout),
		Runner:         shellRunner,
		Classifier:     outputClassifier,
		Validator:      validator.New(shellRunner, prober, timeout),
		Repository:     runRepo,
		Logger:         log,
	}

	doctorService := &services.DoctorService{
		ConfigProvider: cfgLoader,
		Classifier:     outputClassifier,
		Prober:         prober,
		Repository:     runRepo,
	}

	return &Container{
		HealService:   healService,
		DoctorService: doctorService,
		ConfigLoader:  cfgLoader,
		RunRepository: runRepo,
		Logger:        log,
	}, nil
}
