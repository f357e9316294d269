// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gbif-workers/internal/common/artifact"
	"gbif-workers/internal/common/bionomia"
	appaws "gbif-workers/internal/common/aws"
	"gbif-workers/internal/common/camunda"
	"gbif-workers/internal/common/config"
	"gbif-workers/internal/common/database"
	"gbif-workers/internal/common/gadm"
	"gbif-workers/internal/common/gbif"
	"gbif-workers/internal/common/genai"
	apphttp "gbif-workers/internal/common/http"
	"gbif-workers/internal/common/logger"
	"gbif-workers/internal/common/observability"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/engine/geo"
	"gbif-workers/internal/engine/names"
	"gbif-workers/internal/engine/schema"

	cr "gbif-workers/internal/workers/gbif/count-records"
	fid "gbif-workers/internal/workers/gbif/find-occurrence-by-id"
	fr "gbif-workers/internal/workers/gbif/find-records"
	rp "gbif-workers/internal/workers/gbif/resolve-parameters"
	ti "gbif-workers/internal/workers/gbif/taxonomic-information"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	zeebe, err := camunda.Connect(ctx, camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      time.Duration(cfg.Camunda.RequestTimeout) * time.Millisecond,
	}, zapLog)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")
	workers := camunda.NewWorkers(zeebe, zapLog)

	// --- GBIF transport, optionally behind the Redis response cache ---
	gbifCfg := cfg.APIs.GBIF
	var executor gbif.Executor = apphttp.NewClient(
		config.GetDuration(gbifCfg.Timeout),
		apphttp.WithMaxRetries(gbifCfg.MaxRetries),
		apphttp.WithHeader("Accept", "application/json"),
	)

	var redis *database.RedisClient
	if gbifCfg.CacheEnabled {
		redis = database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(func() error {
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()

		executor = gbif.NewCachedExecutor(executor, redis.Client, time.Duration(gbifCfg.CacheTTL)*time.Second, &gbifLoggerAdapter{log})
		zapLog.Info("Redis connected successfully, GBIF responses are cached",
			zap.Int("ttl_seconds", gbifCfg.CacheTTL))
	}

	gbifClient := gbif.NewClient(executor, gbif.Config{
		APIBaseURL:         gbifCfg.APIBaseURL,
		V2BaseURL:          gbifCfg.V2BaseURL,
		PortalBaseURL:      gbifCfg.PortalBaseURL,
		PageSize:           gbifCfg.PageSize,
		BackboneDatasetKey: gbifCfg.BackboneDatasetKey,
	}, &gbifLoggerAdapter{log})

	// --- GADM boundaries ---
	var boundaries geo.BoundaryLookup
	var gadmDB *database.SQLiteClient
	if cfg.Database.GADM.Enabled {
		gadmDB, err = database.NewSQLite(cfg.Database.GADM)
		if err != nil {
			zapLog.Fatal("gadm geopackage unavailable", zap.Error(err))
		}
		defer gadmDB.Close()

		boundaries = gadm.NewStore(gadmDB.DB, cfg.Database.GADM.Table, &gadmLoggerAdapter{log})
		zapLog.Info("GADM geopackage opened", zap.String("path", cfg.Database.GADM.Path))
	} else {
		zapLog.Warn("GADM disabled, locations resolve to free text only")
	}

	// --- Resolution engine ---
	registry, err := loadRegistry(cfg.Engine.SchemaRegistryPath)
	if err != nil {
		zapLog.Fatal("schema registry failed to load", zap.Error(err))
	}

	genaiCfg := cfg.APIs.GenAI
	genaiOpts := []apphttp.Option{apphttp.WithMaxRetries(genaiCfg.MaxRetries)}
	if genaiCfg.APIKey != "" {
		genaiOpts = append(genaiOpts, apphttp.WithHeader("Authorization", "Bearer "+genaiCfg.APIKey))
	}
	extractor := genai.NewClient(
		apphttp.NewClient(config.GetDuration(genaiCfg.Timeout), genaiOpts...),
		genai.Config{
			BaseURL: genaiCfg.BaseURL,
			Timeout: config.GetDuration(genaiCfg.Timeout),
		},
		&genaiLoggerAdapter{log},
	)

	pipeline := names.NewPipeline(gbifClient, names.Config{
		LookupTimeout: config.GetDuration(cfg.Engine.LookupTimeout),
	}, &namesLoggerAdapter{log})
	geoResolver := geo.NewResolver(boundaries, &geoLoggerAdapter{log})

	var engineOpts []engine.Option
	if bioCfg := cfg.APIs.Bionomia; bioCfg.Enabled {
		people := bionomia.NewClient(
			apphttp.NewClient(config.GetDuration(bioCfg.Timeout), apphttp.WithMaxRetries(1)),
			bionomia.Config{
				BaseURL:   bioCfg.BaseURL,
				Timeout:   config.GetDuration(bioCfg.Timeout),
				Threshold: bioCfg.Threshold,
			},
			&bionomiaLoggerAdapter{log},
		)
		engineOpts = append(engineOpts, engine.WithPeople(people))
		zapLog.Info("Collector names are normalised with Bionomia", zap.String("url", bioCfg.BaseURL))
	}

	resolver := engine.New(registry, extractor, pipeline, geoResolver, engine.Config{
		MaxAttempts: cfg.Engine.MaxAttempts,
	}, &engineLoggerAdapter{log}, engineOpts...)

	// --- Artifact publishing ---
	var publisher artifact.Publisher = artifact.NewLogPublisher(&artifactLoggerAdapter{log})
	if cfg.Integrations.AWS.SNS.Enabled {
		snsClient, err := appaws.NewSNSClient(ctx, cfg.Integrations.AWS.Region)
		if err != nil {
			zapLog.Fatal("sns client failed", zap.Error(err))
		}
		publisher = artifact.NewSNSPublisher(snsClient, cfg.Integrations.AWS.SNS.ArtifactTopicARN)
		zapLog.Info("Artifacts are published to SNS",
			zap.String("topic", cfg.Integrations.AWS.SNS.ArtifactTopicARN))
	}

	// --- Register workers ---
	workerTimeout := func(taskType string) time.Duration {
		return config.GetDuration(config.GetWorkerConfig(cfg, taskType).Timeout)
	}

	if wcfg := config.GetWorkerConfig(cfg, rp.TaskType); wcfg.Enabled {
		rpCfg := rp.LoadConfig()
		rpCfg.Timeout = workerTimeout(rp.TaskType)
		handler := rp.NewHandler(rpCfg, resolver, obs, &resolveParametersLoggerAdapter{log})
		startWorker(workers, rp.TaskType, wcfg, handler.Handle, zapLog)
	}

	for _, taskType := range []string{fr.TaskTypeOccurrences, fr.TaskTypeSpecies, fr.TaskTypeDatasets} {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			continue
		}
		frCfg := fr.LoadConfig(taskType)
		frCfg.Timeout = workerTimeout(taskType)
		frCfg.MaxRecords = gbifCfg.MaxRecords
		handler, err := fr.NewHandler(fr.HandlerOptions{
			Config:    frCfg,
			Resolver:  resolver,
			Searcher:  gbifClient,
			Publisher: publisher,
			Recorder:  obs,
			Logger:    &findRecordsLoggerAdapter{log},
		})
		if err != nil {
			zapLog.Fatal("failed to create find-records handler", zap.String("taskType", taskType), zap.Error(err))
		}
		startWorker(workers, taskType, wcfg, handler.Handle, zapLog)
	}

	for _, taskType := range []string{cr.TaskTypeOccurrences, cr.TaskTypeSpecies} {
		wcfg := config.GetWorkerConfig(cfg, taskType)
		if !wcfg.Enabled {
			continue
		}
		crCfg := cr.LoadConfig(taskType)
		crCfg.Timeout = workerTimeout(taskType)
		handler, err := cr.NewHandler(cr.HandlerOptions{
			Config:    crCfg,
			Resolver:  resolver,
			Counter:   gbifClient,
			Publisher: publisher,
			Recorder:  obs,
			Logger:    &countRecordsLoggerAdapter{log},
		})
		if err != nil {
			zapLog.Fatal("failed to create count-records handler", zap.String("taskType", taskType), zap.Error(err))
		}
		startWorker(workers, taskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, fid.TaskType); wcfg.Enabled {
		fidCfg := fid.LoadConfig()
		fidCfg.Timeout = workerTimeout(fid.TaskType)
		handler := fid.NewHandler(fidCfg, resolver, gbifClient, publisher, obs, &findByIDLoggerAdapter{log})
		startWorker(workers, fid.TaskType, wcfg, handler.Handle, zapLog)
	}

	if wcfg := config.GetWorkerConfig(cfg, ti.TaskType); wcfg.Enabled {
		tiCfg := ti.LoadConfig()
		tiCfg.Timeout = workerTimeout(ti.TaskType)
		handler := ti.NewHandler(tiCfg, resolver, gbifClient, publisher, obs, &taxonomicLoggerAdapter{log})
		startWorker(workers, ti.TaskType, wcfg, handler.Handle, zapLog)
	}
	zapLog.Info("Workers registered", zap.Int("count", workers.Count()))

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			status, code := "ready", http.StatusOK
			checks := map[string]string{"zeebe": "ok"}
			if err := zeebe.HealthCheck(r.Context()); err != nil {
				checks["zeebe"] = err.Error()
				status, code = "not ready", http.StatusServiceUnavailable
			}
			if redis != nil {
				checks["redis"] = "ok"
				if err := redis.Ping(r.Context()); err != nil {
					checks["redis"] = err.Error()
					status, code = "not ready", http.StatusServiceUnavailable
				}
			}
			if gadmDB != nil {
				checks["gadm"] = "ok"
				if err := gadmDB.Ping(r.Context()); err != nil {
					checks["gadm"] = err.Error()
					status, code = "not ready", http.StatusServiceUnavailable
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": status,
				"checks": checks,
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := http.ListenAndServe(cfg.App.HTTPAddress, nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")

	workers.Close()
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func loadRegistry(path string) (*schema.Registry, error) {
	if path == "" {
		return schema.Default()
	}
	return schema.LoadFile(path)
}

func startWorker(workers *camunda.Workers, taskType string, wcfg config.WorkerConfig, handlerFunc camunda.HandlerFunc, log *zap.Logger) {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	workers.Open(camunda.WorkerOptions{
		TaskType:      taskType,
		MaxJobsActive: wcfg.MaxJobsActive,
		Timeout:       time.Duration(wcfg.Timeout) * time.Millisecond,
	}, handlerFunc)
}
