// cmd/worker-manager/adapters.go
package main

import (
	"gbif-workers/internal/common/artifact"
	"gbif-workers/internal/common/bionomia"
	"gbif-workers/internal/common/gadm"
	"gbif-workers/internal/common/gbif"
	"gbif-workers/internal/common/genai"
	"gbif-workers/internal/common/logger"
	"gbif-workers/internal/engine"
	"gbif-workers/internal/engine/geo"
	"gbif-workers/internal/engine/names"

	cr "gbif-workers/internal/workers/gbif/count-records"
	fid "gbif-workers/internal/workers/gbif/find-occurrence-by-id"
	fr "gbif-workers/internal/workers/gbif/find-records"
	rp "gbif-workers/internal/workers/gbif/resolve-parameters"
	ti "gbif-workers/internal/workers/gbif/taxonomic-information"
)

// Each package declares its own Logger whose With returns that package's type, so
// the shared logger.Logger is wrapped once per package.

type gbifLoggerAdapter struct {
	logger.Logger
}

func (a *gbifLoggerAdapter) With(fields map[string]interface{}) gbif.Logger {
	return &gbifLoggerAdapter{a.Logger.With(fields)}
}

type gadmLoggerAdapter struct {
	logger.Logger
}

func (a *gadmLoggerAdapter) With(fields map[string]interface{}) gadm.Logger {
	return &gadmLoggerAdapter{a.Logger.With(fields)}
}

type genaiLoggerAdapter struct {
	logger.Logger
}

func (a *genaiLoggerAdapter) With(fields map[string]interface{}) genai.Logger {
	return &genaiLoggerAdapter{a.Logger.With(fields)}
}

type bionomiaLoggerAdapter struct {
	logger.Logger
}

func (a *bionomiaLoggerAdapter) With(fields map[string]interface{}) bionomia.Logger {
	return &bionomiaLoggerAdapter{a.Logger.With(fields)}
}

type artifactLoggerAdapter struct {
	logger.Logger
}

func (a *artifactLoggerAdapter) With(fields map[string]interface{}) artifact.Logger {
	return &artifactLoggerAdapter{a.Logger.With(fields)}
}

type namesLoggerAdapter struct {
	logger.Logger
}

func (a *namesLoggerAdapter) With(fields map[string]interface{}) names.Logger {
	return &namesLoggerAdapter{a.Logger.With(fields)}
}

type geoLoggerAdapter struct {
	logger.Logger
}

func (a *geoLoggerAdapter) With(fields map[string]interface{}) geo.Logger {
	return &geoLoggerAdapter{a.Logger.With(fields)}
}

type engineLoggerAdapter struct {
	logger.Logger
}

func (a *engineLoggerAdapter) With(fields map[string]interface{}) engine.Logger {
	return &engineLoggerAdapter{a.Logger.With(fields)}
}

type resolveParametersLoggerAdapter struct {
	logger.Logger
}

func (a *resolveParametersLoggerAdapter) With(fields map[string]interface{}) rp.Logger {
	return &resolveParametersLoggerAdapter{a.Logger.With(fields)}
}

type findRecordsLoggerAdapter struct {
	logger.Logger
}

func (a *findRecordsLoggerAdapter) With(fields map[string]interface{}) fr.Logger {
	return &findRecordsLoggerAdapter{a.Logger.With(fields)}
}

type countRecordsLoggerAdapter struct {
	logger.Logger
}

func (a *countRecordsLoggerAdapter) With(fields map[string]interface{}) cr.Logger {
	return &countRecordsLoggerAdapter{a.Logger.With(fields)}
}

type findByIDLoggerAdapter struct {
	logger.Logger
}

func (a *findByIDLoggerAdapter) With(fields map[string]interface{}) fid.Logger {
	return &findByIDLoggerAdapter{a.Logger.With(fields)}
}

type taxonomicLoggerAdapter struct {
	logger.Logger
}

func (a *taxonomicLoggerAdapter) With(fields map[string]interface{}) ti.Logger {
	return &taxonomicLoggerAdapter{a.Logger.With(fields)}
}
