// Package plugin defines the Extractor/Loader contract and the static
// registry that resolves a task's config "type" field to a concrete
// implementation. Extension is compile-time: add a variant and register it.
package plugin

import (
	"context"
	"encoding/json"

	"eltorch/internal/apperrors"
)

// Dataset is a finite, materialized table with a schema, passed between an
// Extractor and a Loader within one task. The transform layer is
// intentionally trivial: loaders accept whatever shape extractors produce.
type Dataset struct {
	Columns []string
	Rows    []map[string]any
}

// Extractor pulls data from an external source into a Dataset.
type Extractor interface {
	Extract(ctx context.Context, config json.RawMessage) (*Dataset, error)
}

// Loader writes a Dataset to an external sink.
type Loader interface {
	Load(ctx context.Context, config json.RawMessage, dataset *Dataset) error
}

// ExtractorFactory builds a fresh Extractor instance per task invocation.
type ExtractorFactory func() Extractor

// LoaderFactory builds a fresh Loader instance per task invocation.
type LoaderFactory func() Loader

// Registry is the static, process-wide mapping from a config's "type"
// discriminant to extractor/loader factories. It is built once at startup
// and is immutable thereafter; read-only access needs no locking.
type Registry struct {
	extractors map[string]ExtractorFactory
	loaders    map[string]LoaderFactory
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]ExtractorFactory),
		loaders:    make(map[string]LoaderFactory),
	}
}

// RegisterExtractor associates a "type" discriminant with a factory.
func (r *Registry) RegisterExtractor(typ string, factory ExtractorFactory) {
	r.extractors[typ] = factory
}

// RegisterLoader associates a "type" discriminant with a factory.
func (r *Registry) RegisterLoader(typ string, factory LoaderFactory) {
	r.loaders[typ] = factory
}

// NewExtractor resolves config's "type" field to a factory and instantiates
// it. Returns UnknownPlugin if the type is unregistered.
func (r *Registry) NewExtractor(config json.RawMessage) (Extractor, error) {
	typ, err := configType(config)
	if err != nil {
		return nil, err
	}
	factory, ok := r.extractors[typ]
	if !ok {
		return nil, UnknownPlugin("extractor_config.type", typ)
	}
	return factory(), nil
}

// NewLoader resolves config's "type" field to a factory and instantiates it.
// Returns UnknownPlugin if the type is unregistered.
func (r *Registry) NewLoader(config json.RawMessage) (Loader, error) {
	typ, err := configType(config)
	if err != nil {
		return nil, err
	}
	factory, ok := r.loaders[typ]
	if !ok {
		return nil, UnknownPlugin("loader_config.type", typ)
	}
	return factory(), nil
}

func configType(config json.RawMessage) (string, error) {
	var discriminant struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(config, &discriminant); err != nil {
		return "", apperrors.Validation("type", "malformed plugin config: "+err.Error())
	}
	if discriminant.Type == "" {
		return "", apperrors.Validation("type", "plugin config missing required \"type\" field")
	}
	return discriminant.Type, nil
}

// UnknownPlugin reports a config "type" with no registered factory, a
// ValidationError per the error taxonomy (non-retryable, fails the task
// immediately).
func UnknownPlugin(field, typ string) error {
	return apperrors.Validation(field, "unknown plugin type \""+typ+"\"")
}
