package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	apperrors "depression-risk-service/internal/common/errors"
	"depression-risk-service/internal/common/logger"
	"depression-risk-service/internal/common/metrics"
	"depression-risk-service/internal/scoring"
)

// Metadata describes the bundle a Store was built from.
type Metadata struct {
	Bundle         string    `json:"bundle"`
	Version        string    `json:"version,omitempty"`
	Checksum       string    `json:"checksum"`
	Source         string    `json:"source"`
	ClassifierKind string    `json:"classifierKind"`
	LoadedAt       time.Time `json:"loadedAt"`
}

// Store is the read-only artifact set for the process lifetime.
type Store struct {
	pipeline   *scoring.Pipeline
	meta       Metadata
	vocabulary map[string][]string
}

// Pipeline returns the scoring pipeline built from the artifacts.
func (s *Store) Pipeline() *scoring.Pipeline {
	return s.pipeline
}

func (s *Store) Metadata() Metadata {
	return s.meta
}

// Vocabulary returns the accepted values of each categorical request field,
// in code order.
func (s *Store) Vocabulary() map[string][]string {
	out := make(map[string][]string, len(s.vocabulary))
	for k, v := range s.vocabulary {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// LoadOptions configures Load.
type LoadOptions struct {
	Bundle      string
	Concurrency int
	Logger      logger.Logger
}

// Load fetches and validates every artifact from src. Failures are returned
// as ARTIFACT_LOAD_FAILED StandardErrors; only a fetch failure other than a
// missing document is marked retryable.
func Load(ctx context.Context, src Source, opts LoadOptions) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	start := time.Now()

	docs, err := FetchAll(ctx, src, Names, opts.Concurrency)
	if err != nil {
		name := "bundle"
		var fe *FetchError
		if errors.As(err, &fe) {
			name = fe.Name
		}
		if errors.Is(err, ErrNotFound) {
			return nil, apperrors.NewArtifactLoadError(name, err)
		}
		return nil, apperrors.NewArtifactFetchError(name, err)
	}

	store, err := Build(docs)
	if err != nil {
		return nil, err
	}
	store.meta.Bundle = opts.Bundle
	store.meta.Source = src.Describe()

	log.Info("model artifacts loaded", map[string]interface{}{
		"bundle":     store.meta.Bundle,
		"source":     store.meta.Source,
		"checksum":   store.meta.Checksum,
		"classifier": store.meta.ClassifierKind,
		"durationMs": time.Since(start).Milliseconds(),
	})
	metrics.ArtifactsLoaded.WithLabelValues(store.meta.Bundle, store.meta.Checksum).Set(1)
	return store, nil
}

// Build validates already-fetched documents and assembles the pipeline.
func Build(docs map[string][]byte) (*Store, error) {
	for _, name := range Names {
		if len(docs[name]) == 0 {
			return nil, apperrors.NewArtifactLoadError(name, fmt.Errorf("%w: %s", ErrNotFound, name))
		}
	}

	clf, modelDoc, err := ParseModel(docs[NameModel])
	if err != nil {
		return nil, apperrors.NewArtifactLoadError(NameModel, err)
	}
	scaler, err := ParseScaler(docs[NameScaler])
	if err != nil {
		return nil, apperrors.NewArtifactLoadError(NameScaler, err)
	}

	encoders := make(map[string]scoring.CategoryEncoder, len(encoderSpecs))
	vocabulary := make(map[string][]string, len(encoderSpecs))
	for _, spec := range encoderSpecs {
		enc, err := parseEncoder(docs[spec.name], spec)
		if err != nil {
			return nil, apperrors.NewArtifactLoadError(spec.name, err)
		}
		encoders[spec.name] = enc
		vocabulary[spec.field] = enc.Categories()
	}

	pipeline, err := scoring.NewPipeline(scoring.Artifacts{
		Classifier:         clf,
		Scaler:             scaler,
		Gender:             encoders[NameGender],
		SuicidalThoughts:   encoders[NameSuicidal],
		FamilyMentalHealth: encoders[NameFamily],
		DietaryHabits:      encoders[NameDietary],
		SleepDuration:      encoders[NameSleep],
	})
	if err != nil {
		return nil, apperrors.NewArtifactLoadError("bundle", err)
	}

	return &Store{
		pipeline:   pipeline,
		vocabulary: vocabulary,
		meta: Metadata{
			Version:        modelDoc.Version,
			Checksum:       Checksum(docs),
			ClassifierKind: clf.Kind(),
			LoadedAt:       time.Now().UTC(),
		},
	}, nil
}

// Checksum hashes the documents in canonical order. Each document is
// prefixed with its name and length so boundaries cannot shift.
func Checksum(docs map[string][]byte) string {
	h := sha256.New()
	for _, name := range Names {
		fmt.Fprintf(h, "%s:%d:", name, len(docs[name]))
		h.Write(docs[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}
