// Package artifacts loads the fitted model documents and builds the scoring
// pipeline from them.
package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"

	"depression-risk-service/internal/scoring"
)

// Artifact document names. They match the files the model was exported to.
const (
	NameModel    = "depression_model"
	NameScaler   = "scaler"
	NameGender   = "le_gender"
	NameSuicidal = "le_suicidal"
	NameFamily   = "le_family"
	NameDietary  = "ordinal_dietary"
	NameSleep    = "ordinal_sleep"
)

// Names lists every artifact in canonical order. The bundle checksum is
// computed over the documents in this order.
var Names = []string{
	NameModel,
	NameScaler,
	NameGender,
	NameSuicidal,
	NameFamily,
	NameDietary,
	NameSleep,
}

// Encoder document kinds.
const (
	EncoderKindLabel   = "label"
	EncoderKindOrdinal = "ordinal"
)

// ModelDocument is the serialised classifier.
type ModelDocument struct {
	Kind         string         `json:"kind"`
	Version      string         `json:"version,omitempty"`
	FeatureNames []string       `json:"feature_names"`
	Coef         []float64      `json:"coef,omitempty"`
	Intercept    *float64       `json:"intercept,omitempty"`
	Trees        []TreeDocument `json:"trees,omitempty"`
}

// TreeDocument is one decision tree in parallel-array form.
type TreeDocument struct {
	ChildrenLeft  []int        `json:"children_left"`
	ChildrenRight []int        `json:"children_right"`
	Feature       []int        `json:"feature"`
	Threshold     []float64    `json:"threshold"`
	Value         [][2]float64 `json:"value"`
}

// ScalerDocument is the serialised standard scaler.
type ScalerDocument struct {
	FeatureNames []string  `json:"feature_names"`
	Mean         []float64 `json:"mean"`
	Scale        []float64 `json:"scale"`
}

// EncoderDocument is a serialised label or ordinal encoder.
type EncoderDocument struct {
	Kind       string   `json:"kind"`
	Field      string   `json:"field"`
	Categories []string `json:"categories"`
}

// encoderSpec pins each encoder artifact to the request field and kind it
// must carry.
type encoderSpec struct {
	name  string
	field string
	kind  string
}

var encoderSpecs = []encoderSpec{
	{NameGender, "gender", EncoderKindLabel},
	{NameSuicidal, "suicidal_thoughts", EncoderKindLabel},
	{NameFamily, "family_mental_health", EncoderKindLabel},
	{NameDietary, "dietary_habits", EncoderKindOrdinal},
	{NameSleep, "sleep_duration", EncoderKindOrdinal},
}

func decodeStrict(raw []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after document")
	}
	return nil
}

// ParseModel decodes and validates the classifier document.
func ParseModel(raw []byte) (scoring.Classifier, *ModelDocument, error) {
	var doc ModelDocument
	if err := decodeStrict(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("decode: %w", err)
	}
	if len(doc.FeatureNames) > 0 {
		if err := checkNames(doc.FeatureNames, scoring.FeatureColumns[:]); err != nil {
			return nil, nil, err
		}
	}

	switch doc.Kind {
	case scoring.KindLogisticRegression:
		if doc.Intercept == nil {
			return nil, nil, fmt.Errorf("logistic regression has no intercept")
		}
		clf, err := scoring.NewLogisticRegression(doc.Coef, *doc.Intercept)
		if err != nil {
			return nil, nil, err
		}
		return clf, &doc, nil
	case scoring.KindRandomForest:
		trees := make([]scoring.DecisionTree, len(doc.Trees))
		for i, t := range doc.Trees {
			trees[i] = scoring.DecisionTree{
				ChildrenLeft:  t.ChildrenLeft,
				ChildrenRight: t.ChildrenRight,
				Feature:       t.Feature,
				Threshold:     t.Threshold,
				Value:         t.Value,
			}
		}
		clf, err := scoring.NewRandomForest(scoring.NumFeatures, trees)
		if err != nil {
			return nil, nil, err
		}
		return clf, &doc, nil
	default:
		return nil, nil, fmt.Errorf("unsupported classifier kind %q", doc.Kind)
	}
}

// ParseScaler decodes the scaler document. Its feature names must equal
// scoring.ScaledColumns in order.
func ParseScaler(raw []byte) (*scoring.StandardScaler, error) {
	var doc ScalerDocument
	if err := decodeStrict(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := checkNames(doc.FeatureNames, scoring.ScaledColumns[:]); err != nil {
		return nil, err
	}
	return scoring.NewStandardScaler(doc.FeatureNames, doc.Mean, doc.Scale)
}

// parseEncoder decodes an encoder document and checks its kind and field.
func parseEncoder(raw []byte, spec encoderSpec) (scoring.CategoryEncoder, error) {
	var doc EncoderDocument
	if err := decodeStrict(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if doc.Field != spec.field {
		return nil, fmt.Errorf("encoder field is %q, want %q", doc.Field, spec.field)
	}
	if doc.Kind != spec.kind {
		return nil, fmt.Errorf("encoder kind is %q, want %q", doc.Kind, spec.kind)
	}
	if doc.Kind == EncoderKindLabel {
		return scoring.NewLabelEncoder(doc.Field, doc.Categories)
	}
	return scoring.NewOrdinalEncoder(doc.Field, doc.Categories)
}

func checkNames(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("expected %d feature names, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("feature %d is %q, want %q", i, got[i], want[i])
		}
	}
	return nil
}
