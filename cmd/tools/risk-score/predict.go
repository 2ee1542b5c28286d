package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	apperrors "depression-risk-service/internal/common/errors"
	"depression-risk-service/internal/common/metrics"
	"depression-risk-service/internal/common/validation"
	"depression-risk-service/internal/scoring"
)

// Exit codes for predict.
const (
	exitRejected = 2
	exitFailed   = 1
)

var inputFlag = &cli.StringFlag{
	Name:     "input",
	Usage:    "Request document (.json, .yaml or - for stdin JSON)",
	Required: true,
}

var predictCmd = &cli.Command{
	Name:  "predict",
	Usage: "Score one request document",
	Flags: []cli.Flag{
		artifactsFlag,
		bundleFlag,
		inputFlag,
		formatFlag,
	},
	Action: runPredict,
}

func runPredict(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}

	doc, err := readDocument(c.String(inputFlag.Name), c.App.Reader)
	if err != nil {
		return rejected(err)
	}

	validator, err := validation.NewAssessmentValidator()
	if err != nil {
		return cli.Exit(err.Error(), exitFailed)
	}
	in, err := validator.DecodeAssessment(doc)
	if err != nil {
		return rejected(err)
	}

	result, err := store.Pipeline().Score(*in)
	if err != nil {
		return rejected(scoring.ToStandardError(err))
	}
	metrics.PredictionsTotal.WithLabelValues(result.RiskLevel, metrics.TransportCLI).Inc()

	return encode(c.App.Writer, c.String(formatFlag.Name), result)
}

// readDocument loads a request from a file, choosing the decoder by
// extension. "-" reads JSON from in.
func readDocument(path string, in io.Reader) (map[string]interface{}, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(in)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, apperrors.NewValidationError([]apperrors.FieldError{{
				Field:   "(root)",
				Message: fmt.Sprintf("malformed YAML: %v", err),
				Code:    "MALFORMED_YAML",
			}})
		}
		return doc, nil
	default:
		return validation.DecodeJSON(raw)
	}
}

func rejected(err error) error {
	se := apperrors.Normalize(err)
	code := exitFailed
	if apperrors.IsClientError(se.Code) {
		code = exitRejected
	}
	return cli.Exit(fmt.Sprintf("%s: %s", se.Code, se.Details), code)
}
