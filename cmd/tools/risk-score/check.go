package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"depression-risk-service/internal/scoring"
)

type checkReport struct {
	Bundle         string              `json:"bundle" yaml:"bundle"`
	Version        string              `json:"version,omitempty" yaml:"version,omitempty"`
	Checksum       string              `json:"checksum" yaml:"checksum"`
	Source         string              `json:"source" yaml:"source"`
	ClassifierKind string              `json:"classifierKind" yaml:"classifierKind"`
	LoadedAt       time.Time           `json:"loadedAt" yaml:"loadedAt"`
	FeatureColumns []string            `json:"featureColumns" yaml:"featureColumns"`
	Vocabulary     map[string][]string `json:"vocabulary" yaml:"vocabulary"`
}

var checkCmd = &cli.Command{
	Name:  "check",
	Usage: "Load and validate an artifact bundle, then print its metadata",
	Flags: []cli.Flag{
		artifactsFlag,
		bundleFlag,
		formatFlag,
	},
	Action: func(c *cli.Context) error {
		store, err := loadStore(c)
		if err != nil {
			return cli.Exit(err.Error(), exitFailed)
		}

		meta := store.Metadata()
		return encode(c.App.Writer, c.String(formatFlag.Name), checkReport{
			Bundle:         meta.Bundle,
			Version:        meta.Version,
			Checksum:       meta.Checksum,
			Source:         meta.Source,
			ClassifierKind: meta.ClassifierKind,
			LoadedAt:       meta.LoadedAt,
			FeatureColumns: scoring.FeatureColumns[:],
			Vocabulary:     store.Vocabulary(),
		})
	},
}
