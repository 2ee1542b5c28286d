// cmd/tools/risk-score/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"depression-risk-service/internal/artifacts"
	"depression-risk-service/internal/common/logger"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"

	loggerKey = "logger"
)

var (
	version = "v0.0.1-default"
	commit  = ""

	debugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Prints verbose logs (optional, default: false)",
	}

	artifactsFlag = &cli.StringFlag{
		Name:  "artifacts",
		Usage: "Directory holding the seven artifact documents",
		Value: "models",
	}

	bundleFlag = &cli.StringFlag{
		Name:  "bundle",
		Usage: "Bundle name reported in metadata",
		Value: "default",
	}

	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Output format [json, yaml]",
		Value: formatJSON,
	}
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:            "risk-score",
		Version:         fmt.Sprintf("%s (commit: %s)", version, commit),
		Compiled:        time.Now(),
		HideHelpCommand: true,
		Usage:           "Offline scoring against a local artifact bundle",
		Flags: []cli.Flag{
			debugFlag,
		},
		Commands: []*cli.Command{
			predictCmd,
			checkCmd,
			publishCmd,
		},
		Before: func(c *cli.Context) error {
			log := logger.NewNoOpLogger()
			if c.Bool(debugFlag.Name) {
				log = logger.NewStructured("debug", "console")
			}
			c.App.Metadata = map[string]interface{}{loggerKey: log}
			return nil
		},
	}
}

func getLogger(c *cli.Context) logger.Logger {
	if log, ok := c.App.Metadata[loggerKey].(logger.Logger); ok {
		return log
	}
	return logger.NewNoOpLogger()
}

func loadStore(c *cli.Context) (*artifacts.Store, error) {
	return artifacts.Load(context.Background(),
		artifacts.NewDirSource(c.String(artifactsFlag.Name)),
		artifacts.LoadOptions{
			Bundle: c.String(bundleFlag.Name),
			Logger: getLogger(c),
		})
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case formatYAML, "yml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	case formatJSON:
		e := json.NewEncoder(w)
		e.SetIndent("", "  ")
		return e.Encode(v)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}
