package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"depression-risk-service/internal/artifacts"
	"depression-risk-service/internal/common/config"
	"depression-risk-service/internal/common/database"
)

var (
	redisAddrFlag = &cli.StringFlag{
		Name:     "redis-addr",
		Usage:    "Redis address to publish to (host:port)",
		EnvVars:  []string{"REDIS_ADDRESS"},
		Required: true,
	}

	redisPasswordFlag = &cli.StringFlag{
		Name:    "redis-password",
		Usage:   "Redis password (optional)",
		EnvVars: []string{"REDIS_PASSWORD"},
	}

	prefixFlag = &cli.StringFlag{
		Name:  "prefix",
		Usage: "Key prefix, keys are <prefix>:<bundle>:<name>",
		Value: "artifacts",
	}
)

type publishReport struct {
	Bundle   string   `json:"bundle" yaml:"bundle"`
	Checksum string   `json:"checksum" yaml:"checksum"`
	Keys     []string `json:"keys" yaml:"keys"`
}

// publishCmd copies a validated local bundle into Redis and reads it back.
var publishCmd = &cli.Command{
	Name:  "publish",
	Usage: "Validate a local bundle and publish it to Redis",
	Flags: []cli.Flag{
		artifactsFlag,
		bundleFlag,
		redisAddrFlag,
		redisPasswordFlag,
		prefixFlag,
		formatFlag,
	},
	Action: func(c *cli.Context) error {
		ctx := context.Background()

		local, err := loadStore(c)
		if err != nil {
			return cli.Exit(err.Error(), exitFailed)
		}
		docs, err := artifacts.FetchAll(ctx, artifacts.NewDirSource(c.String(artifactsFlag.Name)), artifacts.Names, 1)
		if err != nil {
			return cli.Exit(err.Error(), exitFailed)
		}

		rc, err := database.NewRedis(config.RedisConfig{
			Address:  c.String(redisAddrFlag.Name),
			Password: c.String(redisPasswordFlag.Name),
		})
		if err != nil {
			return cli.Exit(err.Error(), exitFailed)
		}
		defer rc.Close()

		bundle := c.String(bundleFlag.Name)
		src := artifacts.NewRedisSource(rc, c.String(prefixFlag.Name), bundle)

		report := publishReport{Bundle: bundle}
		for _, name := range artifacts.Names {
			key := src.Key(name)
			if err := rc.Set(ctx, key, docs[name], 0); err != nil {
				return cli.Exit(fmt.Sprintf("publishing %s: %v", key, err), exitFailed)
			}
			report.Keys = append(report.Keys, key)
		}

		remote, err := artifacts.Load(ctx, src, artifacts.LoadOptions{
			Bundle:      bundle,
			Concurrency: len(artifacts.Names),
			Logger:      getLogger(c),
		})
		if err != nil {
			return cli.Exit(err.Error(), exitFailed)
		}
		if remote.Metadata().Checksum != local.Metadata().Checksum {
			return cli.Exit("published bundle checksum does not match local bundle", exitFailed)
		}
		report.Checksum = remote.Metadata().Checksum

		return encode(c.App.Writer, c.String(formatFlag.Name), report)
	},
}
