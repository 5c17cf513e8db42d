package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rushteam/churnkit/artifact"
	"github.com/rushteam/churnkit/core"
	"github.com/rushteam/churnkit/pipeline"
	"github.com/rushteam/churnkit/pkg/logging"
	"github.com/rushteam/churnkit/server"
	"github.com/rushteam/churnkit/store"

	// Register model builders.
	_ "github.com/rushteam/churnkit/config/builders"
)

const usage = `usage: churnkit <command> [flags]

commands:
  predict   run a single prediction and print the result
  serve     start the HTTP prediction server
  publish   copy an artifact directory into redis
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "predict":
		err = runPredict(ctx, os.Args[2:], os.Stdin, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error during prediction: %v\n", err)
			os.Exit(1)
		}
		return
	case "serve":
		err = runServe(ctx, os.Args[2:])
	case "publish":
		err = runPublish(ctx, os.Args[2:])
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "churnkit: %v\n", err)
		os.Exit(1)
	}
}

func loadPredictor(ctx context.Context, path string) (*pipeline.Predictor, *pipeline.Config, *zap.Logger, error) {
	cfg, err := pipeline.LoadConfig(path)
	if err != nil {
		return nil, nil, nil, err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, err
	}
	pred, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return pred, cfg, logger, nil
}

func runPredict(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	configPath := fs.String("config", "configs/churnkit.yaml", "config file (yaml or json)")
	task := fs.String("task", pipeline.NameChurn, "pipeline name: churn or salary")
	recordArg := fs.String("record", "", "record as JSON; '-' or empty reads stdin")
	entityID := fs.String("id", "", "customer id to fetch from the record source instead of -record")
	asJSON := fs.Bool("json", false, "print the full prediction as JSON")
	timeout := fs.Duration("timeout", 10*time.Second, "prediction timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pred, _, logger, err := loadPredictor(ctx, *configPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = pred.Close()
		_ = logger.Sync()
	}()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	var result *core.Prediction
	if *entityID != "" {
		result, err = pred.PredictEntity(ctx, *task, *entityID)
	} else {
		var record core.RawRecord
		record, err = readRecord(*recordArg, stdin)
		if err != nil {
			return err
		}
		result, err = pred.Predict(ctx, *task, record)
	}
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	_, err = fmt.Fprintln(stdout, result.Summary())
	return err
}

// readRecord 解析命令行或标准输入中的 JSON 记录，数字保留为 json.Number
func readRecord(arg string, stdin io.Reader) (core.RawRecord, error) {
	var r io.Reader = strings.NewReader(arg)
	if arg == "" || arg == "-" {
		r = stdin
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var record core.RawRecord
	if err := dec.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("no record given")
		}
		return nil, fmt.Errorf("parse record: %w", err)
	}
	return record, nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "configs/churnkit.yaml", "config file (yaml or json)")
	addr := fs.String("addr", "", "listen address, overrides server.addr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pred, cfg, logger, err := loadPredictor(ctx, *configPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = pred.Close()
		_ = logger.Sync()
	}()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	return server.New(pred, cfg.Server, logger).Run(ctx)
}

func runPublish(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ContinueOnError)
	from := fs.String("from", "", "local artifact directory")
	prefix := fs.String("prefix", "", "redis key prefix, e.g. churn/2024.06")
	addr := fs.String("redis", "localhost:6379", "redis address")
	password := fs.String("redis-password", os.Getenv("REDIS_PASSWORD"), "redis password")
	db := fs.Int("redis-db", 0, "redis database")
	modelFile := fs.String("model-file", "", "model file name, '-' for remote models")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" || *prefix == "" {
		return fmt.Errorf("-from and -prefix are required")
	}

	rs, err := store.NewRedisStore(ctx, store.RedisConfig{Addr: *addr, Password: *password, DB: *db})
	if err != nil {
		return err
	}
	defer rs.Close()

	files := artifact.Files{Model: *modelFile}
	dst := artifact.NewStoreSource(rs, *prefix)
	if err := artifact.Publish(ctx, artifact.NewDirSource(*from), dst, files); err != nil {
		return err
	}
	fmt.Printf("published %s to %s\n", strings.Join(files.Names(), ", "), dst.Name())
	return nil
}
