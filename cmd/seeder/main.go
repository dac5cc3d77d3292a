// Package main 示例数据填充工具
//
// 用法：
//
//	seeder -seed              写入作者和图书
//	seeder -seed -only books  只写入图书（作者需已存在）
//	seeder -remove            清空图书和作者
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bookstore-api/internal/config"
	"bookstore-api/internal/seed"
	"bookstore-api/internal/shared/storage/mongostore"
	"bookstore-api/pkg/logging"
)

func main() {
	configDir := flag.String("config", "", "配置文件目录（包含 {env}.yaml）")
	doSeed := flag.Bool("seed", false, "写入示例数据")
	doRemove := flag.Bool("remove", false, "删除全部作者/图书")
	only := flag.String("only", "", "只处理 authors 或 books")
	flag.Parse()

	if *doSeed == *doRemove {
		fmt.Fprintln(os.Stderr, "Please run with '-seed' or '-remove'")
		os.Exit(2)
	}
	if *configDir != "" {
		config.SetConfigDir(*configDir)
	}

	if err := run(*doSeed, *only); err != nil {
		fmt.Fprintf(os.Stderr, "seeder: %v\n", err)
		os.Exit(1)
	}
}

func run(doSeed bool, only string) error {
	target, err := seed.ParseTarget(only)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DatabaseDriver != config.DriverMongoDB {
		return fmt.Errorf("seeder requires the mongodb driver, got %q", cfg.DatabaseDriver)
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Component: "seeder"})

	store, err := mongostore.NewStore(cfg.DatabaseURL, cfg.DatabaseName, logger.Component("mongostore"))
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer store.Close()

	fixtures, err := seed.LoadFixtures()
	if err != nil {
		return err
	}
	s := seed.NewSeeder(store, store, fixtures, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if doSeed {
		_, err = s.Seed(ctx, target)
	} else {
		_, err = s.Remove(ctx, target)
	}
	return err
}
