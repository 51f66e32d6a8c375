package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/GolfLocker/golf-locker-pos/pkg/config"
	"github.com/GolfLocker/golf-locker-pos/pkg/db"
	"github.com/GolfLocker/golf-locker-pos/pkg/logger"
	"github.com/GolfLocker/golf-locker-pos/pkg/migrate"
)

var usage = `usage: migrate [-dir path] <command> [args]

commands:
  up               apply all pending migrations
  up-to VERSION    apply migrations up to VERSION
  down             roll back the latest migration
  down-to VERSION  roll back to VERSION
  status           print migration status
  version          print current version
  create NAME      create a new timestamped SQL migration
`

func main() {
	dir := flag.String("dir", migrate.DefaultDir, "migrations directory")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command, rest := args[0], args[1:]

	if command == "create" {
		if len(rest) != 1 {
			flag.Usage()
			os.Exit(2)
		}
		path, err := migrate.CreateSQLMigration(*dir, rest[0])
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println("created", path)
		return
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logg := logger.New(logger.Options{ServiceName: "golf-locker-migrate", Level: zerolog.InfoLevel})
	ctx := context.Background()

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := migrate.Run(ctx, sqlDB, *dir, command, rest...); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
