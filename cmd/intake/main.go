// Основной пакет сервиса приема заявок онбординга. Отвечает за запуск
// приложения, инициализацию локальной базы журнала, миграцию моделей и запуск
// HTTP-сервера.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/sobdigital/sob-intake/internal/intake"
	"github.com/sobdigital/sob-intake/internal/intake/config"
	"github.com/sobdigital/sob-intake/internal/intake/dao"
	"github.com/sobdigital/sob-intake/internal/intake/gormlogger"
)

var version string = "DEV"

func main() {
	trace := flag.Bool("trace", false, "Verbose logs and sql trace")
	flag.Parse()

	PrintBanner()

	cfg := config.ReadConfig()

	if *trace {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	// Set prod log format
	if version != "DEV" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
	}

	slog.Info("SOB Intake start.")

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{
		Logger: gormlogger.NewGormLogger(slog.Default(), time.Second*4),
	})
	if err != nil {
		slog.Error("Fail init DB connection", "err", err)
		os.Exit(1)
	}

	if err := dao.Migrate(db); err != nil {
		slog.Error("Fail migrate DB", "err", err)
		os.Exit(1)
	}

	intake.Server(db, cfg, version)
}

// PrintBanner выводит заголовок приложения с версией.
func PrintBanner() {
	banner := `
  _____ ____  ____    _____       _        _
 / ____|  _ \|  _ \  |_   _|     | |      | |
| (___ | | | | |_) |   | |  _ __ | |_ __ _| | _____
 \___ \| | | |  _ <    | | | '_ \| __/ _  | |/ / _ \
 ____) | |_| | |_) |  _| |_| | | | || (_| |   <  __/
|_____/ \___/|____/  |_____|_| |_|\__\__,_|_|\_\___| %s
Client onboarding intake service
----------------------------------------------------
`
	colorReset := "\033[0m"
	colorYellow := "\033[33m"

	formattedVersion := version
	if version == "DEV" {
		formattedVersion = colorYellow + version + colorReset
	}

	fmt.Printf(banner, formattedVersion)
}
