package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vmelnikova/habitbot/internal/charts"
	"github.com/vmelnikova/habitbot/internal/dialogue"
	"github.com/vmelnikova/habitbot/internal/food"
	"github.com/vmelnikova/habitbot/internal/goals"
	"github.com/vmelnikova/habitbot/internal/ledger"
	"github.com/vmelnikova/habitbot/internal/lockfile"
	"github.com/vmelnikova/habitbot/internal/messaging"
	"github.com/vmelnikova/habitbot/internal/store"
	"github.com/vmelnikova/habitbot/internal/tracker"
	"github.com/vmelnikova/habitbot/internal/weather"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for the instance lock and
	// temporary chart images.
	DefaultStateDir = "/var/lib/habitbot"
)

// Config holds environment configuration
type Config struct {
	TelegramToken string
	WeatherAPIKey string
	WeatherAPIURL string
	FoodAPIURL    string
	StateDir      string
	LogLevel      string
}

// Flags holds command line flag values
type Flags struct {
	telegramToken *string
	weatherAPIKey *string
	weatherAPIURL *string
	foodAPIURL    *string
	stateDir      *string
	logLevel      *string
}

func main() {
	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)
	initializeLogger(*flags.logLevel)

	if *flags.telegramToken == "" {
		slog.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}
	if *flags.weatherAPIKey == "" {
		slog.Warn("OPENWEATHER_API_KEY not set, water goal computation will fail")
	}

	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to acquire instance lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	if err := run(flags); err != nil {
		slog.Error("habitbot failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("habitbot exited successfully")
}

// run wires the modules together and blocks until shutdown.
func run(flags Flags) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := store.NewInMemoryStore()

	weatherClient := weather.NewClientWithURL(*flags.weatherAPIURL, *flags.weatherAPIKey)
	foodClient := food.NewClientWithURL(*flags.foodAPIURL)
	calc := goals.NewCalculator(weatherClient)
	ledgerSvc := ledger.NewService(st)
	renderer := charts.NewRenderer(*flags.stateDir)

	dialogueSvc := dialogue.NewService(st, ledgerSvc, calc)
	trackerSvc := tracker.NewService(st, ledgerSvc, foodClient, renderer)

	tg, err := messaging.NewTelegramService(*flags.telegramToken)
	if err != nil {
		return err
	}
	if err := tg.Start(ctx); err != nil {
		return err
	}
	defer tg.Stop()

	router := messaging.NewRouter(tg, trackerSvc, dialogueSvc)

	slog.Info("habitbot running", "state_dir", *flags.stateDir)
	router.Run(ctx)
	return nil
}

// initializeLogger sets up structured logging at the configured level.
func initializeLogger(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	config := Config{
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		WeatherAPIKey: os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIURL: os.Getenv("WEATHER_API_URL"),
		FoodAPIURL:    os.Getenv("FOOD_API_URL"),
		StateDir:      os.Getenv("HABITBOT_STATE_DIR"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		telegramToken: flag.String("telegram-token", config.TelegramToken, "Telegram bot token (overrides $TELEGRAM_BOT_TOKEN)"),
		weatherAPIKey: flag.String("weather-api-key", config.WeatherAPIKey, "OpenWeatherMap API key (overrides $OPENWEATHER_API_KEY)"),
		weatherAPIURL: flag.String("weather-api-url", config.WeatherAPIURL, "weather API base URL (overrides $WEATHER_API_URL)"),
		foodAPIURL:    flag.String("food-api-url", config.FoodAPIURL, "food API base URL (overrides $FOOD_API_URL)"),
		stateDir:      flag.String("state-dir", config.StateDir, "state directory for lock and chart files (overrides $HABITBOT_STATE_DIR)"),
		logLevel:      flag.String("log-level", config.LogLevel, "log level: debug, info, warn, error (overrides $LOG_LEVEL)"),
	}
	flag.Parse()
	return flags
}
