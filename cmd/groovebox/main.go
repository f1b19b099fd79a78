package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/grooveboxdev/groovebox-cli/internal/api"
	"github.com/grooveboxdev/groovebox-cli/internal/cache"
	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/config"
	"github.com/grooveboxdev/groovebox-cli/internal/identity"
	"github.com/grooveboxdev/groovebox-cli/internal/mpris"
	"github.com/grooveboxdev/groovebox-cli/internal/player"
	"github.com/grooveboxdev/groovebox-cli/internal/service"
	"github.com/grooveboxdev/groovebox-cli/internal/store"
	"github.com/grooveboxdev/groovebox-cli/internal/ui"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	versionFlag = flag.Bool("version", false, "Show version information")
	debugFlag   = flag.Bool("debug", false, "Enable debug logging")
	catalogFlag = flag.String("catalog", "", "Path to a catalog JSON file (overrides config)")
)

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s v%s - %s\n\n", config.AppName, config.AppVersion, config.AppDescription)
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()

		configPath, err := config.GetConfigPath()
		if err == nil {
			if _, statErr := os.Stat(configPath); statErr == nil {
				fmt.Fprintf(os.Stderr, "\nConfig file: %s\n", configPath)
			} else {
				fmt.Fprintf(os.Stderr, "\nConfig file will be created on first use.\n")
			}
		}
	}
}

func main() {
	flag.Parse()

	if *versionFlag {
		fmt.Printf("%s v%s\n", config.AppName, config.AppVersion)
		fmt.Println(config.AppDescription)
		os.Exit(0)
	}

	if *debugFlag {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)

		cacheDir, err := cache.GetCacheDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not get cache dir: %v\n", err)
			cacheDir = os.TempDir()
		}
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create log dir: %v\n", err)
		}
		logPath := filepath.Join(cacheDir, "debug.log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create log file: %v\n", err)
			logFile = os.Stderr
		}
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: logFile, TimeFormat: "15:04:05"})
		fmt.Printf("Debug log: %s\n", logPath)
		log.Info().Msgf("Starting %s v%s (debug mode)", config.AppName, config.AppVersion)
	} else {
		// Avoid TUI corruption by only logging errors to /dev/null
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
		logFile, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0644)
		if err == nil {
			log.Logger = log.Output(logFile)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Using default configuration")
	}

	catalogPath := cfg.CatalogPath
	if *catalogFlag != "" {
		catalogPath = *catalogFlag
	}
	cat := catalog.Load(catalogPath)
	if len(cat.Albums) == 0 {
		fmt.Fprintln(os.Stderr, "Error: catalog contains no albums")
		os.Exit(1)
	}

	diskCache, err := cache.NewCache()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not initialize cache: %v\n", err)
		os.Exit(1)
	}
	go func() {
		if err := diskCache.CleanExpired(); err != nil {
			log.Debug().Err(err).Msg("Failed to clean expired cache")
		}
	}()

	storePath := cfg.StorePath
	if storePath == "" {
		cacheDir, err := cache.GetCacheDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not get cache dir: %v\n", err)
			os.Exit(1)
		}
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error: could not create cache dir: %v\n", err)
			os.Exit(1)
		}
		storePath = filepath.Join(cacheDir, "groovebox.db")
	}
	st, err := store.Open(storePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open store at %s: %v\n", storePath, err)
		os.Exit(1)
	}

	configPath, _ := config.GetConfigPath()
	provider := identity.NewLocalProvider(filepath.Dir(configPath), cfg.DisplayName)

	notices := service.NewNotices(nil)
	favorites := service.NewFavorites(st, provider, notices)
	spotify := api.NewSpotifyClient(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret)
	board := service.NewRequestBoard(spotify, st, provider, notices)

	engine := player.NewEngine(cat, player.NewBeepOutput(), diskCache, cfg.Volume)
	engine.Restore()

	gbUI := ui.NewUI(engine, cat, favorites, board, provider, notices, cfg)

	bridge, err := mpris.New(engine, diskCache)
	if err != nil {
		log.Debug().Err(err).Msg("D-Bus unavailable, running without media key integration")
		bridge = nil
	}

	// The engine, services, and identity provider each hold a single
	// callback slot; fan out to every consumer from here.
	engine.OnChange(func(status player.Status) {
		if bridge != nil {
			bridge.Update(status)
		}
		gbUI.OnPlayerStatus(status)
	})
	provider.OnChange(func(id identity.Identity, signedIn bool) {
		favorites.HandleSession(id, signedIn)
		gbUI.OnSession(id, signedIn)
	})
	favorites.OnChange(gbUI.OnFavorites)
	board.OnRequests(gbUI.OnRequests)
	board.OnResults(gbUI.OnResults)
	notices.OnChange(gbUI.OnNotice)

	// The board subscribed to the store before the UI existed; replay the
	// current snapshot so the first render is not empty.
	gbUI.OnRequests(board.Requests())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	uiDone := make(chan error, 1)

	go func() {
		<-sigChan
		if *debugFlag {
			log.Info().Msg("Received shutdown signal, cleaning up...")
		}
		gbUI.Shutdown()
	}()

	if *debugFlag {
		log.Info().Msg("Starting UI...")
	}

	// Run UI in a goroutine so we can handle signals properly
	go func() {
		uiDone <- gbUI.Run()
	}()

	runErr := <-uiDone

	if bridge != nil {
		bridge.Close()
	}
	board.Close()
	favorites.Close()
	engine.Close()
	if err := st.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close store")
	}

	if runErr != nil {
		if *debugFlag {
			log.Error().Err(runErr).Msg("Error running UI")
		}
		os.Exit(1)
	}

	if *debugFlag {
		log.Info().Msgf("%s stopped", config.AppName)
	}
}
