package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beka-birhanu/mazegen/api"
	api_i "github.com/beka-birhanu/mazegen/api/i"
	"github.com/beka-birhanu/mazegen/api/identity"
	mazeapi "github.com/beka-birhanu/mazegen/api/maze"
	"github.com/beka-birhanu/mazegen/config"
	"github.com/beka-birhanu/mazegen/infrastruture/token"
	"github.com/beka-birhanu/mazegen/service"
	"github.com/beka-birhanu/mazegen/service/i"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const janitorInterval = time.Minute

// Global variables for dependencies
var (
	sessionManager *service.MazeSessionManager
	jwtTokenizer   i.Tokenizer
	mazeController api_i.Controller
	router         *api.Router
	appLogger      *log.Logger
)

func initSessionManager() {
	var err error
	sessionManager, err = service.NewMazeSessionManager(&service.Config{
		MaxSessions:  config.Envs.MaxSessions,
		MaxDimension: config.Envs.MaxMazeDimension,
		StepInterval: config.Envs.StepInterval,
		SessionTTL:   config.Envs.SessionTTL,
		Logger:       config.NewLogger("SESSION-MANAGER", config.ColorCyan, os.Stdout),
	})
	if err != nil {
		appLogger.Printf("%s[ERROR]%s Creating session manager: %v", config.LogErrorColor, config.LogColorReset, err)
		os.Exit(1)
	}
	appLogger.Printf("%s[INFO]%s Session manager initialized", config.LogInfoColor, config.LogColorReset)
}

func initJWTTokenizer() {
	if config.Envs.JWTSecret == "" {
		appLogger.Printf("%s[ERROR]%s JWT_SECRET must be set", config.LogErrorColor, config.LogColorReset)
		os.Exit(1)
	}
	jwtTokenizer = token.NewJwtService(config.Envs.JWTSecret, config.Envs.JWTIssuer)
	appLogger.Printf("%s[INFO]%s JWT Tokenizer initialized", config.LogInfoColor, config.LogColorReset)
}

func initMazeController() {
	var err error
	mazeController, err = mazeapi.NewMazeController(mazeapi.Config{
		Sessions:    sessionManager,
		Tokenizer:   jwtTokenizer,
		DefaultRows: config.Envs.MazeRows,
		DefaultCols: config.Envs.MazeCols,
		Logger:      config.NewLogger("MAZE-API", config.ColorBlue, os.Stdout),
	})
	if err != nil {
		appLogger.Printf("%s[ERROR]%s Creating maze controller: %v", config.LogErrorColor, config.LogColorReset, err)
		os.Exit(1)
	}
	appLogger.Printf("%s[INFO]%s Maze controller initialized", config.LogInfoColor, config.LogColorReset)
}

func initRouter(t i.Tokenizer) {
	gin.SetMode(config.Envs.GinMode)
	router = api.NewRouter(api.Config{
		Addr:                    fmt.Sprintf("%s:%v", config.Envs.HostIP, config.Envs.RESTPort),
		BaseURL:                 "/api",
		Controllers:             []api_i.Controller{mazeController},
		AuthorizationMiddleware: identity.Authorize(t),
	})
	appLogger.Printf("%s[INFO]%s Router initialized", config.LogInfoColor, config.LogColorReset)
}

// runJanitor drops idle sessions until ctx is cancelled.
func runJanitor(ctx context.Context) error {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := sessionManager.Expire(now); n > 0 {
				appLogger.Printf("%s[INFO]%s Expired %d idle maze sessions", config.LogInfoColor, config.LogColorReset, n)
			}
		}
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies
	appLogger = config.NewLogger("APP", config.ColorGreen, os.Stdout)

	initSessionManager()
	defer sessionManager.StopAll()

	initJWTTokenizer()
	initMazeController()
	initRouter(jwtTokenizer)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return router.Run(groupCtx)
	})
	group.Go(func() error {
		return runJanitor(groupCtx)
	})

	if err := group.Wait(); err != nil {
		appLogger.Printf("%s[ERROR]%s Serving: %v", config.LogErrorColor, config.LogColorReset, err)
		sessionManager.StopAll()
		os.Exit(1)
	}
	appLogger.Printf("%s[INFO]%s Shut down", config.LogInfoColor, config.LogColorReset)
}
