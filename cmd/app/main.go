package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"

	"github.com/jessevdk/go-flags"
	"go.uber.org/zap"

	"github.com/qredo/attestation-console/internal/action"
	"github.com/qredo/attestation-console/internal/api"
	"github.com/qredo/attestation-console/internal/apiclient"
	"github.com/qredo/attestation-console/internal/config"
	"github.com/qredo/attestation-console/internal/hub"
	"github.com/qredo/attestation-console/internal/hub/message"
	"github.com/qredo/attestation-console/internal/model"
	"github.com/qredo/attestation-console/internal/rest"
	"github.com/qredo/attestation-console/internal/service"
	"github.com/qredo/attestation-console/internal/terminal"
	"github.com/qredo/attestation-console/internal/util"
)

const eventQueueSize = 256

var (
	buildType    = ""
	buildVersion = ""
	buildDate    = ""
)

func main() {
	startText()

	var parser = flags.NewParser(nil, flags.Default)

	_, _ = parser.AddCommand("init", "init config", "write default config", &initCmd{})
	_, _ = parser.AddCommand("start", "start service", "", &startCmd{})
	_, _ = parser.AddCommand("version", "print version", "print service version and quit", &versionCmd{})

	_, err := parser.Parse()
	if err != nil {
		os.Exit(1)
	}
}

func startText() {
	fmt.Printf("Attestation Console %v (%v) build date: %v\n\n", buildType, buildVersion, buildDate)
}

type versionCmd struct{}

func (c *versionCmd) Execute([]string) error {
	return nil
}

type startCmd struct {
	ConfigFile string `short:"c" long:"config" description:"path to configuration file" default:"console.yaml"`
}

func (c *startCmd) Execute([]string) error {
	var cfg config.Config
	cfg.Default()

	err := cfg.Load(c.ConfigFile)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	log := util.NewLogger(&cfg.Logging)
	log.Info("Loaded config file from " + c.ConfigFile)

	ver := &api.Version{
		BuildType: "dev",
	}

	if len(buildType) > 0 {
		ver.BuildType = buildType
	}
	if len(buildVersion) > 0 {
		ver.BuildVersion = buildVersion
	}
	if len(buildDate) > 0 {
		ver.BuildDate = buildDate
	}

	router := initRouter(log, cfg, *ver)
	setCtrlC(router)

	if err = router.Start(); err != nil {
		log.Errorf("HTTP Listener error: %v", err)
		log.Warn("exiting")
		os.Exit(1)
	}

	return nil
}

func setCtrlC(r *rest.Router) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		r.Stop()
		time.Sleep(2 * time.Second) //wait for everything to close properly
		os.Exit(0)
	}()
}

func initRouter(log *zap.SugaredLogger, config config.Config, version api.Version) *rest.Router {
	term := terminal.NewLog(config.Terminal.MaxLines)
	client := apiclient.NewClient(config.Base, time.Duration(config.Polling.RequestTimeoutSec)*time.Second, term, log)
	viewModel := model.NewViewModel()

	var (
		rds         *redis.Client
		syncronizer action.ActionSync
	)

	if config.LoadBalancing.Enable {
		log.Info("Load balancing enabled, connecting to redis")
		rds = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", config.LoadBalancing.RedisConfig.Host, config.LoadBalancing.RedisConfig.Port),
			Password: config.LoadBalancing.RedisConfig.Password,
			DB:       config.LoadBalancing.RedisConfig.DB,
		})

		pool := goredis.NewPool(rds)
		rs := redsync.New(pool)
		syncronizer = action.NewSyncronizer(&config.LoadBalancing, rds, rs)
	}

	messageCache := message.NewCacher(config.LoadBalancing.Enable, log, rds)
	source := hub.NewEventSource("console", eventQueueSize, log)
	feedHub := hub.NewFeedHub(source, log, messageCache)
	upgrader := hub.NewDefaultUpgrader(config.Websocket, originChecker(config.HTTP.CORSAllowOrigins))

	consoleService := service.NewConsoleService(config, client, viewModel, term, feedHub, source, upgrader, log)
	dispatcher := action.NewDispatcher(client, syncronizer, config.LoadBalancing.Enable, log)
	actionService := service.NewActionService(viewModel, dispatcher, term, log)

	return rest.NewRouter(log, config, version, consoleService, actionService)
}

// originChecker accepts every origin when CORS is open, otherwise the upgrader falls back to the same origin check
func originChecker(allowed []string) func(r *http.Request) bool {
	for _, origin := range allowed {
		if origin == "*" {
			return func(r *http.Request) bool { return true }
		}
	}

	return nil
}

type initCmd struct {
	FileName string `short:"f" long:"file-name" description:"output file name" default:"console.yaml"`
}

func (c *initCmd) Execute([]string) error {
	var cfg config.Config
	cfg.Default()
	if err := cfg.Save(c.FileName); err != nil {
		return err
	}

	fmt.Printf("written file %s\n\n", c.FileName)
	return nil
}
