package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// swagger:model ConfigResponse
type Config struct {
	Base          Base            `yaml:"base" json:"base"`
	HTTP          HttpSettings    `yaml:"http" json:"http"`
	Logging       Logging         `yaml:"logging" json:"logging"`
	Polling       Polling         `yaml:"polling" json:"polling"`
	Terminal      Terminal        `yaml:"terminal" json:"terminal"`
	LoadBalancing LoadBalancing   `yaml:"loadBalancing" json:"loadBalancing"`
	Websocket     WebSocketConfig `yaml:"websocket" json:"websocket"`
}

type Base struct {
	// The URL of the attestation backend REST API, without the version segment.
	// example: http://127.0.0.1:8881
	BackendAPI string `yaml:"backendAPI" json:"backendAPI"`

	// The API version used to build the backend endpoints (/v{apiVersion}/...).
	// example: 2
	APIVersion int `yaml:"apiVersion" json:"apiVersion"`

	// Mirror internal diagnostics into the terminal log.
	// example: false
	Debug bool `yaml:"debug" json:"debug"`
}

type TLSConfig struct {
	// Enable TLS for the console HTTP server.
	// example: true
	Enabled bool `yaml:"enabled" json:"enabled"`

	// The cert file to use for the TLS server.
	// example: tls/domain.crt
	CertFile string `yaml:"certFile" json:"certFile"`

	// The key file to use for the TLS server.
	// example: tls/domain.key
	KeyFile string `yaml:"keyFile" json:"keyFile"`
}

type HttpSettings struct {
	// The address and port the console is served on.
	// example: 0.0.0.0:8008
	Addr string `yaml:"addr" json:"addr"`

	// The value of the Access-Control-Allow-Origin of the console API responses.
	// example: '*'
	CORSAllowOrigins []string `yaml:"CORSAllowOrigins" json:"CORSAllowOrigins"`

	// Log all incoming requests to the console API.
	// example: true
	LogAllRequests bool `yaml:"logAllRequests" json:"logAllRequests"`

	TLS TLSConfig `yaml:"TLS" json:"TLS"`
}

type Logging struct {
	// Output format of the log.
	// enum: text,json
	// example: json
	Format string `yaml:"format" json:"format"`

	// Log level to be output.
	// enum: info,warn,error,debug
	// example: debug
	Level string `yaml:"level" json:"level"`
}

type Polling struct {
	// How often the agent list is fetched and reconciled, in milliseconds.
	// example: 2000
	AgentListIntervalMs int `yaml:"agentListIntervalMs" json:"agentListIntervalMs"`

	// How often every tracked agent is refreshed, in milliseconds.
	// example: 750
	AgentRefreshIntervalMs int `yaml:"agentRefreshIntervalMs" json:"agentRefreshIntervalMs"`

	// How often the terminal log is fetched, in milliseconds.
	// example: 1000
	TerminalIntervalMs int `yaml:"terminalIntervalMs" json:"terminalIntervalMs"`

	// How often the chart inputs are rebuilt, in milliseconds.
	// example: 20000
	ChartsIntervalMs int `yaml:"chartsIntervalMs" json:"chartsIntervalMs"`

	// The maximum number of agent fetches in flight at the same time.
	// example: 8
	MaxConcurrentFetches int `yaml:"maxConcurrentFetches" json:"maxConcurrentFetches"`

	// The timeout of a single backend request, in seconds.
	// example: 10
	RequestTimeoutSec int `yaml:"requestTimeoutSec" json:"requestTimeoutSec"`

	// The interval over which a newly discovered agent is refreshed again until its first snapshot arrives, in milliseconds.
	// example: 500
	FirstRefreshRetryMs int `yaml:"firstRefreshRetryMs" json:"firstRefreshRetryMs"`

	// The maximum time spent retrying the first refresh of a newly discovered agent, in milliseconds.
	// example: 5000
	FirstRefreshRetryMaxMs int `yaml:"firstRefreshRetryMaxMs" json:"firstRefreshRetryMaxMs"`
}

type Terminal struct {
	// The maximum number of lines retained by the terminal log.
	// example: 100
	MaxLines int `yaml:"maxLines" json:"maxLines"`

	// The log resource requested from the backend (/v{apiVersion}/logs/{resource}).
	// example: tenant
	LogResource string `yaml:"logResource" json:"logResource"`
}

type WebSocketConfig struct {
	// The ping period for the ping handler in seconds.
	// example: 5
	PingPeriod int `yaml:"pingPeriodSec" json:"pingPeriodSec"`

	// The pong wait for the pong handler in seconds.
	// example: 10
	PongWait int `yaml:"pongWaitSec" json:"pongWaitSec"`

	// The write wait in seconds.
	// example: 10
	WriteWait int `yaml:"writeWaitSec" json:"writeWaitSec"`

	// The WebSocket upgrader read buffer size in bytes.
	// example: 512
	ReadBufferSize int `yaml:"readBufferSize" json:"readBufferSize"`

	// The WebSocket upgrader write buffer size in bytes.
	// example: 1024
	WriteBufferSize int `yaml:"writeBufferSize" json:"writeBufferSize"`
}

type LoadBalancing struct {
	// Enables running several console instances against the same backend.
	// example: true
	Enable bool `yaml:"enable" json:"enable"`

	// The on lock timeout in milliseconds.
	// example: 300
	OnLockErrorTimeOutMs int `yaml:"onLockErrorTimeoutMs" json:"onLockErrorTimeoutMs"`

	// The expiration of a dispatched agent action key in Redis in seconds.
	// example: 6
	ActionIDExpirationSec int `yaml:"actionIDExpirationSec" json:"actionIDExpirationSec"`

	// The expiration of cached agent events in Redis in seconds.
	// example: 60
	SnapshotExpirationSec int         `yaml:"snapshotExpirationSec" json:"snapshotExpirationSec"`
	RedisConfig           RedisConfig `yaml:"redis" json:"redis"`
}

// RedisConfig is the redis configuration when LoadBalancing is enabled
type RedisConfig struct {
	// The Redis host.
	// example: redis
	Host string `yaml:"host" json:"host"`

	// The Redis port.
	// example: 6379
	Port int `yaml:"port" json:"port"`

	// The Redis password.
	// example: just a password
	Password string `yaml:"password" json:"password"`

	// Redis database to be selected after connecting to the server.
	// example: 0
	DB int `yaml:"db" json:"db"`
}

// Default creates configuration with default values.
func (c *Config) Default() {
	c.HTTP = HttpSettings{
		Addr:             "127.0.0.1:8008",
		CORSAllowOrigins: []string{"*"},
		TLS: TLSConfig{
			Enabled: false,
		},
	}

	c.Base = Base{
		BackendAPI: "http://127.0.0.1:8881",
		APIVersion: 2,
		Debug:      false,
	}
	c.Polling = Polling{
		AgentListIntervalMs:    2000,
		AgentRefreshIntervalMs: 750,
		TerminalIntervalMs:     1000,
		ChartsIntervalMs:       20000,
		MaxConcurrentFetches:   8,
		RequestTimeoutSec:      10,
		FirstRefreshRetryMs:    500,
		FirstRefreshRetryMaxMs: 5000,
	}
	c.Terminal = Terminal{
		MaxLines:    100,
		LogResource: "tenant",
	}
	c.Websocket = WebSocketConfig{
		PingPeriod:      5,
		PongWait:        10,
		WriteWait:       10,
		ReadBufferSize:  512,
		WriteBufferSize: 1024,
	}
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.LoadBalancing = LoadBalancing{
		Enable:                false,
		OnLockErrorTimeOutMs:  300,
		ActionIDExpirationSec: 6,
		SnapshotExpirationSec: 60,
		RedisConfig: RedisConfig{
			Host:     "redis",
			Port:     6379,
			Password: "",
			DB:       0,
		},
	}
}

const redactedValue = "********"

// Redacted returns a copy of the config safe to expose, secrets are masked.
func (c Config) Redacted() Config {
	if c.LoadBalancing.RedisConfig.Password != "" {
		c.LoadBalancing.RedisConfig.Password = redactedValue
	}
	return c
}

// Load reads and parses yaml config.
func (c *Config) Load(fileName string) error {
	f, err := os.ReadFile(fileName)
	if err != nil {
		return errors.Wrap(err, "read config file")
	}

	c.Default()
	if err := yaml.Unmarshal(f, c); err != nil {
		return errors.Wrap(err, "parse config file")
	}

	if err := c.Validate(); err != nil {
		return errors.Wrap(err, "invalid config")
	}

	return nil
}

// Save saves yaml config.
func (c *Config) Save(fileName string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(fileName, b, 0600)
}

// Validate rejects values the poll loops can't run with
func (c *Config) Validate() error {
	if c.Base.BackendAPI == "" {
		return errors.New("base.backendAPI is required")
	}
	if c.Base.APIVersion <= 0 {
		return errors.New("base.apiVersion must be positive")
	}
	if c.Terminal.MaxLines <= 0 {
		return errors.New("terminal.maxLines must be positive")
	}
	if c.Polling.MaxConcurrentFetches <= 0 {
		return errors.New("polling.maxConcurrentFetches must be positive")
	}

	intervals := []int{
		c.Polling.AgentListIntervalMs,
		c.Polling.AgentRefreshIntervalMs,
		c.Polling.TerminalIntervalMs,
		c.Polling.ChartsIntervalMs,
	}
	for _, i := range intervals {
		if i < 0 {
			return errors.New("polling intervals can't be negative")
		}
	}

	return nil
}

// Interval converts a millisecond setting, zero disables the loop
func Interval(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
