package application

import (
	"fmt"
	"os"
	"strings"

	zlog "github.com/lk2023060901/objpack-go/pkg/log"
	"github.com/lk2023060901/objpack-go/pkg/serde"
	"github.com/lk2023060901/objpack-go/pkg/serde/payload"
	zviper "github.com/lk2023060901/objpack-go/pkg/util/viper"
)

// Application is the runtime container for a process embedding the
// serialization engine. It owns configuration, logging and the
// process-wide serialization context.
type Application struct {
	cfg     *zviper.Config
	loggers map[string]*zlog.MLogger
}

// New creates a new Application instance.
func New() *Application {
	return &Application{}
}

// Run parses command-line arguments (os.Args) and loads the configuration
// file using the following priority:
//  1. Default: ./config.yaml
//  2. Env: OBJPACK_CONFIG_FILE_PATH
//  3. CLI: --config <path> or --config=<path>
//
// It then initializes logging and applies the serde section to the
// process-wide default serialization context.
func (a *Application) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := a.initLogging(); err != nil {
		return err
	}

	return a.initSerde()
}

// Config returns the loaded configuration, if any.
func (a *Application) Config() *zviper.Config {
	return a.cfg
}

// Logger returns a named logger created from configuration.
// If the name is unknown, it falls back to the global logger.
func (a *Application) Logger(name string) *zlog.MLogger {
	if a.loggers == nil {
		return &zlog.MLogger{Logger: zlog.L()}
	}
	if lg, ok := a.loggers[name]; ok && lg != nil {
		return lg
	}
	return &zlog.MLogger{Logger: zlog.L()}
}

// loadConfig resolves config file path and loads it via viper wrapper.
func (a *Application) loadConfig() (*zviper.Config, error) {
	configPath := "./config.yaml"

	if envPath := os.Getenv("OBJPACK_CONFIG_FILE_PATH"); envPath != "" {
		configPath = envPath
	}

	args := os.Args[1:]
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--config" {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("missing value after --config")
			}
			configPath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--config=") {
			val := strings.TrimPrefix(arg, "--config=")
			if val != "" {
				configPath = val
			}
			continue
		}
	}

	cfg := zviper.New()
	cfg.SetEnvPrefix("OBJPACK")
	cfg.SetDefault("serde.payload-codec", "gob")
	if err := cfg.LoadFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file %q: %w", configPath, err)
	}

	return cfg, nil
}

// initLogging initializes global and module-level loggers.
func (a *Application) initLogging() error {
	if err := a.initGlobalLoggerFromEnv(); err != nil {
		return err
	}
	return a.initModuleLoggersFromConfig()
}

// initSerde applies the "serde" config section to the process-wide
// default serialization context.
//
// Example:
//
//	serde:
//	  payload-codec: json
//	  large-envelope-warn-mb: 64
func (a *Application) initSerde() error {
	if a.cfg == nil {
		return nil
	}
	name := strings.ToLower(a.cfg.GetString("serde.payload-codec"))
	ctx := serde.DefaultContext()
	switch name {
	case "", "gob":
		ctx.SetPayloadCodec(payload.GobCodec{})
	case "json":
		ctx.SetPayloadCodec(payload.JSONCodec{})
	default:
		return fmt.Errorf("unknown payload codec %q in serde.payload-codec", name)
	}

	if mb := a.cfg.GetInt("serde.large-envelope-warn-mb"); mb != 0 {
		serde.SetLargeEnvelopeThreshold(int64(mb) << 20)
	}
	return nil
}

// initGlobalLoggerFromEnv configures the process-wide logger based on
// OBJPACK_LOG_* env vars.
//
// Priority:
//   - OBJPACK_LOG_ENABLE: "1"/"true" to enable outputs; others treated as disabled.
//   - OBJPACK_LOG_LEVEL: log level (default "info").
//   - OBJPACK_LOG_STDOUT: whether to log to stdout (default false).
//   - OBJPACK_LOG_FILE_DIR: log directory.
//   - OBJPACK_LOG_FILE: log file name (empty means no file).
//   - OBJPACK_LOG_FORMAT: log format ("console" or "json", default "console").
func (a *Application) initGlobalLoggerFromEnv() error {
	enabled := getenvBool("OBJPACK_LOG_ENABLE", false)

	cfg := &zlog.Config{
		Level:  getenvDefault("OBJPACK_LOG_LEVEL", "info"),
		Format: getenvDefault("OBJPACK_LOG_FORMAT", "console"),
		Stdout: getenvBool("OBJPACK_LOG_STDOUT", false),
		File: zlog.FileLogConfig{
			RootPath: getenvDefault("OBJPACK_LOG_FILE_DIR", ""),
			Filename: getenvDefault("OBJPACK_LOG_FILE", ""),
		},
	}

	// When not enabled, direct all outputs to a discarded sink.
	if !enabled {
		cfg.Stdout = false
		cfg.File.Filename = ""
	}

	logger, props, err := zlog.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("init global logger from env: %w", err)
	}
	zlog.ReplaceGlobals(logger, props)
	return nil
}

// initModuleLoggersFromConfig creates named loggers from YAML config
// under the "logging" key.
//
// Example:
//
//	logging:
//	  serde:
//	    level: debug
//	    stdout: true
func (a *Application) initModuleLoggersFromConfig() error {
	if a.cfg == nil {
		return nil
	}

	raw := make(map[string]zlog.Config)
	if err := a.cfg.UnmarshalKey("logging", &raw); err != nil {
		return err
	}
	if len(raw) == 0 {
		return nil
	}

	a.loggers = make(map[string]*zlog.MLogger, len(raw))
	for name, lc := range raw {
		cfgCopy := lc
		logger, _, err := zlog.InitLogger(&cfgCopy)
		if err != nil {
			return fmt.Errorf("init module logger %q: %w", name, err)
		}
		a.loggers[name] = &zlog.MLogger{Logger: logger}
	}

	return nil
}

func getenvDefault(key, def string) string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	return val
}

func getenvBool(key string, def bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return def
	}
	switch strings.ToLower(val) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
