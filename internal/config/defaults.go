package config

const (
	defaultDataDir          = "~/.local/share/deckhand"
	defaultLogDir           = "~/.local/share/deckhand/logs"
	defaultOutputDir        = "~/Downloads"
	defaultAPIBind          = "127.0.0.1:7787"
	defaultWorkerBinary     = "deckhand-worker"
	defaultProcessTimeout   = 3600
	defaultCommandTimeout   = 120
	defaultLoginTimeout     = 600
	defaultMaxConcurrency   = 3
	minConcurrency          = 1
	maxConcurrency          = 5
	defaultPollInterval     = 30
	defaultPollMaxAttempts  = 60
	defaultStorageStatePath = "~/.config/deckhand/storage_state.json"
	defaultAuthMaxAgeDays   = 30
	defaultNotifyTimeout    = 10
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			LogDir:    defaultLogDir,
			OutputDir: defaultOutputDir,
			APIBind:   defaultAPIBind,
		},
		Worker: Worker{
			Binary:         defaultWorkerBinary,
			ProcessTimeout: defaultProcessTimeout,
			CommandTimeout: defaultCommandTimeout,
			LoginTimeout:   defaultLoginTimeout,
		},
		Queue: Queue{
			MaxConcurrency:  defaultMaxConcurrency,
			PollInterval:    defaultPollInterval,
			PollMaxAttempts: defaultPollMaxAttempts,
		},
		Auth: Auth{
			StorageStatePath: defaultStorageStatePath,
			MaxAgeDays:       defaultAuthMaxAgeDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
