package config

const (
	defaultConfigPath       = "~/.config/slidemill/config.toml"
	projectConfigName       = "slidemill.toml"
	defaultBaseDir          = "."
	defaultOutputDir        = "output"
	defaultLogDir           = "~/.local/share/slidemill/logs"
	defaultHistoryDB        = "~/.local/share/slidemill/history.db"
	defaultCaptionsFile     = "captions.csv"
	defaultCaptionSeparator = ","
	defaultVariations       = 1
	defaultWorkers          = 4
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30

	envBaseDir  = "SLIDEMILL_BASE_DIR"
	envLogLevel = "SLIDEMILL_LOG_LEVEL"
)

// Default returns a Config populated with defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			BaseDir:   defaultBaseDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			HistoryDB: defaultHistoryDB,
		},
		Captions: Captions{
			File:      defaultCaptionsFile,
			Separator: defaultCaptionSeparator,
		},
		Generation: Generation{
			Variations: defaultVariations,
			Workers:    defaultWorkers,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		History: History{Enabled: true},
	}
}
