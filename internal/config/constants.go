package config

// ConfigFileNames are looked up, in order, by FindConfig.
var ConfigFileNames = []string{"tynorm.yaml", "tynorm.yml"}

// WorldFileExtensions are the recognized world file extensions.
var WorldFileExtensions = []string{".yaml", ".yml"}

// IsTestMode indicates if the program is running in test mode.
// This is set once at startup by the CLI; output then omits run-specific
// details such as session ids so it can be compared against golden files.
var IsTestMode = false

// Defaults for omitted configuration values.
const (
	DefaultRecursionLimit = 128
	DefaultMaxNesting     = 100000
	DefaultStackSegment   = 2048
)
