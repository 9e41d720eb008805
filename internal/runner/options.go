package runner

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/netboxlabs/orb-discovery/pkg/version"
	"github.com/projectdiscovery/goflags"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/gologger/formatter"
	"github.com/projectdiscovery/gologger/levels"
	envutil "github.com/projectdiscovery/utils/env"
	fileutil "github.com/projectdiscovery/utils/file"
)

// Environment variables backing flags left unset. They are read after the
// -env file is loaded.
const (
	WorkersEnv           = "ORB_DISCOVERY_WORKERS"
	PolicyParallelismEnv = "ORB_DISCOVERY_POLICY_PARALLELISM"
	OUIFileEnv           = "ORB_DISCOVERY_OUI_FILE"

	defaultWorkers           = 2
	defaultPolicyParallelism = 1
)

// Options contains the configuration options for a discovery run.
type Options struct {
	ConfigFile        string
	EnvFile           string
	OUIFile           string
	Workers           int
	PolicyParallelism int
	DryRun            bool

	Verbose bool
	Silent  bool
	NoColor bool
	Version bool
}

// ParseOptions parses the command line flags provided by a user
func ParseOptions() *Options {
	options := &Options{}
	flagSet := goflags.NewFlagSet()

	flagSet.SetDescription(`orb-discovery discovers hosts, services and network devices and ingests them into NetBox through Diode`)

	flagSet.CreateGroup("config", "Config",
		flagSet.StringVarP(&options.ConfigFile, "config", "c", "", "agent yaml configuration file"),
		flagSet.StringVarP(&options.EnvFile, "env", "e", "", "env file to load environment variables from"),
		flagSet.StringVar(&options.OUIFile, "oui-file", "", "json-lines mac vendor database (oui, companyName) (env "+OUIFileEnv+")"),
	)

	flagSet.CreateGroup("discovery", "Discovery",
		flagSet.IntVarP(&options.Workers, "workers", "w", 0, fmt.Sprintf("number of devices discovered in parallel (default %d, env %s)", defaultWorkers, WorkersEnv)),
		flagSet.IntVarP(&options.PolicyParallelism, "policy-parallelism", "pp", 0, fmt.Sprintf("number of policies processed in parallel (default %d, env %s)", defaultPolicyParallelism, PolicyParallelismEnv)),
		flagSet.BoolVar(&options.DryRun, "dry-run", false, "print translated entities instead of ingesting them"),
	)

	flagSet.CreateGroup("debug", "Debug",
		flagSet.BoolVar(&options.Version, "version", false, "show version of the project"),
		flagSet.BoolVarP(&options.Verbose, "verbose", "v", false, "show verbose output"),
		flagSet.BoolVar(&options.Silent, "silent", false, "show only results in output"),
		flagSet.BoolVarP(&options.NoColor, "no-color", "nc", false, "disable output content coloring (ANSI escape codes)"),
	)

	if err := flagSet.Parse(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}

	options.configureOutput()

	if options.Version {
		gologger.Info().Msgf("Current Version: %s\n", version.GetVersion())
		os.Exit(0)
	}

	if err := options.loadEnv(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}
	if err := options.validate(); err != nil {
		gologger.Fatal().Msgf("%s\n", err)
	}
	return options
}

// loadEnv loads the -env file, overriding the process environment, then fills
// unset flags from the environment.
func (options *Options) loadEnv() error {
	if options.EnvFile != "" {
		if !fileutil.FileExists(options.EnvFile) {
			return fmt.Errorf("ERROR: Unable to load environment variables from file %s", options.EnvFile)
		}
		if err := godotenv.Overload(options.EnvFile); err != nil {
			return fmt.Errorf("ERROR: Unable to load environment variables from file %s: %w", options.EnvFile, err)
		}
	}
	if options.Workers == 0 {
		options.Workers = envutil.GetEnvOrDefault(WorkersEnv, defaultWorkers)
	}
	if options.PolicyParallelism == 0 {
		options.PolicyParallelism = envutil.GetEnvOrDefault(PolicyParallelismEnv, defaultPolicyParallelism)
	}
	if options.OUIFile == "" {
		options.OUIFile = envutil.GetEnvOrDefault(OUIFileEnv, "")
	}
	return nil
}

func (options *Options) validate() error {
	if options.ConfigFile == "" {
		return errMissingConfig
	}
	if options.Workers < 1 {
		options.Workers = 1
	}
	if options.PolicyParallelism < 1 {
		options.PolicyParallelism = 1
	}
	return nil
}

// configureOutput configures the output on the screen
func (options *Options) configureOutput() {
	// If the user desires verbose output, show verbose output
	if options.Verbose {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelVerbose)
	}
	if options.NoColor {
		gologger.DefaultLogger.SetFormatter(formatter.NewCLI(true))
	}
	if options.Silent {
		gologger.DefaultLogger.SetMaxLevel(levels.LevelSilent)
	}
}
