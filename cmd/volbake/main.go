// volbake bakes procedural density volumes into packed grids for
// volumetric rendering, and inspects the resulting assets.
package main

import (
	"fmt"
	"os"

	"github.com/Faultbox/densitybaker/internal/config"
	"github.com/Faultbox/densitybaker/internal/logger"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

func main() {
	// Parse CLI flags first
	config.ParseFlags()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(exitCode(err))
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Source != "" {
		logger.Sugar.Debugf("Config loaded from %s", cfg.Source)
	}
	logger.Sugar.Debugf("Config: %+v", cfg)

	args := config.Args()
	command := "bake"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	var cmdErr error
	switch command {
	case "bake":
		cmdErr = cmdBake(cfg)
	case "inspect", "info":
		cmdErr = cmdInspect(args)
	case "preview":
		cmdErr = cmdPreview(args)
	case "profile":
		cmdErr = cmdProfile(cfg, args)
	case "catalog":
		cmdErr = cmdCatalog(cfg, args)
	case "write-config":
		cmdErr = cmdWriteConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		logger.Sync()
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(exitCode(cmdErr))
	}
}

// exitCode maps a failure to the process status: 2 for bad configuration,
// 3 when a volume cannot be allocated, 4 for a broken indexing invariant and
// 1 for anything else.
func exitCode(err error) int {
	switch volume.KindOf(err) {
	case volume.KindConfiguration:
		return 2
	case volume.KindAllocation:
		return 3
	case volume.KindIndexing:
		return 4
	}
	return 1
}

func printUsage() {
	fmt.Println(`volbake - density volume baker

Usage:
  volbake [flags] <command> [options]

Commands:
  bake                               Bake a volume from the config (default)
  inspect <file.asset>               Show asset header and value statistics
  preview <file.asset> <out.png>     Render every layer into a contact sheet
  profile <out.png> [file.asset]     Plot density against distance from centre
  catalog list                       List catalogued bakes
  catalog export <name> <dir>        Write a catalogued bake to <dir>/<name>.asset
  write-config [path]                Write the effective config as YAML

Flags:
  -config <path>   -debug   -resolution <n>   -shape <sphere|cylinder|torus|noise>
  -falloff <f>     -noise   -mode <sliced|direct>   -backend <cpu|gl>
  -out <dir>       -name <asset>   -save

Exit status is 2 for a configuration error, 3 when the volume cannot be
allocated, 4 for an internal indexing failure and 1 otherwise.

Examples:
  volbake -shape torus -resolution 64 -save bake
  volbake inspect assets/DensityVolume_densityTex.asset
  volbake preview assets/DensityVolume_densityTex.asset sheet.png`)
}
