package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/Faultbox/densitybaker/internal/bake"
	"github.com/Faultbox/densitybaker/internal/config"
	"github.com/Faultbox/densitybaker/internal/export"
	"github.com/Faultbox/densitybaker/internal/logger"
	"github.com/Faultbox/densitybaker/internal/preview"
	"github.com/Faultbox/densitybaker/pkg/formats"
	"github.com/Faultbox/densitybaker/pkg/volume"
)

// runBake bakes the configured volume.
func runBake(ctx context.Context, cfg *config.Config) (*bake.Result, error) {
	params, err := cfg.BakeParams()
	if err != nil {
		return nil, err
	}
	mode, err := bake.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return nil, err
	}

	backend, err := bake.NewBackend(cfg.Pipeline.Backend, cfg.Pipeline.Workers)
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	b := bake.New(backend, bake.Options{
		Resolution: cfg.Bake.Resolution,
		Mode:       mode,
		Workers:    cfg.Pipeline.Workers,
	})
	return b.Bake(ctx, params)
}

func exportOptions(cfg *config.Config) (export.Options, error) {
	enc, err := formats.ParseEncoding(cfg.Export.Encoding)
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{Encoding: enc, Compress: cfg.Export.Compress}, nil
}

func cmdBake(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := runBake(ctx, cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Bake:       %s\n", res.ID)
	fmt.Printf("Params:     %s\n", res.Params)
	fmt.Printf("Resolution: %d (%d voxels)\n", res.Resolution, res.Grid.Len())
	fmt.Printf("Pipeline:   %s on %s, %d layers\n", res.Mode, res.Backend, res.Layers)
	fmt.Printf("Density:    mean %.4f  stddev %.4f  range [%.4f, %.4f]\n",
		res.Stats.Mean, res.Stats.StdDev, res.Stats.Min, res.Stats.Max)
	fmt.Printf("Fill:       %.1f%%\n", 100*res.Stats.Fill(res.Grid.Len()))
	fmt.Printf("Duration:   %s\n", res.Duration)

	opts, err := exportOptions(cfg)
	if err != nil {
		return err
	}

	var exporters export.Multi
	if cfg.Export.SaveToDisk {
		exporters = append(exporters, export.NewFileExporter(cfg.Export.Dir, opts))
	}
	if cfg.Export.Catalog != "" {
		catalog, err := export.OpenCatalog(cfg.Export.Catalog)
		if err != nil {
			return err
		}
		defer catalog.Close()
		exporters = append(exporters, export.NewCatalogExporter(catalog, opts))
	}
	if len(exporters) == 0 {
		logger.Info("bake not exported (enable export.save_to_disk or export.catalog)")
		return nil
	}

	name := cfg.ExportName()
	out, err := exporters.Export(ctx, name, res)
	if err != nil {
		return err
	}
	fmt.Printf("Export:     %s (%s)\n", name, out)
	return nil
}

func cmdInspect(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: volbake inspect <file.asset>")
	}

	d, err := formats.ParseDVOLFile(args[0])
	if err != nil {
		return err
	}

	stats := bake.ComputeStats(d.Grid())
	fmt.Printf("Asset:      %s\n", args[0])
	fmt.Printf("Name:       %s\n", d.Name)
	fmt.Printf("Version:    %s\n", d.Version)
	fmt.Printf("Resolution: %d (%d voxels)\n", d.Resolution, d.VoxelCount())
	fmt.Printf("Encoding:   %s (zstd: %v)\n", d.Encoding, d.Compressed)
	fmt.Printf("Sampler:    wrap=%s filter=%s\n", wrapName(d.Wrap), filterName(d.Filter))
	fmt.Printf("Density:    mean %.4f  stddev %.4f  range [%.4f, %.4f]\n",
		stats.Mean, stats.StdDev, stats.Min, stats.Max)
	fmt.Printf("Fill:       %.1f%%\n", 100*stats.Fill(d.VoxelCount()))
	return nil
}

func wrapName(w formats.WrapMode) string {
	if w == formats.WrapClamp {
		return "clamp"
	}
	return "repeat"
}

func filterName(f formats.FilterMode) string {
	if f == formats.FilterBilinear {
		return "bilinear"
	}
	return "point"
}

func cmdPreview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	scale := fs.Int("scale", 4, "Pixels per voxel")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: volbake preview [-scale n] <file.asset> <out.png>")
	}

	d, err := formats.ParseDVOLFile(fs.Arg(0))
	if err != nil {
		return err
	}
	if err := preview.WriteContactSheet(fs.Arg(1), d.Grid(), *scale); err != nil {
		return err
	}
	fmt.Printf("Wrote %s (%d layers)\n", fs.Arg(1), d.Resolution)
	return nil
}

func cmdProfile(cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: volbake profile <out.png> [file.asset]")
	}

	var (
		grid  *volume.PackedGrid
		title string
	)
	if len(args) > 1 {
		d, err := formats.ParseDVOLFile(args[1])
		if err != nil {
			return err
		}
		grid, title = d.Grid(), d.Name
	} else {
		res, err := runBake(context.Background(), cfg)
		if err != nil {
			return err
		}
		grid, title = res.Grid, res.Params.String()
	}

	if err := preview.WriteProfilePlot(args[0], grid, title); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", args[0])
	return nil
}

func cmdCatalog(cfg *config.Config, args []string) error {
	if cfg.Export.Catalog == "" {
		return fmt.Errorf("no catalog configured (export.catalog)")
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: volbake catalog <list|export> [args]")
	}

	catalog, err := export.OpenCatalog(cfg.Export.Catalog)
	if err != nil {
		return err
	}
	defer catalog.Close()

	ctx := context.Background()
	switch args[0] {
	case "list", "ls":
		entries, err := catalog.List(ctx)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-32s %-8s %4d  %-6s %-6s mean=%.4f  %s\n",
				e.Name, e.Shape, e.Resolution, e.Mode, e.Encoding, e.Mean,
				e.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Printf("\n%d bakes\n", len(entries))
		return nil

	case "export":
		if len(args) < 3 {
			return fmt.Errorf("usage: volbake catalog export <name> <dir>")
		}
		name, dir := args[1], args[2]
		d, err := catalog.Asset(ctx, name)
		if err != nil {
			return err
		}
		out, err := export.NewFileExporter(dir, export.Options{}).WriteAsset(name, d)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s\n", filepath.Join(dir, name+export.AssetExt), out)
		return nil
	}
	return fmt.Errorf("unknown catalog command: %s", args[0])
}

func cmdWriteConfig(cfg *config.Config, args []string) error {
	if len(args) > 0 {
		if err := cfg.SaveTo(args[0]); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", args[0])
		return nil
	}
	if err := cfg.Save(); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	return nil
}
