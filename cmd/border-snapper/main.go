package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/iancoleman/strcase"
	"github.com/tj/go-spin"
	"github.com/urfave/cli/v2"

	"github.com/bsaid97/go-border-snapper/boundary"
	"github.com/bsaid97/go-border-snapper/config"
	"github.com/bsaid97/go-border-snapper/country"
	"github.com/bsaid97/go-border-snapper/export"
	"github.com/bsaid97/go-border-snapper/handlers"
	"github.com/bsaid97/go-border-snapper/loader"
	"github.com/bsaid97/go-border-snapper/logger"
	"github.com/bsaid97/go-border-snapper/pipeline"
	"github.com/bsaid97/go-border-snapper/utils"
)

const (
	INPUT       string = `input`
	FORMAT      string = `format`
	OUTPUT      string = `output`
	COUNTRY     string = `country`
	COUNTRYCODE string = `countryCode`
	LEVEL       string = `level`
	RELEASE     string = `release`
	FIDELITY    string = `fidelity`
	PARAMS      string = `params`
	TOLERANCE   string = `toleranceM`
	ISLANDS     string = `islandRadiusM`
	SIMPLIFY    string = `simplifyM`
	PRECISION   string = `precisionGridM`
	SEARCH      string = `searchRadiusM`
	CONTIGUITY  string = `contiguity`
	COVERAGE    string = `coverageToleranceM`
)

func main() {
	logger.Setup()

	app := cli.NewApp()
	app.Name = "border-snapper"
	app.Usage = "Snap and clip polygons to administrative boundaries"
	app.Commands = []*cli.Command{reconcileCommand(), dissolveCommand(), checkCommand()}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     INPUT,
			Aliases:  []string{"i"},
			Usage:    "Input file: GeoJSON, KML, KMZ or zipped shapefile",
			Required: true,
			EnvVars:  []string{strcase.ToScreamingSnake(INPUT)},
		},
		&cli.StringFlag{
			Name:    FORMAT,
			Usage:   "Input format, detected from the file name when empty",
			EnvVars: []string{strcase.ToScreamingSnake(FORMAT)},
		},
	}
}

func reconcileCommand() *cli.Command {
	flags := append(inputFlags(),
		&cli.StringFlag{
			Name:    OUTPUT,
			Aliases: []string{"o"},
			Usage:   "Output path prefix; .geojson, .kml and .zip are appended",
			Value:   "result",
			EnvVars: []string{strcase.ToScreamingSnake(OUTPUT)},
		},
		&cli.StringFlag{
			Name:    COUNTRY,
			Aliases: []string{"c"},
			Usage:   "Country name",
			EnvVars: []string{strcase.ToScreamingSnake(COUNTRY)},
		},
		&cli.StringFlag{
			Name:    COUNTRYCODE,
			Usage:   "ISO3 country code, skips name resolution",
			EnvVars: []string{strcase.ToScreamingSnake(COUNTRYCODE)},
		},
		&cli.IntFlag{
			Name:    LEVEL,
			Aliases: []string{"l"},
			Usage:   "Administrative level: 0 national, 1 regional, 2 district",
			EnvVars: []string{strcase.ToScreamingSnake(LEVEL)},
		},
		&cli.StringFlag{
			Name:    RELEASE,
			Usage:   "Boundary dataset release, defaults to BOUNDARY_RELEASE",
			EnvVars: []string{strcase.ToScreamingSnake(RELEASE)},
		},
		&cli.StringFlag{
			Name:    FIDELITY,
			Usage:   "full or simplified boundary geometry",
			Value:   string(boundary.Full),
			EnvVars: []string{strcase.ToScreamingSnake(FIDELITY)},
		},
		&cli.StringFlag{
			Name:    PARAMS,
			Usage:   "YAML file with snap parameters; flags override it",
			EnvVars: []string{strcase.ToScreamingSnake(PARAMS)},
		},
		&cli.Float64Flag{Name: TOLERANCE, Usage: "Snap tolerance in meters", EnvVars: []string{strcase.ToScreamingSnake(TOLERANCE)}},
		&cli.Float64Flag{Name: ISLANDS, Usage: "Island inclusion radius in meters, 0 disables", EnvVars: []string{strcase.ToScreamingSnake(ISLANDS)}},
		&cli.Float64Flag{Name: SIMPLIFY, Usage: "Simplification tolerance in meters, 0 disables", EnvVars: []string{strcase.ToScreamingSnake(SIMPLIFY)}},
		&cli.Float64Flag{Name: PRECISION, Usage: "Precision grid in meters, 0 disables", EnvVars: []string{strcase.ToScreamingSnake(PRECISION)}},
		&cli.Float64Flag{Name: SEARCH, Usage: "Candidate search radius in meters", EnvVars: []string{strcase.ToScreamingSnake(SEARCH)}},
		&cli.StringFlag{Name: CONTIGUITY, Usage: "all_parts or largest_part", EnvVars: []string{strcase.ToScreamingSnake(CONTIGUITY)}},
	)

	return &cli.Command{
		Name:  "reconcile",
		Usage: "Snap an input polygon to a country boundary and write the result",
		Flags: flags,
		Action: func(c *cli.Context) error {
			params, err := snapParameters(c)
			if err != nil {
				return err
			}
			upload, format, err := readInput(c)
			if err != nil {
				return err
			}
			fidelity, err := boundary.ParseFidelity(c.String(FIDELITY))
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			provider, err := boundary.NewProviderFromConfig(cfg)
			if err != nil {
				return err
			}
			defer provider.Close()
			runner := pipeline.NewRunner(provider, country.NewResolver(cfg.CountryOnlineLookup))

			var result *pipeline.Result
			err = withSpinner("reconciling", func() error {
				var runErr error
				result, runErr = runner.Run(c.Context, pipeline.Request{
					Upload:      upload,
					Format:      format,
					Country:     c.String(COUNTRY),
					CountryCode: c.String(COUNTRYCODE),
					Level:       c.Int(LEVEL),
					Release:     c.String(RELEASE),
					Fidelity:    fidelity,
					Params:      params,
				})
				return runErr
			})
			if err != nil {
				return err
			}

			outputs := export.All(result.Collection, filepath.Base(c.String(OUTPUT)))
			for format, data := range outputs.Files {
				path := c.String(OUTPUT) + format.Extension()
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				log.Printf("  wrote %s", path)
			}
			if err := outputs.Err(); err != nil {
				log.Printf("  some formats failed: %v", err)
			}
			return printJSON(result.Report)
		},
	}
}

func dissolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "dissolve",
		Usage: "Merge every polygon of the input into one feature and print it as GeoJSON",
		Flags: append(inputFlags(), &cli.Float64Flag{
			Name:    PRECISION,
			Usage:   "Precision grid in meters, 0 disables",
			EnvVars: []string{strcase.ToScreamingSnake(PRECISION)},
		}),
		Action: func(c *cli.Context) error {
			fc, err := loadPolygons(c)
			if err != nil {
				return err
			}
			dissolved, err := handlers.Dissolve(fc, c.Float64(PRECISION))
			if err != nil {
				return err
			}
			body, err := export.GeoJSON(dissolved)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(append(body, '\n'))
			return err
		},
	}
}

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Report invalid features, and gaps and overlaps between them",
		Flags: append(inputFlags(), &cli.Float64Flag{
			Name:    COVERAGE,
			Usage:   "Gap and overlap tolerance in meters, 0 skips the coverage check",
			EnvVars: []string{strcase.ToScreamingSnake(COVERAGE)},
		}),
		Action: func(c *cli.Context) error {
			upload, format, err := readInput(c)
			if err != nil {
				return err
			}
			fc, err := loader.Load(upload, format)
			if err != nil {
				return err
			}
			out := map[string]interface{}{"errors": handlers.CheckGeometry(fc)}
			if tolerance := c.Float64(COVERAGE); tolerance > 0 {
				if fc.CRS == handlers.WGS84 {
					tolerance = utils.CalculateWGS84ToleranceFromMeters(tolerance)
				}
				out["coverage"] = handlers.CheckCoverage(fc, tolerance)
			}
			return printJSON(out)
		},
	}
}

// snapParameters layers defaults, the --params YAML file and explicit flags.
func snapParameters(c *cli.Context) (handlers.SnapParameters, error) {
	params := handlers.DefaultSnapParameters()
	if path := c.String(PARAMS); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return params, err
		}
		if err := yaml.Unmarshal(data, &params); err != nil {
			return params, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	for flag, dst := range map[string]*float64{
		TOLERANCE: &params.ToleranceM,
		ISLANDS:   &params.IslandRadiusM,
		SIMPLIFY:  &params.SimplifyM,
		PRECISION: &params.PrecisionGridM,
		SEARCH:    &params.SearchRadiusM,
	} {
		if c.IsSet(flag) {
			*dst = c.Float64(flag)
		}
	}
	if c.IsSet(CONTIGUITY) {
		params.Contiguity = handlers.ContiguityPolicy(c.String(CONTIGUITY))
	}
	return params, params.Validate()
}

func readInput(c *cli.Context) ([]byte, loader.Format, error) {
	path := c.String(INPUT)
	var (
		format loader.Format
		err    error
	)
	if name := c.String(FORMAT); name != "" {
		format, err = loader.ParseFormat(name)
	} else {
		format, err = loader.DetectFormat(path)
	}
	if err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func loadPolygons(c *cli.Context) (handlers.FeatureCollection, error) {
	data, format, err := readInput(c)
	if err != nil {
		return handlers.FeatureCollection{}, err
	}
	fc, err := loader.Load(data, format)
	if err != nil {
		return fc, err
	}
	fc, err = handlers.PolygonFeatures(fc)
	if err != nil {
		return fc, err
	}
	if fc.CRS != handlers.WGS84 {
		fc, _ = handlers.ReprojectCollection(fc, handlers.WGS84)
	}
	return fc, nil
}

// withSpinner shows a spinner on stderr while work runs.
func withSpinner(label string, work func() error) error {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s := spin.New()
		s.Set(spin.Box1)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				fmt.Fprint(os.Stderr, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(os.Stderr, "\r  %s %s", s.Next(), label)
			}
		}
	}()
	err := work()
	cancel()
	<-done
	return err
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
