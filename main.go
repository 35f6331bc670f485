//go:build !(js && wasm)

package main

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/encoding/json"
	"github.com/voxelsplace/voxkernel/job"
	"github.com/voxelsplace/voxkernel/utils"
)

var (
	// The voxkernel version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "voxkernel_info",
		Help:        "Voxkernel information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

var _ = reflect.TypeOf(config{})

type config struct {
	Command     string      `cli:""        env:"VOXKERNEL_COMMAND"      help:"Command to run (mesh|fragment|raycast|boxes|pack|unpack|packglb|edit|diff|rle|noise)."`
	In          string      `cli:""        env:"VOXKERNEL_IN"           help:"Input .vopl or .voplpack file."`
	Inputs      []string    `cli:""        env:"VOXKERNEL_INPUTS"       help:"Comma separated .vopl files to pack."`
	Out         string      `cli:""        env:"VOXKERNEL_OUT"          help:"Output file or directory."`
	GLB         string      `cli:""        env:"VOXKERNEL_GLB"          help:"Optional .glb output of the fragment command."`
	Job         string      `cli:""        env:"VOXKERNEL_JOB"          help:"YAML job file (placement, fragments, mesher, colliders, filter)."`
	Edits       string      `cli:""        env:"VOXKERNEL_EDITS"        help:"VPE edit stream applied by the edit command."`
	From        string      `cli:""        env:"VOXKERNEL_FROM"         help:"Base .vopl of the diff command; empty diffs against an empty grid."`
	Origin      string      `cli:""        env:"VOXKERNEL_ORIGIN"       help:"Ray origin in world space (x,y,z)."`
	Direction   string      `cli:""        env:"VOXKERNEL_DIRECTION"    help:"Ray direction in world space (x,y,z)."`
	AllHits     bool        `cli:""        env:"VOXKERNEL_ALL_HITS"     help:"Report every occupied voxel along the ray instead of the first."`
	Layout      string      `cli:""        env:"VOXKERNEL_LAYOUT"       help:"Pack layout (raw|cdc)."`
	Compression string      `cli:""        env:"VOXKERNEL_COMPRESSION"  help:"Pack compression (none|zlib|zstd)."`
	Size        string      `cli:""        env:"VOXKERNEL_SIZE"         help:"Grid size (w,h,d) of the rle and noise commands."`
	RLE         string      `cli:""        env:"VOXKERNEL_RLE"          help:"Run list (count,material,...) of the rle command."`
	Noise       noiseConfig `cli:",hidden" env:"-"                      help:"Noise generation configuration."`
	MetricsFile string      `cli:""        env:"VOXKERNEL_METRICS_FILE" help:"Write metrics to this node exporter textfile on exit."`
	LogLevel    string      `cli:""        env:"VOXKERNEL_LOG_LEVEL"    help:"Log level (debug|info|warning|error)."`
	LogIndent   bool        `cli:""        env:"VOXKERNEL_LOG_INDENT"   help:"Indent logs."`
	Version     bool        `cli:""        env:"-"                      help:"Show version."`
	Help        bool        `cli:""        env:"-"                      help:"Show help."`
}

type noiseConfig struct {
	FillMin     int   `cli:",hidden" env:"VOXKERNEL_NOISE_FILL_MIN"     help:"Minimum fill percentage."`
	FillMax     int   `cli:",hidden" env:"VOXKERNEL_NOISE_FILL_MAX"     help:"Maximum fill percentage."`
	MaxMaterial int   `cli:",hidden" env:"VOXKERNEL_NOISE_MAX_MATERIAL" help:"Highest material index used."`
	Amount      int   `cli:",hidden" env:"VOXKERNEL_NOISE_AMOUNT"       help:"Number of models to generate."`
	Seed        int64 `cli:",hidden" env:"VOXKERNEL_NOISE_SEED"         help:"Base seed."`
}

func main() {
	conf := config{
		Layout:      "raw",
		Compression: "zlib",
		Size:        "16,16,16",
		Origin:      "0,0,0",
		Direction:   "0,-1,0",
		LogLevel:    logs.InfoLevel.String(),
		Noise: noiseConfig{
			FillMin:     10,
			FillMax:     10,
			MaxMaterial: 63,
			Amount:      1,
		},
	}

	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Meshes, fragments, ray casts and packs VOPL voxel models.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	runID := uuid.NewString()
	err := run(ctx, conf)
	if conf.MetricsFile != "" {
		if merr := utils.WriteMetrics(conf.MetricsFile); merr != nil {
			logs.Warn(merr)
		}
	}
	if err != nil {
		logs.Fatal(errors.New("command failed").
			WithTag("run_id", runID).
			WithTag("command", conf.Command).
			Wrap(err))
	}

	logs.WithTag("run_id", runID).
		WithTag("command", conf.Command).
		WithTag("version", version).
		Debug("command completed")
}

func run(ctx context.Context, conf config) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	j, err := job.Load(conf.Job)
	if err != nil {
		return err
	}
	layout, err := utils.ParseLayout(conf.Layout)
	if err != nil {
		return err
	}
	comp, err := utils.ParseCompression(conf.Compression)
	if err != nil {
		return err
	}

	switch conf.Command {
	case "mesh":
		if err := requireFlags(conf, "in", "out"); err != nil {
			return err
		}
		return utils.RunVOPL2GLB(conf.In, conf.Out, j)

	case "fragment":
		if err := requireFlags(conf, "in", "out"); err != nil {
			return err
		}
		return utils.RunFragment(conf.In, conf.Out, conf.GLB, j, layout, comp)

	case "raycast":
		if err := requireFlags(conf, "in"); err != nil {
			return err
		}
		origin, err := utils.ParseVec3(conf.Origin)
		if err != nil {
			return err
		}
		dir, err := utils.ParseVec3(conf.Direction)
		if err != nil {
			return err
		}
		return utils.RunRaycast(conf.In, j, origin, dir, conf.AllHits, os.Stdout)

	case "boxes":
		if err := requireFlags(conf, "in"); err != nil {
			return err
		}
		return utils.RunColliders(conf.In, j, os.Stdout)

	case "pack":
		if len(conf.Inputs) == 0 || conf.Out == "" {
			return usageError(conf.Command, "inputs", "out")
		}
		return utils.CreatePack(conf.Inputs, conf.Out, layout, comp)

	case "unpack":
		if err := requireFlags(conf, "in", "out"); err != nil {
			return err
		}
		return utils.RunVOPLPACK2VOPL(conf.In, conf.Out)

	case "packglb":
		if err := requireFlags(conf, "in", "out"); err != nil {
			return err
		}
		return utils.RunVOPLPACK2GLB(conf.In, conf.Out, j)

	case "edit":
		if err := requireFlags(conf, "in", "edits", "out"); err != nil {
			return err
		}
		return utils.RunUpdateVOPL(conf.In, conf.Edits, conf.Out)

	case "diff":
		if err := requireFlags(conf, "in", "out"); err != nil {
			return err
		}
		return utils.RunDiffVOPL(conf.From, conf.In, conf.Out)

	case "rle":
		if err := requireFlags(conf, "rle", "out"); err != nil {
			return err
		}
		size, err := utils.ParseSize(conf.Size)
		if err != nil {
			return err
		}
		return utils.RunRLE2VOPL(size, conf.RLE, conf.Out)

	case "noise":
		if err := requireFlags(conf, "out"); err != nil {
			return err
		}
		size, err := utils.ParseSize(conf.Size)
		if err != nil {
			return err
		}
		return utils.RunGenerateNoiseVOPL(utils.NoiseOptions{
			Size:        size,
			FillMin:     float64(conf.Noise.FillMin),
			FillMax:     float64(conf.Noise.FillMax),
			MaxMaterial: conf.Noise.MaxMaterial,
			Amount:      conf.Noise.Amount,
			Seed:        conf.Noise.Seed,
		}, conf.Out)

	default:
		return errors.New("unknown command").
			WithType(utils.ErrTypeInvalidArgument).
			WithTag("command", conf.Command)
	}
}

func requireFlags(conf config, names ...string) error {
	values := map[string]string{
		"in":    conf.In,
		"out":   conf.Out,
		"edits": conf.Edits,
		"rle":   conf.RLE,
	}
	for _, n := range names {
		if values[n] == "" {
			return usageError(conf.Command, names...)
		}
	}
	return nil
}

func usageError(command string, flags ...string) error {
	return errors.New("missing required flags").
		WithType(utils.ErrTypeInvalidArgument).
		WithTag("command", command).
		WithTag("flags", "-"+strings.Join(flags, ", -"))
}
