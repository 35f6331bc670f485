package utils

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	commandLabel = "command"
	errTypeLabel = "error_type"
	stateLabel   = "state"
)

var (
	commandRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxkernel_command_runs",
		Help: "The number of commands run.",
	}, []string{
		commandLabel,
	})

	commandErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxkernel_command_errors",
		Help: "The errors that occured while running a command.",
	}, []string{
		commandLabel,
		errTypeLabel,
	})

	commandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "voxkernel_command_latency",
		Help: "The time to run a command.",
	}, []string{
		commandLabel,
	})

	meshQuads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxkernel_mesh_quads",
		Help: "The number of quads emitted by the greedy mesher.",
	})

	meshTruncatedSlices = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxkernel_mesh_truncated_slices",
		Help: "The number of slices that hit the merge ceiling.",
	})

	fragments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voxkernel_fragments",
		Help: "The number of k-means clusters produced.",
	}, []string{
		stateLabel,
	})

	traversalHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "voxkernel_traversal_hits",
		Help: "The number of occupied voxels reported by ray casts.",
	})
)

// instrumentCommand records a finished command. Call it deferred with the
// command's named error.
func instrumentCommand(command string, start time.Time, err error) {
	commandLatency.With(prometheus.Labels{
		commandLabel: command,
	}).Observe(time.Since(start).Seconds())

	commandRuns.With(prometheus.Labels{
		commandLabel: command,
	}).Inc()

	if err != nil {
		commandErrors.
			With(prometheus.Labels{
				commandLabel: command,
				errTypeLabel: errors.Type(err),
			}).
			Inc()
	}
}

func instrumentMesh(quads, truncated int) {
	meshQuads.Add(float64(quads))
	meshTruncatedSlices.Add(float64(truncated))
}

func instrumentFragments(nonEmpty, empty int) {
	fragments.With(prometheus.Labels{stateLabel: "non_empty"}).Add(float64(nonEmpty))
	fragments.With(prometheus.Labels{stateLabel: "empty"}).Add(float64(empty))
}

// WriteMetrics dumps the default registry to a node exporter textfile.
func WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return errors.New("writing metrics failed").
			WithTag("path", path).
			Wrap(err)
	}
	return nil
}
