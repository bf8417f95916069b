package jobs

import (
	"runtime"

	"github.com/rs/zerolog/log"

	"github.com/urlwash/urlwash/internal/cache"
	"github.com/urlwash/urlwash/internal/rules"
	"github.com/urlwash/urlwash/internal/types"
	"github.com/urlwash/urlwash/internal/urlutil"
)

// workerBuffer is the per-worker channel depth. Small, so a slow worker
// exerts backpressure instead of queueing the whole input.
const workerBuffer = 16

// Pipeline applies a rule list to a stream of job inputs with a fixed
// worker pool. Output order always equals input order; the ordering is
// structural (matched round-robin fan-out and fan-in), not corrective.
type Pipeline struct {
	Workers int
	Rules   rules.Rules
	Params  *types.Params
	Commons *rules.Commons
	Cache   *cache.Cache
	Context *types.PipelineContext
}

func (p *Pipeline) workerCount() int {
	if p.Workers > 0 {
		return p.Workers
	}
	return runtime.NumCPU()
}

// Run consumes inputs until the channel closes and returns a channel of
// outcomes in input order. There is no cancellation: the pipeline runs to
// input exhaustion, and a failing job never aborts the batch.
func (p *Pipeline) Run(inputs <-chan string) <-chan Outcome {
	n := p.workerCount()
	runID := types.NewRunID()
	log.Debug().Str("run_id", string(runID)).Int("workers", n).Msg("pipeline started")

	in := make([]chan string, n)
	out := make([]chan Outcome, n)
	for w := 0; w < n; w++ {
		in[w] = make(chan string, workerBuffer)
		out[w] = make(chan Outcome, workerBuffer)
	}

	// Producer: input i goes to worker i mod n, strict FIFO per worker.
	go func() {
		i := 0
		for input := range inputs {
			in[i%n] <- input
			i++
		}
		for w := 0; w < n; w++ {
			close(in[w])
		}
	}()

	for w := 0; w < n; w++ {
		go func(w int) {
			for input := range in[w] {
				out[w] <- p.runJob(input)
			}
			close(out[w])
		}(w)
	}

	// Collector: cycle the output channels in the same order the producer
	// assigned them. The first closed receive means every channel is
	// drained, because worker k could only ever hold fewer outputs than
	// the one that just ran dry.
	results := make(chan Outcome)
	go func() {
		for i := 0; ; i++ {
			outcome, ok := <-out[i%n]
			if !ok {
				break
			}
			results <- outcome
		}
		close(results)
		log.Debug().Str("run_id", string(runID)).Msg("pipeline drained")
	}()

	return results
}

func (p *Pipeline) runJob(input string) Outcome {
	jobID := types.NewJobID()
	outcome := Outcome{JobID: jobID, Input: input}

	cfg, err := ParseConfig(input)
	if err != nil {
		outcome.Err = &MakeJobError{Err: err}
		return outcome
	}
	u, err := urlutil.Parse(cfg.URL)
	if err != nil {
		outcome.Err = &MakeJobError{Err: err}
		return outcome
	}

	st := rules.NewState(u, p.Params, p.Commons, p.Cache)
	if cfg.Context != nil {
		st.JobContext = cfg.Context
	}
	if p.Context != nil {
		st.Pipeline = p.Context
	}

	if err := p.Rules.Apply(st); err != nil {
		log.Debug().Str("job_id", string(jobID)).Str("url", cfg.URL).Err(err).Msg("job failed")
		outcome.Err = &DoJobError{Err: err}
		return outcome
	}
	outcome.URL = st.URL.String()
	log.Debug().Str("job_id", string(jobID)).Str("from", cfg.URL).Str("to", outcome.URL).Msg("job done")
	return outcome
}
