package loadgen

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/pcmatch/internal/adapters/repository"
	"github.com/okian/pcmatch/internal/domain/model"
	"github.com/okian/pcmatch/internal/synth"
	"github.com/okian/pcmatch/pkg/logger"
)

// Defaults applied to zero Config fields.
const (
	defaultSolves       = 20
	defaultReviewers    = 40
	defaultPapers       = 25
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 50 * time.Millisecond
	defaultDeadline     = 5 * time.Minute
)

func (c *Config) applyDefaults() {
	if c.Solves <= 0 {
		c.Solves = defaultSolves
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Round == "" {
		c.Round = model.RoundR1
	}
	if c.Reviewers <= 0 {
		c.Reviewers = defaultReviewers
	}
	if c.Papers <= 0 {
		c.Papers = defaultPapers
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}
	if c.Deadline <= 0 {
		c.Deadline = defaultDeadline
	}
	if c.RunID == "" {
		c.RunID = uuid.NewString()
	}
}

// key is the idempotency key of solve i. Keys repeat only when RunID does.
func (c *Config) key(i int) string {
	return "loadgen-" + c.RunID + "-" + strconv.Itoa(i)
}

// Run submits cfg.Solves synthetic solves, waits for all accepted ones and
// checks every successful assignment against its capacities and demand.
func Run(ctx context.Context, cfg Config) (Stats, error) { //nolint:gocritic // hugeParam: config is copied once per run
	cfg.applyDefaults()
	log := logger.Named("loadgen")
	stats := Stats{RunID: cfg.RunID, StartTime: time.Now()}
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "submitting solves",
		logger.Int("solves", cfg.Solves),
		logger.Int("workers", cfg.Workers),
		logger.String("round", string(cfg.Round)),
		logger.String("run", cfg.RunID),
	)
	ids, err := submitAll(ctx, client, &cfg, &stats)
	if err != nil {
		return stats, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.Deadline)
	defer cancel()
	for _, id := range ids {
		rec, err := client.Wait(waitCtx, id, cfg.PollInterval)
		if err != nil {
			return stats, err
		}
		tally(&stats, rec)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "load run completed",
		logger.Int("accepted", stats.Accepted),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("rejected", stats.Rejected),
		logger.Int("succeeded", stats.Succeeded),
		logger.Int("infeasible", stats.Infeasible),
		logger.Int("failed", stats.Failed),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
	)
	if stats.Violations > 0 {
		return stats, fmt.Errorf("%d solve(s) broke a capacity or demand constraint", stats.Violations)
	}
	return stats, nil
}

// submitAll fans the submissions out to a worker pool and returns the
// distinct IDs of accepted solves.
func submitAll(ctx context.Context, client *Client, cfg *Config, stats *Stats) ([]string, error) {
	var (
		submitted, accepted, duplicate, rejected int64
		mu                                       sync.Mutex
		ids                                      []string
		firstErr                                 error
	)

	jobs := make(chan int, cfg.Workers*2)
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				gen := synth.DefaultConfig()
				gen.Reviewers = cfg.Reviewers
				gen.Papers = cfg.Papers
				gen.Seed = cfg.Seed + int64(i)
				snap, err := synth.Generate(ctx, gen)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}

				atomic.AddInt64(&submitted, 1)
				resp, err := client.Submit(ctx, cfg.key(i), cfg.Round, snap)
				switch {
				case errors.Is(err, ErrRejected):
					atomic.AddInt64(&rejected, 1)
				case err != nil:
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
				case resp.Duplicate:
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&accepted, 1)
					mu.Lock()
					ids = append(ids, resp.ID)
					mu.Unlock()
				}
			}
		}()
	}

	// Send jobs to workers
	go func() {
		defer close(jobs)
		for i := 0; i < cfg.Solves; i++ {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()
	wg.Wait()

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Accepted = int(atomic.LoadInt64(&accepted))
	stats.Duplicate = int(atomic.LoadInt64(&duplicate))
	stats.Rejected = int(atomic.LoadInt64(&rejected))
	if firstErr != nil {
		return ids, fmt.Errorf("submit solves: %w", firstErr)
	}
	return ids, ctx.Err()
}

func tally(stats *Stats, rec repository.Record) { //nolint:gocritic // hugeParam: record is read-only
	switch {
	case rec.Status == repository.StatusSucceeded:
		stats.Succeeded++
		if len(Violations(rec)) > 0 {
			stats.Violations++
		}
	case rec.FailureKind == "infeasible":
		stats.Infeasible++
	default:
		stats.Failed++
	}
}

// Violations lists every capacity or demand constraint a finished solve
// breaks. A record without a result has none.
func Violations(rec repository.Record) []string { //nolint:gocritic // hugeParam: record is read-only
	res := rec.Result
	if res == nil {
		return nil
	}
	var out []string
	for _, p := range res.Papers {
		if got := res.Stats.PaperCoverage[p.ID]; got != p.NumReviews {
			out = append(out, fmt.Sprintf("paper %s has %d reviews, wants %d", p.ID, got, p.NumReviews))
		}
	}
	for _, r := range res.Reviewers {
		if got := res.Stats.ReviewerLoad[r.Email]; got > r.MaxLoad {
			out = append(out, fmt.Sprintf("reviewer %s has load %d over %d", r.Email, got, r.MaxLoad))
		}
	}
	seen := make(map[model.Key]struct{}, len(res.Assignments))
	for _, a := range res.Assignments {
		k := model.Key{Email: a.Reviewer, Paper: a.Paper}
		if _, dup := seen[k]; dup {
			out = append(out, fmt.Sprintf("reviewer %s assigned twice to paper %s", a.Reviewer, a.Paper))
		}
		seen[k] = struct{}{}
	}
	return out
}
