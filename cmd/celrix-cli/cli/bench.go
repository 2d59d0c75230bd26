package cli

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/fatih/color"
	"github.com/google/uuid"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	celrix "github.com/celrix/celrix-go"
)

type OperationType string

const (
	OpSet          OperationType = "set"
	OpGetHit       OperationType = "get-hit"
	OpGetMiss      OperationType = "get-miss"
	OpIncr         OperationType = "incr"
	OpVectorAdd    OperationType = "vadd"
	OpVectorSearch OperationType = "vsearch"
)

var allOperations = []OperationType{OpSet, OpGetHit, OpGetMiss, OpIncr, OpVectorAdd, OpVectorSearch}

type BenchmarkResult struct {
	Operation    OperationType
	Duration     time.Duration
	TotalOps     int64
	Failures     int64
	OpsPerSecond float64
	Mean         time.Duration
	P50          time.Duration
	P99          time.Duration
	Correctness  bool
	ErrorMessage string
}

type benchOptions struct {
	operations  []OperationType
	duration    time.Duration
	concurrency int
	valueSize   int
	dims        int
	prometheus  bool
}

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure throughput and latency against a server",
	Args:  cobra.NoArgs,
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().String("operations", "all", "comma separated operations ("+joinOperations()+") or all")
	benchCmd.Flags().Duration("duration", 5*time.Second, "duration of each operation")
	benchCmd.Flags().Int("concurrency", 4, "concurrent workers, one session each")
	benchCmd.Flags().Int("value-size", 128, "value size in bytes")
	benchCmd.Flags().Int("dims", 128, "vector dimension")
	benchCmd.Flags().Bool("prometheus", false, "print per-command metrics in Prometheus format at the end")
}

func joinOperations() string {
	names := make([]string, len(allOperations))
	for i, op := range allOperations {
		names[i] = string(op)
	}
	return strings.Join(names, ",")
}

func parseOperations(s string) ([]OperationType, error) {
	if s == "" || s == "all" {
		return allOperations, nil
	}

	var ops []OperationType
	for _, name := range strings.Split(s, ",") {
		op := OperationType(strings.TrimSpace(name))
		found := false
		for _, known := range allOperations {
			if op == known {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown operation %q", op)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func runBench(cmd *cobra.Command, _ []string) error {
	ops, err := parseOperations(viper.GetString("operations"))
	if err != nil {
		return err
	}
	opts := benchOptions{
		operations:  ops,
		duration:    viper.GetDuration("duration"),
		concurrency: max(1, viper.GetInt("concurrency")),
		valueSize:   viper.GetInt("value-size"),
		dims:        max(1, viper.GetInt("dims")),
		prometheus:  viper.GetBool("prometheus"),
	}

	cfg, err := clientConfig()
	if err != nil {
		return err
	}
	set := metrics.NewSet()
	cfg.Metrics = set

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "CELRIX Benchmark Tool")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintf(out, "Server: %s (%s)\n", cfg.Addr(), cfg.Protocol)
	fmt.Fprintf(out, "Duration: %v\n", opts.duration)
	fmt.Fprintf(out, "Concurrency: %d\n", opts.concurrency)
	fmt.Fprintln(out)

	clients := make([]*celrix.Client, opts.concurrency)
	for i := range clients {
		ctx, cancel := commandContext(cmd)
		c, err := celrix.Connect(ctx, cfg)
		cancel()
		if err != nil {
			return fmt.Errorf("connect worker %d: %w", i, err)
		}
		defer c.Close()
		clients[i] = c
	}

	for _, op := range opts.operations {
		fmt.Fprintf(out, "--- Running %s benchmark ---\n", op)
		result := runOperation(cmd.Context(), clients, op, opts)
		printResult(out, result)
	}

	if opts.prometheus {
		set.WritePrometheus(out)
	}
	return nil
}

// opFunc runs one operation for a worker; i counts the worker's calls.
type opFunc func(ctx context.Context, c *celrix.Client, worker, i int) error

func runOperation(ctx context.Context, clients []*celrix.Client, op OperationType, opts benchOptions) *BenchmarkResult {
	result := &BenchmarkResult{Operation: op, Correctness: true}

	fn, err := prepare(ctx, clients[0], op, opts)
	if err != nil {
		result.Correctness = false
		result.ErrorMessage = err.Error()
		return result
	}

	hist := gometrics.NewHistogram(gometrics.NewUniformSample(100_000))
	var totalOps, failures atomic.Int64
	var mismatch atomic.Value

	start := time.Now()
	deadline := start.Add(opts.duration)

	var wg sync.WaitGroup
	for w, c := range clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; time.Now().Before(deadline); i++ {
				opStart := time.Now()
				err := fn(ctx, c, w, i)
				hist.Update(int64(time.Since(opStart)))
				totalOps.Add(1)
				if err != nil {
					failures.Add(1)
					if _, ok := err.(correctnessError); ok {
						mismatch.Store(err.Error())
					}
					if c.Session().IsClosed() {
						return
					}
				}
			}
		}()
	}
	wg.Wait()

	result.Duration = time.Since(start)
	result.TotalOps = totalOps.Load()
	result.Failures = failures.Load()
	if msg, ok := mismatch.Load().(string); ok {
		result.Correctness = false
		result.ErrorMessage = msg
	}
	if result.TotalOps > 0 {
		result.OpsPerSecond = float64(result.TotalOps) / result.Duration.Seconds()
		result.Mean = time.Duration(hist.Mean())
		ps := hist.Percentiles([]float64{0.5, 0.99})
		result.P50 = time.Duration(ps[0])
		result.P99 = time.Duration(ps[1])
	}
	return result
}

type correctnessError string

func (e correctnessError) Error() string { return string(e) }

// prepare seeds the data an operation reads and returns its body.
func prepare(ctx context.Context, c *celrix.Client, op OperationType, opts benchOptions) (opFunc, error) {
	run := uuid.NewString()
	value := []byte(strings.Repeat("x", opts.valueSize))

	switch op {
	case OpSet:
		return func(ctx context.Context, c *celrix.Client, w, i int) error {
			_, err := c.Set(ctx, fmt.Sprintf("bench:%s:%d:%d", run, w, i), value, time.Minute)
			return err
		}, nil

	case OpGetHit:
		key := "bench:" + run + ":hit"
		if _, err := c.Set(ctx, key, value, time.Hour); err != nil {
			return nil, fmt.Errorf("failed to set initial value: %w", err)
		}
		return func(ctx context.Context, c *celrix.Client, _, _ int) error {
			got, found, err := c.Get(ctx, key)
			if err != nil {
				return err
			}
			if !found || got != string(value) {
				return correctnessError("value mismatch on " + key)
			}
			return nil
		}, nil

	case OpGetMiss:
		return func(ctx context.Context, c *celrix.Client, _, _ int) error {
			_, found, err := c.Get(ctx, "bench:miss:"+uuid.NewString())
			if err != nil {
				return err
			}
			if found {
				return correctnessError("unexpected hit on a random key")
			}
			return nil
		}, nil

	case OpIncr:
		key := "bench:" + run + ":counter"
		return func(ctx context.Context, c *celrix.Client, _, _ int) error {
			_, err := c.Incr(ctx, key)
			return err
		}, nil

	case OpVectorAdd:
		return func(ctx context.Context, c *celrix.Client, w, i int) error {
			_, err := c.VectorAdd(ctx, fmt.Sprintf("bench:%s:vec:%d:%d", run, w, i), randomVector(opts.dims))
			return err
		}, nil

	case OpVectorSearch:
		for i := range 100 {
			if _, err := c.VectorAdd(ctx, fmt.Sprintf("bench:%s:seed:%d", run, i), randomVector(opts.dims)); err != nil {
				return nil, fmt.Errorf("failed to seed vectors: %w", err)
			}
		}
		return func(ctx context.Context, c *celrix.Client, _, _ int) error {
			_, err := c.VectorSearch(ctx, randomVector(opts.dims), 10)
			return err
		}, nil

	default:
		return nil, fmt.Errorf("unknown operation: %s", op)
	}
}

func randomVector(dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = rand.Float32()*2 - 1
	}
	return v
}

func printResult(out io.Writer, r *BenchmarkResult) {
	fmt.Fprintf(out, "Operation:    %s\n", r.Operation)
	if r.ErrorMessage != "" && r.TotalOps == 0 {
		fmt.Fprintln(out, color.RedString("Error:        %s", r.ErrorMessage))
		fmt.Fprintln(out)
		return
	}
	fmt.Fprintf(out, "Duration:     %v\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "Total ops:    %d\n", r.TotalOps)
	fmt.Fprintf(out, "Failures:     %d\n", r.Failures)
	fmt.Fprintf(out, "Ops/sec:      %.0f\n", r.OpsPerSecond)
	fmt.Fprintf(out, "Latency:      mean %v, p50 %v, p99 %v\n", r.Mean, r.P50, r.P99)
	if r.Correctness {
		fmt.Fprintln(out, color.GreenString("Correctness:  ok"))
	} else {
		fmt.Fprintln(out, color.RedString("Correctness:  FAILED (%s)", r.ErrorMessage))
	}
	fmt.Fprintln(out)
}
