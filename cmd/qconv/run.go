// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"math/rand"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajroetker/go-qconv/qconv"
	"github.com/ajroetker/go-qconv/qconv/kernels"
	"github.com/ajroetker/go-qconv/qconv/workerpool"
)

type runFlags struct {
	conv        convFlags
	threads     int
	iters       int
	seed        int64
	granularity string
	relu        bool
	output      string
	check       bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pack random weights, run the convolution and report throughput",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConv(cmd, &flags)
		},
	}
	flags.conv.register(cmd.Flags())
	fs := cmd.Flags()
	fs.IntVarP(&flags.threads, "threads", "t", 0, "Worker threads (0 = GOMAXPROCS)")
	fs.IntVarP(&flags.iters, "iters", "n", 10, "Timed iterations")
	fs.Int64Var(&flags.seed, "seed", 1, "Random seed for activations and weights")
	fs.StringVar(&flags.granularity, "granularity", "tensor", "Quantization granularity (tensor, group, out_channel)")
	fs.BoolVar(&flags.relu, "relu", false, "Fuse ReLU into the output pipeline")
	fs.StringVar(&flags.output, "output", "uint8", "Output type (uint8 or int32)")
	fs.BoolVar(&flags.check, "check", true, "Compare the parallel result with a single-threaded run")
	return cmd
}

// problem is a randomly initialized convolution ready to run.
type problem struct {
	p       qconv.ConvParams
	pw      *qconv.PackedWeights
	act     []uint8
	quant   qconv.QuantParams
	mults   []float32
	outZero int32
}

func newProblem(f *runFlags) (*problem, error) {
	p, acc, err := f.conv.params()
	if err != nil {
		return nil, err
	}
	gran, err := qconv.ParseGranularity(f.granularity)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(f.seed))

	act := make([]uint8, p.ActivationSize())
	for i := range act {
		act[i] = uint8(rng.Intn(256))
	}
	weights := make([]int8, p.WeightSize())
	for i := range weights {
		weights[i] = int8(rng.Intn(256) - 128)
	}
	pw, err := qconv.PackWeights(p, acc, weights, nil)
	if err != nil {
		return nil, err
	}

	n := gran.Count(p)
	bZeroPoints := make([]int32, n)
	mults := make([]float32, n)
	for i := range n {
		bZeroPoints[i] = int32(rng.Intn(5) - 2)
		mults[i] = 1 / float32(p.KernelProd()*p.ICPerGroup()*64)
	}
	colOffsets, err := qconv.ColumnOffsets(p, weights, bZeroPoints, gran)
	if err != nil {
		return nil, err
	}
	return &problem{
		p:   p,
		pw:  pw,
		act: act,
		quant: qconv.QuantParams{
			AZeroPoint:  int32(rng.Intn(256)),
			BZeroPoints: bZeroPoints,
			ColOffsets:  colOffsets,
			Granularity: gran,
			ReLUFused:   f.relu,
		},
		mults:   mults,
		outZero: 128,
	}, nil
}

// timing is the outcome of a benchmark.
type timing struct {
	best, total time.Duration
	iters       int
}

func runConv(cmd *cobra.Command, f *runFlags) error {
	if f.iters <= 0 {
		return errors.Errorf("--iters must be positive, got %d", f.iters)
	}
	prob, err := newProblem(f)
	if err != nil {
		return err
	}
	pool := workerpool.New(f.threads)
	defer pool.Close()

	var t timing
	switch f.output {
	case "uint8":
		t, err = benchmark(pool, prob, f.iters, f.check, func() qconv.OutputProcessor[uint8] {
			return &qconv.ReQuantizeOutput{QuantParams: prob.quant, CMultipliers: prob.mults, CZeroPoint: prob.outZero}
		})
	case "int32":
		t, err = benchmark(pool, prob, f.iters, f.check, func() qconv.OutputProcessor[int32] {
			return &qconv.AccumulatorOutput{QuantParams: prob.quant}
		})
	default:
		return errors.Errorf("unknown --output %q, want uint8 or int32", f.output)
	}
	if err != nil {
		return err
	}

	p := prob.p
	ops := 2 * int64(p.MB) * int64(p.OutSpatialProd()) * int64(p.OC) * int64(p.KernelProd()*p.ICPerGroup())
	pr := message.NewPrinter(language.English)
	w := cmd.OutOrStdout()
	pr.Fprintf(w, "params:     %s\n", p)
	pr.Fprintf(w, "strategy:   %s (acc %s)\n", prob.pw.Strategy(), prob.pw.AccKind())
	pr.Fprintf(w, "threads:    %d\n", pool.NumWorkers())
	pr.Fprintf(w, "ops:        %d\n", ops)
	pr.Fprintf(w, "best:       %v (%.2f GOPS)\n", t.best, float64(ops)/t.best.Seconds()/1e9)
	pr.Fprintf(w, "mean:       %v over %d iterations\n", t.total/time.Duration(t.iters), t.iters)
	if f.check {
		pr.Fprintf(w, "check:      parallel output matches single-threaded run\n")
	}
	return nil
}

func benchmark[T kernels.Output](
	pool *workerpool.Pool,
	prob *problem,
	iters int,
	check bool,
	newProc func() qconv.OutputProcessor[T],
) (timing, error) {
	p := prob.p
	out := make([]T, p.OutputSize())
	outBuffer := make([]int32, p.OutputSize())

	t := timing{best: time.Duration(1<<63 - 1), iters: iters}
	for range iters {
		start := time.Now()
		if err := qconv.RunParallel(pool, p, prob.act, prob.pw, out, outBuffer, newProc(), nil); err != nil {
			return timing{}, err
		}
		elapsed := time.Since(start)
		t.best = min(t.best, elapsed)
		t.total += elapsed
	}

	if check {
		want := make([]T, p.OutputSize())
		if err := qconv.Run(p, prob.act, prob.pw, want, make([]int32, p.OutputSize()), newProc(), 0, 1, nil); err != nil {
			return timing{}, err
		}
		if !slices.Equal(out, want) {
			idx := firstMismatch(out, want)
			return timing{}, errors.Errorf("parallel output differs from single-threaded run at index %d: %v != %v",
				idx, out[idx], want[idx])
		}
	}
	return t, nil
}

func firstMismatch[T comparable](a, b []T) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}
