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

// Command qconv inspects and benchmarks the quantized convolution
// dispatcher.
//
// Usage:
//
//	qconv classify --ic 32 --oc 32 --groups 32 --in 56,56
//	qconv run --ic 64 --oc 64 --groups 8 --in 28,28 --threads 8 --iters 20
//	qconv cpuinfo
//
// classify reports which execution strategy a convolution takes and the
// scratch it needs. run packs random weights, runs the convolution on a
// worker pool and checks the result against a single-threaded run.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qconv",
		Short:         "Quantized convolution dispatcher tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newClassifyCmd(), newRunCmd(), newCPUInfoCmd())
	return root
}
