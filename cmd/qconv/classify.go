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
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ajroetker/go-qconv/qconv"
	"github.com/ajroetker/go-qconv/qconv/kernels"
)

func newClassifyCmd() *cobra.Command {
	var flags convFlags
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Report the execution strategy and scratch sizes of a convolution",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, acc, err := flags.params()
			if err != nil {
				return err
			}
			bf := kernels.DefaultBlockingFactors()
			strategy := qconv.Classify(p, acc)

			pr := message.NewPrinter(language.English)
			w := cmd.OutOrStdout()
			pr.Fprintf(w, "params:       %s\n", p)
			pr.Fprintf(w, "accumulator:  %s\n", acc)
			pr.Fprintf(w, "strategy:     %s\n", strategy)
			pr.Fprintf(w, "output dims:  %v\n", p.OutDim())
			pr.Fprintf(w, "activations:  %d bytes\n", p.ActivationSize())
			pr.Fprintf(w, "weights:      %d bytes\n", p.WeightSize())
			pr.Fprintf(w, "outputs:      %d\n", p.OutputSize())
			pr.Fprintf(w, "row offsets:  %d int32\n", qconv.RowOffsetBufferSize(p, strategy, bf))
			if strategy == qconv.Im2col {
				pr.Fprintf(w, "blocking:     Mr=%d Nr=%d Kc=%d Mc=%d Nc=%d\n", bf.Mr, bf.Nr, bf.Kc, bf.Mc, bf.Nc)
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}
