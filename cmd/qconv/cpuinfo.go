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

	"github.com/ajroetker/go-qconv/internal/cpuinfo"
	"github.com/ajroetker/go-qconv/qconv/kernels"
)

func newCPUInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cpuinfo",
		Short: "Show detected CPU features and the blocking factors they select",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cpuinfo.Detect()
			bf := kernels.BlockingFactorsFor(f.Level())

			pr := message.NewPrinter(language.English)
			w := cmd.OutOrStdout()
			pr.Fprintf(w, "arch:      %s (%d CPUs)\n", f.Arch, f.NumCPU)
			pr.Fprintf(w, "level:     %s\n", f.Level())
			switch f.Arch {
			case "amd64", "386":
				pr.Fprintf(w, "avx2=%t fma=%t avx512f=%t avx512bw=%t avx512vnni=%t\n",
					f.HasAVX2, f.HasFMA, f.HasAVX512F, f.HasAVX512BW, f.HasAVX512VNNI)
			case "arm64":
				pr.Fprintf(w, "asimd=%t asimddp=%t sve=%t\n", f.HasASIMD, f.HasASIMDDP, f.HasSVE)
			}
			if f.NoSIMD {
				pr.Fprintf(w, "QCONV_NO_SIMD is set\n")
			}
			pr.Fprintf(w, "blocking:  Mr=%d Nr=%d Kc=%d Mc=%d Nc=%d\n", bf.Mr, bf.Nr, bf.Kc, bf.Mc, bf.Nc)
			return nil
		},
	}
}
