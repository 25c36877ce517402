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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-qconv/qconv"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetErr(&buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestClassifyCommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"classify", "--ic", "16", "--oc", "16", "-g", "16", "--in", "8,8"}, "strategy:     depthwise"},
		{[]string{"classify", "--ic", "32", "--oc", "32", "-g", "8", "--in", "8,8"}, "strategy:     groupwise"},
		{[]string{"classify", "--ic", "16", "--oc", "16", "-g", "1", "-k", "5", "--pad", "2", "--in", "8,8"}, "strategy:     im2col"},
		{[]string{"classify", "--acc", "int16", "--ic", "16", "--oc", "16", "-g", "16", "--in", "8,8"}, "strategy:     im2col"},
		{[]string{"classify", "--dim", "3", "--ic", "8", "--oc", "8", "-g", "8", "--in", "4,4,4"}, "strategy:     depthwise"},
	}
	for _, tc := range tests {
		out, err := execute(t, tc.args...)
		require.NoError(t, err, "args %v", tc.args)
		assert.Contains(t, out, tc.want, "args %v", tc.args)
	}
}

func TestClassifyCommandErrors(t *testing.T) {
	_, err := execute(t, "classify", "--in", "8,8,8")
	assert.Error(t, err)

	_, err = execute(t, "classify", "--ic", "10", "-g", "4", "--in", "8,8")
	assert.ErrorIs(t, err, qconv.ErrInvalidParams)

	_, err = execute(t, "classify", "--acc", "int8", "--in", "8,8")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	for _, args := range [][]string{
		{"run", "--ic", "16", "--oc", "16", "-g", "16", "--in", "6,7", "-t", "3", "-n", "2"},
		{"run", "--ic", "32", "--oc", "32", "-g", "8", "--in", "5,5", "-t", "2", "-n", "1", "--granularity", "group", "--relu"},
		{"run", "--ic", "6", "--oc", "10", "-g", "2", "--in", "7,7", "--stride", "2", "-t", "4", "-n", "1", "--output", "int32"},
	} {
		out, err := execute(t, args...)
		require.NoError(t, err, "args %v", args)
		assert.Contains(t, out, "check:      parallel output matches single-threaded run")
	}
}

func TestRunCommandErrors(t *testing.T) {
	_, err := execute(t, "run", "--in", "6,6", "--output", "float32", "-n", "1")
	assert.Error(t, err)

	_, err = execute(t, "run", "--acc", "int16", "--in", "6,6", "-n", "1")
	assert.ErrorIs(t, err, qconv.ErrUnsupportedConfiguration)

	_, err = execute(t, "run", "--in", "6,6", "-n", "0")
	assert.Error(t, err)
}

func TestCPUInfoCommand(t *testing.T) {
	t.Setenv("QCONV_NO_SIMD", "1")
	out, err := execute(t, "cpuinfo")
	require.NoError(t, err)
	assert.Contains(t, out, "level:     scalar")
	assert.Contains(t, out, "blocking:  Mr=4 Nr=4 Kc=128 Mc=32 Nc=32")
}
