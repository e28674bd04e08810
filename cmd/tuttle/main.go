// Copyright 2025 Tom Barlow
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

// Command tuttle is the make-like workflow engine's CLI: it builds a
// workflow file's out-of-date outputs (run) and inspects the last
// recorded run (status).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:           "tuttle",
		Short:         "A make-like dependency-graph workflow engine",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newStatusCommand())

	if err := root.Execute(); err != nil {
		code := 1
		if ee, ok := err.(exitError); ok {
			code = ee.code
		} else {
			fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(code)
	}
}
