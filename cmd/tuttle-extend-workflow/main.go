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

// Command tuttle-extend-workflow is the helper a preprocess calls to
// render a template into a workflow fragment under the running engine's
// .tuttle/extensions directory. See spec §4.5/§6.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/tombee/tuttle/internal/extend"
	tuttleerrors "github.com/tombee/tuttle/pkg/errors"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr *os.File) int {
	flags := pflag.NewFlagSet("tuttle-extend-workflow", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	name := flags.StringP("name", "n", "extension", "base name for the generated fragment")
	verbose := flags.BoolP("verbose", "v", false, "echo the template path and expanded variables")

	if err := flags.Parse(args); err != nil {
		return 1
	}

	rest := flags.Args()
	if len(rest) < 1 {
		fmt.Fprintln(stderr, "usage: tuttle-extend-workflow [-v] [-n NAME] TEMPLATE_PATH KEY=VAL | KEY[]=V0 V1 ...")
		return 1
	}
	templatePath, varArgs := rest[0], rest[1:]

	if *verbose {
		fmt.Fprintf(stdout, "template: %s\n", templatePath)
		fmt.Fprintf(stdout, "variables: %s\n", strings.Join(varArgs, " "))
	}

	path, err := extend.Run(templatePath, varArgs, *name, os.LookupEnv)
	if err != nil {
		var extErr *tuttleerrors.ExtendError
		if errors.As(err, &extErr) {
			fmt.Fprintln(stderr, extErr.Error())
		} else {
			fmt.Fprintln(stderr, err.Error())
		}
		return 1
	}

	if *verbose {
		fmt.Fprintf(stdout, "wrote %s\n", path)
	}
	return 0
}
