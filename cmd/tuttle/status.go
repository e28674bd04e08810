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

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/tuttle/internal/config"
	"github.com/tombee/tuttle/internal/jqfilter"
	"github.com/tombee/tuttle/internal/state"
)

func newStatusCommand() *cobra.Command {
	var (
		configPath string
		jqExpr     string
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last recorded workflow run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			filter := jqfilter.New(jqfilter.DefaultTimeout)
			if err := filter.Validate(jqExpr); err != nil {
				return err
			}

			mgr, err := state.NewManager(cfg.StateDir)
			if err != nil {
				return err
			}
			doc, err := mgr.Load()
			if err != nil {
				return err
			}
			if doc == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no previous run recorded")
				return nil
			}

			result, err := filter.RunJSON(cmd.Context(), jqExpr, doc)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "tuttle.yaml", "path to the engine config file")
	cmd.Flags().StringVar(&jqExpr, "jq", "", "filter the status document through a jq expression")

	return cmd
}
