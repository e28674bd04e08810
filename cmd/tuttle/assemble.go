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
	"fmt"

	"github.com/tombee/tuttle/internal/processorkind"
	"github.com/tombee/tuttle/internal/registry"
	"github.com/tombee/tuttle/internal/resourcekind"
	"github.com/tombee/tuttle/pkg/httpclient"
)

// buildRegistry constructs the registry with every built-in resource kind
// and processor kind, the one place main wires domain behavior into the
// otherwise-generic engine.
func buildRegistry() (*registry.Registry, error) {
	reg := registry.New()
	reg.RegisterResourceKind(resourcekind.FileKind{})

	httpKind, err := resourcekind.NewHTTPKind("http")
	if err != nil {
		return nil, fmt.Errorf("building http resource kind: %w", err)
	}
	reg.RegisterResourceKind(httpKind)

	httpsKind, err := resourcekind.NewHTTPKind("https")
	if err != nil {
		return nil, fmt.Errorf("building https resource kind: %w", err)
	}
	reg.RegisterResourceKind(httpsKind)

	reg.RegisterProcessor(processorkind.ShellProcessor{})

	client, err := httpclient.New(httpclient.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("building download client: %w", err)
	}
	reg.RegisterProcessor(processorkind.DownloadProcessor{Client: client})

	return reg, nil
}
