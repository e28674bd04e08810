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

package tracing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/codes"

	"github.com/tombee/tuttle/internal/tracing"
)

func TestStartProcessSpan_RecordsSuccess(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, tp, err := tracing.New(sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, end := provider.StartProcessSpan(context.Background(), "p1")
	end(true)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestStartProcessSpan_RecordsFailure(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider, tp, err := tracing.New(sdktrace.WithSyncer(exporter))
	require.NoError(t, err)
	defer tp.Shutdown(context.Background())

	_, end := provider.StartProcessSpan(context.Background(), "p1")
	end(false)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
