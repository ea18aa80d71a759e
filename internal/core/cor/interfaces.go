// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cor (Chain of Responsibility) provides the building blocks for the
// analysis pipeline. The dataset flows through an ordered sequence of commands
// (download, load, clean, render, export) and this file defines the interfaces
// those commands implement. Keeping the contract behind interfaces lets the
// workflow compose, reorder, and test steps independently of one another.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the reserved keys that carry the primary data flow
// between commands in a chain.
const (
	// CtxIn is the default key a command reads its primary input from. The
	// chain populates it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key a command writes its primary output to. The
	// chain moves the value to CtxIn before the next command runs.
	CtxOut = "__OUT__"
)

// Context is the shared state object handed to every command in a chain. It
// carries the in-flight dataset artifacts, any errors the steps have raised,
// and the Go context used for cancellation and trace propagation.
type Context interface {
	// SetContext swaps the standard Go context.Context, primarily so the
	// chain can scope each command under its own trace span.
	SetContext(context context.Context)

	// GetContext returns the current Go context.Context.
	GetContext() context.Context

	// Add stores a key-value pair. Returns the Context for fluent chaining.
	Add(key string, value interface{}) Context

	// AddError records a failure, keyed by the command that produced it.
	AddError(key string, err error)

	// GetErrors returns every error recorded during the run.
	GetErrors() map[string]error

	// Get retrieves a value by key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any command has failed so far.
	HasErrors() bool

	// AddTempFile tracks a scratch file (such as the downloaded archive) so
	// the run can clean it up at the end.
	AddTempFile(file string)

	// GetTempFiles returns every tracked scratch file path.
	GetTempFiles() []string

	// Close removes all tracked scratch files. Defer it when starting a run.
	Close()
}

// Executable is anything with a single unit of execution logic.
type Executable interface {
	// Execute runs the business logic, reading inputs from and writing
	// outputs to the shared Context.
	Execute(context Context)
}

// Command is an atomic, individually testable pipeline step.
type Command interface {
	Executable

	// GetName returns the command's unique name for logs and telemetry.
	GetName() string

	// GetInputParam returns the context key the command reads its input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its output to.
	GetOutputParam() string

	// IsExecutable is the precondition check run before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the command's OpenTelemetry tracer.
	GetTracer() trace.Tracer

	// GetMeter returns the command's OpenTelemetry meter.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the counter incremented on success.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the counter incremented on failure.
	GetErrorCounter() metric.Int64Counter
}

// Chain is an ordered sequence of commands. A Chain is itself a Command, so
// chains nest (Composite pattern).
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after a
	// command records an error. The default is to stop.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
