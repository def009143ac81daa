// Package invokertest provides an in-memory Invoker for tests.
package invokertest

import (
	"context"
	"sync"

	"github.com/hochfrequenz/arp-orchestrator/internal/invoker"
)

// Call is one recorded invocation
type Call struct {
	Op     invoker.Operation
	Params invoker.Params
}

// Fake records invocations and answers with preset exit codes per stage
type Fake struct {
	mu       sync.Mutex
	calls    []Call
	prepared []Call
	codes    map[string]int
	errs     map[string]error
	prepErrs map[string]error
}

// New returns a Fake where every stage succeeds
func New() *Fake {
	return &Fake{codes: map[string]int{}, errs: map[string]error{}, prepErrs: map[string]error{}}
}

// FailStage makes stage exit with code
func (f *Fake) FailStage(stage string, code int) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[stage] = code
	return f
}

// LaunchError makes stage fail to start with err and code
func (f *Fake) LaunchError(stage string, code int, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[stage] = code
	f.errs[stage] = err
	return f
}

// PrepareError makes Prepare fail for stage
func (f *Fake) PrepareError(stage string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepErrs[stage] = err
	return f
}

func (f *Fake) Prepare(op invoker.Operation, p invoker.Params) (invoker.Command, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prepared = append(f.prepared, Call{Op: op, Params: p})
	if err := f.prepErrs[p.Stage]; err != nil {
		return invoker.Command{}, err
	}
	args := append([]string{op.Target}, p.ExtraArgs...)
	return invoker.Command{Path: string(op.Kind), Args: args}, nil
}

func (f *Fake) Invoke(_ context.Context, op invoker.Operation, p invoker.Params) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Params: p})
	return f.codes[p.Stage], f.errs[p.Stage]
}

// Calls returns the recorded invocations in order
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Stages returns the invoked stage IDs in order
func (f *Fake) Stages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, c := range f.calls {
		ids = append(ids, c.Params.Stage)
	}
	return ids
}

// Prepared returns the stage IDs passed to Prepare in order
func (f *Fake) Prepared() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, c := range f.prepared {
		ids = append(ids, c.Params.Stage)
	}
	return ids
}
