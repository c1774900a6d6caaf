// Copyright 2025 Arcentra Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package integration

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// DefaultThreshold passes a run once nothing is left untested and nothing failed.
const DefaultThreshold = "Untested == 0 && Failed == 0"

// thresholdEnv is the variable set visible to threshold expressions.
type thresholdEnv struct {
	Total    int
	Passed   int
	Failed   int
	Blocked  int
	Untested int
	PassRate float64
}

// ThresholdEvaluator compiles boolean expressions over TestRunStatus, e.g.
// "PassRate >= 95 && Blocked == 0". Compiled programs are cached by source.
type ThresholdEvaluator struct {
	cache sync.Map
}

func NewThresholdEvaluator() *ThresholdEvaluator {
	return &ThresholdEvaluator{}
}

// Compile validates source without evaluating it.
func (e *ThresholdEvaluator) Compile(source string) error {
	_, err := e.program(source)
	return err
}

// Met reports whether status satisfies source. An empty source uses DefaultThreshold.
func (e *ThresholdEvaluator) Met(source string, status TestRunStatus) (bool, error) {
	prog, err := e.program(source)
	if err != nil {
		return false, err
	}
	out, err := expr.Run(prog, thresholdEnv{
		Total:    status.Total,
		Passed:   status.Passed,
		Failed:   status.Failed,
		Blocked:  status.Blocked,
		Untested: status.Untested,
		PassRate: status.PassRate(),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate threshold %q: %w", source, err)
	}
	return out.(bool), nil
}

func (e *ThresholdEvaluator) program(source string) (*vm.Program, error) {
	if source == "" {
		source = DefaultThreshold
	}
	if p, ok := e.cache.Load(source); ok {
		return p.(*vm.Program), nil
	}
	p, err := expr.Compile(source, expr.Env(thresholdEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile threshold %q: %w", source, err)
	}
	e.cache.Store(source, p)
	return p, nil
}
