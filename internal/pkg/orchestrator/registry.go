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

package orchestrator

import "sync"

// MachineRegistry caches one state machine per release for the lifetime of its owner.
type MachineRegistry struct {
	mu       sync.Mutex
	machines map[string]*ReleaseStateMachine
	factory  func(releaseId string) *ReleaseStateMachine
}

func NewMachineRegistry(factory func(releaseId string) *ReleaseStateMachine) *MachineRegistry {
	return &MachineRegistry{
		machines: make(map[string]*ReleaseStateMachine),
		factory:  factory,
	}
}

// Get returns the cached machine of releaseId, building it on first use.
func (r *MachineRegistry) Get(releaseId string) *ReleaseStateMachine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.machines[releaseId]; ok {
		return m
	}
	m := r.factory(releaseId)
	r.machines[releaseId] = m
	return m
}

// Evict drops the machine of releaseId; the next Get builds a fresh one.
func (r *MachineRegistry) Evict(releaseId string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.machines, releaseId)
}

func (r *MachineRegistry) Contains(releaseId string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.machines[releaseId]
	return ok
}

func (r *MachineRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}
