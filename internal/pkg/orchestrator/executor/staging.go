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

package executor

import (
	"context"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/engine/repo"
)

// Readiness is the staging view of one build task.
type Readiness struct {
	AllReady bool
	Uploaded map[model.Platform]*model.BuildUpload
	Missing  []model.Platform
}

// CheckAllPlatformsReady reports which platforms have an unused upload staged for
// (releaseId, stage, cycleId).
func CheckAllPlatformsReady(ctx context.Context, uploads repo.IBuildUploadRepository, releaseId string, stage model.Stage, cycleId string, platforms []model.Platform) (Readiness, error) {
	staged, err := uploads.ListUnused(ctx, releaseId, stage, cycleId)
	if err != nil {
		return Readiness{}, err
	}
	byPlatform := make(map[model.Platform]*model.BuildUpload, len(staged))
	for _, u := range staged {
		byPlatform[u.Platform] = u
	}
	out := Readiness{Uploaded: make(map[model.Platform]*model.BuildUpload, len(platforms))}
	for _, p := range platforms {
		if u, ok := byPlatform[p]; ok {
			out.Uploaded[p] = u
			continue
		}
		out.Missing = append(out.Missing, p)
	}
	out.AllReady = len(platforms) > 0 && len(out.Missing) == 0
	return out, nil
}
