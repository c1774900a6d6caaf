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

package jira

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arcentrix/launchpad/internal/engine/model"
	"github.com/arcentrix/launchpad/internal/pkg/integration"
	"github.com/arcentrix/launchpad/internal/pkg/orchestrator/errs"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestCreateAndCheckTickets(t *testing.T) {
	statuses := map[string]string{"MOB-1": "Done", "MOB-2": "In Review"}
	n := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot", user)
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/rest/api/2/issue":
			var body map[string]map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Contains(t, body["fields"]["summary"], "Release 2.1.0")
			n++
			writeJSON(w, http.StatusCreated, `{"key":"MOB-`+string(rune('0'+n))+`"}`)
		case strings.HasPrefix(r.URL.Path, "/rest/api/2/issue/"):
			key := strings.TrimPrefix(r.URL.Path, "/rest/api/2/issue/")
			writeJSON(w, http.StatusOK, `{"fields":{"status":{"name":"`+statuses[key]+`"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Config{BaseUrl: srv.URL, User: "bot", ApiToken: "x", ProjectKey: "MOB"})
	tickets, err := c.CreateTickets(context.Background(), integration.TicketRequest{
		ReleaseId: "r1",
		Version:   "2.1.0",
		Platforms: []model.Platform{model.PlatformAndroid, model.PlatformIOS},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"ANDROID": "MOB-1", "IOS": "MOB-2"}, tickets)

	st, err := c.CheckTicketStatus(context.Background(), tickets)
	require.NoError(t, err)
	assert.False(t, st.Approved)
	assert.Equal(t, "In Review", st.Statuses["IOS"])

	statuses["MOB-2"] = "approved"
	st, err = c.CheckTicketStatus(context.Background(), tickets)
	require.NoError(t, err)
	assert.True(t, st.Approved)
}

func TestCreateTicketsErrors(t *testing.T) {
	c := New(Config{BaseUrl: "http://127.0.0.1:1"})
	_, err := c.CreateTickets(context.Background(), integration.TicketRequest{Platforms: []model.Platform{model.PlatformWeb}})
	assert.True(t, errs.IsValidation(err))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"errorMessages":["bad project"]}`)
	}))
	defer srv.Close()
	c = New(Config{BaseUrl: srv.URL, ProjectKey: "X"})
	_, err = c.CreateTickets(context.Background(), integration.TicketRequest{Platforms: []model.Platform{model.PlatformWeb}})
	assert.True(t, errs.IsExternal(err))
	assert.Contains(t, err.Error(), "bad project")
}
