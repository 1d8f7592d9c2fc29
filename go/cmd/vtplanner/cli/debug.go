/*
Copyright 2026 The Vitess Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/xlab/treeprint"

	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/jobqueue"
	"github.com/olapfe/planstate/go/vt/vtgate/stmtctx"
)

type jobStatus struct {
	Tier    string   `json:"tier"`
	Table   string   `json:"table"`
	Columns []string `json:"columns"`
}

type jobsStatus struct {
	AppenderState   string            `json:"appenderState"`
	CollectorReady  bool              `json:"collectorReady"`
	CollectorState  string            `json:"collectorState"`
	Pending         []jobStatus       `json:"pending"`
	RecentlySkipped map[string]string `json:"recentlySkipped"`
	TasksAnalyzed   int64             `json:"tasksAnalyzed"`
}

func (d *daemons) status() jobsStatus {
	st := jobsStatus{
		AppenderState:   d.appender.State().String(),
		CollectorReady:  d.collector.IsReady(),
		CollectorState:  d.collector.State().String(),
		Pending:         []jobStatus{},
		RecentlySkipped: d.collector.RecentlySkipped(),
		TasksAnalyzed:   d.stats.TasksAnalyzed(),
	}
	if d.collector.IsRunning() && d.collector.IsSuspended() {
		st.CollectorState = "Suspended"
	}
	for _, job := range d.queues.Snapshot() {
		js := jobStatus{Tier: job.Tier.String(), Table: job.Table.String()}
		for _, p := range job.Pairs {
			js.Columns = append(js.Columns, p.String())
		}
		st.Pending = append(st.Pending, js)
	}
	return st
}

// newRouter serves the debug pages. /metrics is registered on the default
// mux by prometheusbackend.Init.
func newRouter(d *daemons) *mux.Router {
	router := mux.NewRouter()
	router.Handle("/debug/jobs", jobsHandler(d)).Methods(http.MethodGet).Name("debug.jobs")
	router.Handle("/debug/leaks", leaksHandler()).Methods(http.MethodGet).Name("debug.leaks")
	router.HandleFunc("/debug/collector/{action:suspend|resume}", collectorHandler(d)).Methods(http.MethodPost).Name("debug.collector")
	router.Handle("/metrics", http.DefaultServeMux).Methods(http.MethodGet)
	return router
}

// jobsHandler serves the pending analysis jobs as JSON, or as a tree of
// tiers, tables and columns with ?format=tree.
func jobsHandler(d *daemons) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") == "tree" {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			if _, err := io.WriteString(w, jobsTree(d.queues.Snapshot())); err != nil {
				log.Warningf("writing /debug/jobs: %v", err)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d.status()); err != nil {
			log.Warningf("writing /debug/jobs: %v", err)
		}
	})
}

type leakStatus struct {
	StatementID  string   `json:"statementId"`
	ConnectionID int64    `json:"connectionId"`
	SQL          string   `json:"sql"`
	OpenFor      string   `json:"openFor"`
	Resources    []string `json:"resources"`
}

// leaksHandler serves the unclosed statements still holding planner
// resources, oldest first.
func leaksHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		leaks := []leakStatus{}
		for _, l := range stmtctx.LeakedStatements() {
			leaks = append(leaks, leakStatus{
				StatementID:  l.StatementID.String(),
				ConnectionID: l.ConnectionID,
				SQL:          l.SQL,
				OpenFor:      l.OpenFor.Round(time.Millisecond).String(),
				Resources:    l.Resources,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(leaks); err != nil {
			log.Warningf("writing /debug/leaks: %v", err)
		}
	})
}

func jobsTree(jobs []jobqueue.Job) string {
	tree := treeprint.NewWithRoot("pending analysis jobs")
	for _, tier := range statistics.AllTiers {
		branch := tree.AddBranch(tier.String())
		for _, job := range jobs {
			if job.Tier != tier {
				continue
			}
			table := branch.AddBranch(job.Table.String())
			for _, p := range job.Pairs {
				table.AddNode(p.String())
			}
		}
	}
	return tree.String()
}

func collectorHandler(d *daemons) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch mux.Vars(r)["action"] {
		case "suspend":
			d.collector.Suspend()
		case "resume":
			d.collector.Resume()
		}
		log.Infof("collector %s requested by %s", mux.Vars(r)["action"], r.RemoteAddr)
		w.WriteHeader(http.StatusNoContent)
	}
}
