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
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/olapfe/planstate/go/stats/prometheusbackend"
	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/utils"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog/memorycatalog"
	"github.com/olapfe/planstate/go/vt/vtgate/plannerenv"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/autoanalyze"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/jobqueue"
	"github.com/olapfe/planstate/go/vt/vtgate/statistics/memstats"
	"github.com/olapfe/planstate/go/vt/vtgate/stmtctx"
)

var (
	cfg         = plannerenv.NewDefaultConfig()
	configFile  string
	catalogSeed string
	port        int

	Main = &cobra.Command{
		Use:   "vtplanner",
		Short: "vtplanner runs the statistics auto-analyze daemons of the planner.",
		Example: `vtplanner \
	--catalog-seed catalog.yaml \
	--port 15100 \
	--auto-check-statistics-interval 1m \
	--alsologtostderr`,
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := log.Init(cmd.Flags()); err != nil {
				return err
			}
			if configFile != "" {
				if err := plannerenv.LoadConfigFile(configFile, cmd.Flags()); err != nil {
					return err
				}
			}
			return cfg.Verify()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			log.Flush()
		},
		RunE: run,
	}
)

func init() {
	fs := Main.PersistentFlags()
	fs.SetNormalizeFunc(utils.NormalizeUnderscoresToDashes)
	log.RegisterFlags(fs)
	cfg.RegisterFlags(fs)
	utils.SetFlagStringVar(fs, &configFile, "config", configFile, "YAML or JSON file with planner settings; command line flags take precedence")
	utils.SetFlagStringVar(fs, &catalogSeed, "catalog-seed", catalogSeed, "YAML file describing the databases and tables of the catalog")
	utils.SetFlagIntVar(Main.Flags(), &port, "port", port, "HTTP port serving /metrics and /debug/jobs; 0 disables it")

	Main.AddCommand(lockCheck)
}

func loadCatalog() (*memorycatalog.Catalog, error) {
	if catalogSeed == "" {
		return memorycatalog.New(), nil
	}
	return memorycatalog.LoadSeedFile(catalogSeed)
}

// daemons are the statistics services of one vtplanner process.
type daemons struct {
	queues    *jobqueue.Queues
	recorder  *statistics.Recorder
	stats     *memstats.Stats
	collector *autoanalyze.Collector
	appender  *autoanalyze.Appender
}

func newDaemons(cat *memorycatalog.Catalog, aa *plannerenv.AutoAnalyzeConfig) *daemons {
	d := &daemons{
		queues:   jobqueue.NewQueues(aa.JobMapSize),
		recorder: statistics.NewRecorder(aa.ColumnQueueSize),
		stats:    memstats.New(),
	}
	d.collector = autoanalyze.NewCollector(aa, cat, d.stats, d.queues, d.stats)
	d.appender = autoanalyze.NewAppender(aa, cat, d.stats, d.recorder, d.queues, d.collector)
	return d
}

func (d *daemons) open() {
	d.collector.Open()
	d.appender.Open()
}

func (d *daemons) close() {
	d.appender.Close()
	d.collector.Shutdown()
}

func run(cmd *cobra.Command, args []string) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	log.Infof("starting vtplanner, catalog has %d databases, non-default settings: %v", len(cat.DatabaseIDs()), cfg)

	d := newDaemons(cat, &cfg.AutoAnalyze)
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if port != 0 {
		prometheusbackend.Init("vtplanner")
		srv = &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           newRouter(d),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server: %v", err)
				stop()
			}
		}()
	}

	d.open()
	<-ctx.Done()
	log.Infof("shutting down vtplanner")
	d.close()
	if err := stmtctx.CheckNoLeaks(); err != nil {
		log.Errorf("vtplanner shutdown: %v", err)
	}
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
	return nil
}
