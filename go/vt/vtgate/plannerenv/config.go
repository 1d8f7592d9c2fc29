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

// Package plannerenv holds the operator tunable settings of the planner
// state layer and the auto-analyze daemons.
package plannerenv

import (
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/log"
	"github.com/olapfe/planstate/go/vt/utils"
	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/stmtctx"
)

const timeOfDayLayout = "15:04:05"

// AutoAnalyzeConfig tunes the appender and collector daemons.
type AutoAnalyzeConfig struct {
	Enabled                bool
	InternalCatalogEnabled bool
	// StartTime and EndTime bound the daily window in which the collector
	// may run, as HH:MM:SS. A window whose end is before its start spans
	// midnight.
	StartTime string
	EndTime   string

	// CheckInterval is the collector round period.
	CheckInterval time.Duration
	// AppendInterval is the appender round period.
	AppendInterval time.Duration
	// LowJobInterval is the minimum period of a full sweep of the catalog.
	LowJobInterval time.Duration
	InitialDelay   time.Duration

	MaxConcurrentTasks int
	JobMapSize         int
	TableBatchSize     int
	ColumnQueueSize    int

	// HugeTableLowerBoundSize is the byte size from which tables are
	// sampled. Zero samples every table.
	HugeTableLowerBoundSize uint64
	HugeTableSampleRows     int64
	PartitionAnalyzeEnabled bool
	// TableWidthThreshold skips tables with more columns in the full sweep.
	TableWidthThreshold int
	// HealthThreshold is the table health percentage below which columns
	// are analyzed again.
	HealthThreshold int
	// LongInterval is the age after which columns of a changed table are
	// analyzed again even when healthy.
	LongInterval time.Duration

	start, end time.Duration
}

// Config is the planner environment.
type Config struct {
	// LockTimeout bounds the wait for each table read lock while planning.
	LockTimeout time.Duration
	AutoAnalyze AutoAnalyzeConfig
}

// NewDefaultConfig returns the default settings.
func NewDefaultConfig() *Config {
	c := &Config{
		LockTimeout: stmtctx.DefaultLockTimeout,
		AutoAnalyze: AutoAnalyzeConfig{
			Enabled:                 true,
			InternalCatalogEnabled:  true,
			StartTime:               "00:00:00",
			EndTime:                 "23:59:59",
			CheckInterval:           5 * time.Minute,
			AppendInterval:          time.Second,
			LowJobInterval:          time.Minute,
			InitialDelay:            20 * time.Second,
			MaxConcurrentTasks:      1,
			JobMapSize:              100,
			TableBatchSize:          100,
			ColumnQueueSize:         1000,
			HugeTableLowerBoundSize: 5 * humanize.GiByte,
			HugeTableSampleRows:     4194304,
			TableWidthThreshold:     300,
			HealthThreshold:         90,
			LongInterval:            24 * time.Hour,
		},
	}
	c.AutoAnalyze.start, c.AutoAnalyze.end = 0, 24*time.Hour-time.Second
	return c
}

// byteSize is a flag value accepting sizes such as "5GiB".
type byteSize struct {
	p *uint64
}

func (b byteSize) Set(s string) error {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return err
	}
	*b.p = n
	return nil
}

func (b byteSize) String() string {
	if b.p == nil {
		return "0"
	}
	return humanize.IBytes(*b.p)
}

func (b byteSize) Type() string {
	return "bytes"
}

// RegisterFlags binds every setting of c to a flag of fs. The current values
// of c are the flag defaults.
func (c *Config) RegisterFlags(fs *pflag.FlagSet) {
	aa := &c.AutoAnalyze
	utils.SetFlagDurationVar(fs, &c.LockTimeout, "planner-table-lock-timeout", c.LockTimeout, "Time to wait for each table read lock while planning a statement")
	utils.SetFlagBoolVar(fs, &aa.Enabled, "enable-auto-analyze", aa.Enabled, "Collect column statistics automatically")
	utils.SetFlagBoolVar(fs, &aa.InternalCatalogEnabled, "enable-auto-analyze-internal-catalog", aa.InternalCatalogEnabled, "Sweep the internal catalog for tables to analyze")
	utils.SetFlagStringVar(fs, &aa.StartTime, "auto-analyze-start-time", aa.StartTime, "Start of the daily auto analyze window (HH:MM:SS)")
	utils.SetFlagStringVar(fs, &aa.EndTime, "auto-analyze-end-time", aa.EndTime, "End of the daily auto analyze window (HH:MM:SS)")
	utils.SetFlagDurationVar(fs, &aa.CheckInterval, "auto-check-statistics-interval", aa.CheckInterval, "Period of the statistics collector")
	utils.SetFlagDurationVar(fs, &aa.AppendInterval, "auto-analyze-append-interval", aa.AppendInterval, "Period of the analyze job appender")
	utils.SetFlagDurationVar(fs, &aa.LowJobInterval, "auto-analyze-low-job-interval", aa.LowJobInterval, "Minimum period of a full sweep of the catalog")
	utils.SetFlagDurationVar(fs, &aa.InitialDelay, "auto-analyze-initial-delay", aa.InitialDelay, "Wait for row counts to be reported before the first collection")
	utils.SetFlagIntVar(fs, &aa.MaxConcurrentTasks, "auto-analyze-max-concurrent-tasks", aa.MaxConcurrentTasks, "Analysis tasks run at the same time")
	utils.SetFlagIntVar(fs, &aa.JobMapSize, "auto-analyze-job-map-size", aa.JobMapSize, "Tables held by each priority tier")
	utils.SetFlagIntVar(fs, &aa.TableBatchSize, "auto-analyze-table-batch-size", aa.TableBatchSize, "Tables appended by one round of the catalog sweep")
	utils.SetFlagIntVar(fs, &aa.ColumnQueueSize, "auto-analyze-column-queue-size", aa.ColumnQueueSize, "Queried columns buffered per priority tier")
	utils.SetFlagVar(fs, byteSize{&aa.HugeTableLowerBoundSize}, "huge-table-lower-bound-size", "Tables of at least this size are sampled")
	utils.SetFlagInt64Var(fs, &aa.HugeTableSampleRows, "huge-table-sample-rows", aa.HugeTableSampleRows, "Rows sampled from huge tables")
	utils.SetFlagBoolVar(fs, &aa.PartitionAnalyzeEnabled, "enable-partition-analyze", aa.PartitionAnalyzeEnabled, "Analyze partitioned tables per partition with a full scan")
	utils.SetFlagIntVar(fs, &aa.TableWidthThreshold, "auto-analyze-table-width-threshold", aa.TableWidthThreshold, "Tables with more columns are skipped by the catalog sweep")
	utils.SetFlagIntVar(fs, &aa.HealthThreshold, "table-stats-health-threshold", aa.HealthThreshold, "Health percentage below which statistics are collected again")
	utils.SetFlagDurationVar(fs, &aa.LongInterval, "auto-analyze-long-interval", aa.LongInterval, "Age after which statistics of a changed table are collected again")
}

// LoadConfigFile reads settings from a YAML or JSON file into the flags of
// fs. Flags set on the command line take precedence over the file.
func LoadConfigFile(path string, fs *pflag.FlagSet) error {
	return LoadConfigFileFs(afero.NewOsFs(), path, fs)
}

// LoadConfigFileFs is LoadConfigFile reading from fsys.
func LoadConfigFileFs(fsys afero.Fs, path string, fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetFs(fsys)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return vterrors.Wrapf(err, "reading config file %s", path)
	}
	for _, key := range v.AllKeys() {
		f := fs.Lookup(strings.ReplaceAll(key, "_", "-"))
		if f == nil {
			return vterrors.Errorf(codes.InvalidArgument, "unknown setting %q in %s", key, path)
		}
		if f.Changed {
			continue
		}
		if err := fs.Set(f.Name, v.GetString(key)); err != nil {
			return vterrors.Wrapf(err, "setting %s from %s", f.Name, path)
		}
	}
	log.Infof("Loaded config file %s", path)
	return nil
}

// Verify validates c after flags and files were read.
func (c *Config) Verify() error {
	if c.LockTimeout <= 0 {
		return vterrors.Errorf(codes.InvalidArgument, "planner-table-lock-timeout must be positive, got %v", c.LockTimeout)
	}
	return c.AutoAnalyze.verify()
}

func (aa *AutoAnalyzeConfig) verify() error {
	var err error
	if aa.start, err = parseTimeOfDay(aa.StartTime); err != nil {
		return err
	}
	if aa.end, err = parseTimeOfDay(aa.EndTime); err != nil {
		return err
	}
	positive := []struct {
		name  string
		value time.Duration
	}{
		{"auto-check-statistics-interval", aa.CheckInterval},
		{"auto-analyze-append-interval", aa.AppendInterval},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return vterrors.Errorf(codes.InvalidArgument, "%s must be positive, got %v", p.name, p.value)
		}
	}
	counts := []struct {
		name  string
		value int
	}{
		{"auto-analyze-max-concurrent-tasks", aa.MaxConcurrentTasks},
		{"auto-analyze-job-map-size", aa.JobMapSize},
		{"auto-analyze-table-batch-size", aa.TableBatchSize},
		{"auto-analyze-column-queue-size", aa.ColumnQueueSize},
	}
	for _, p := range counts {
		if p.value <= 0 {
			return vterrors.Errorf(codes.InvalidArgument, "%s must be positive, got %d", p.name, p.value)
		}
	}
	if aa.HealthThreshold < 0 || aa.HealthThreshold > 100 {
		return vterrors.Errorf(codes.InvalidArgument, "table-stats-health-threshold must be within [0, 100], got %d", aa.HealthThreshold)
	}
	if aa.InitialDelay < 0 || aa.LowJobInterval < 0 || aa.LongInterval < 0 {
		return vterrors.New(codes.InvalidArgument, "auto analyze intervals must not be negative")
	}
	return nil
}

func parseTimeOfDay(s string) (time.Duration, error) {
	t, err := time.Parse(timeOfDayLayout, s)
	if err != nil {
		return 0, vterrors.Errorf(codes.InvalidArgument, "invalid time of day %q, expected HH:MM:SS", s)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second, nil
}

// InWindow reports whether now falls within the daily auto analyze window.
// Verify must have been called.
func (aa *AutoAnalyzeConfig) InWindow(now time.Time) bool {
	y, m, d := now.Date()
	sinceMidnight := now.Sub(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
	if aa.start <= aa.end {
		return sinceMidnight >= aa.start && sinceMidnight <= aa.end
	}
	return sinceMidnight >= aa.start || sinceMidnight <= aa.end
}

// CanCollect reports whether the collector may run at now.
func (aa *AutoAnalyzeConfig) CanCollect(now time.Time) bool {
	return aa.Enabled && aa.InWindow(now)
}

// SamplingThreshold renders HugeTableLowerBoundSize for logs.
func (aa *AutoAnalyzeConfig) SamplingThreshold() string {
	return humanize.IBytes(aa.HugeTableLowerBoundSize)
}

// StatementOptions returns the statement context options of one statement
// planned on a connection.
func (c *Config) StatementOptions(sql string, connectionID int64) stmtctx.Options {
	return stmtctx.Options{
		SQL:          sql,
		ConnectionID: connectionID,
		LockTimeout:  c.LockTimeout,
	}
}

// String renders the settings that differ from the defaults.
func (c *Config) String() string {
	def := NewDefaultConfig()
	fs := pflag.NewFlagSet("defaults", pflag.ContinueOnError)
	def.RegisterFlags(fs)
	cur := pflag.NewFlagSet("current", pflag.ContinueOnError)
	cp := *c
	cp.RegisterFlags(cur)
	var parts []string
	cur.VisitAll(func(f *pflag.Flag) {
		if d := fs.Lookup(f.Name); d != nil && d.DefValue != f.DefValue {
			parts = append(parts, f.Name+"="+strconv.Quote(f.DefValue))
		}
	})
	return strings.Join(parts, " ")
}
