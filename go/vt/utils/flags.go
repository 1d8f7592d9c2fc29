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

// Package utils registers command line flags in the planner's naming
// convention: flag names use dashes, and underscores are accepted as
// aliases on the command line and in config files.
package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// glogFlags keep their underscored names.
var glogFlags = map[string]bool{
	"log_dir":          true,
	"log_link":         true,
	"log_backtrace_at": true,
}

func warnUnderscore(name string) {
	if strings.Contains(name, "_") {
		fmt.Fprintf(os.Stderr, "[WARNING] flag %s should use dashes instead of underscores\n", name)
	}
}

type varFunc[T any] func(fs *pflag.FlagSet, p *T, name string, def T, usage string)

func register[T any](set varFunc[T], fs *pflag.FlagSet, p *T, name string, def T, usage string) {
	warnUnderscore(name)
	set(fs, p, name, def, usage)
}

func SetFlagIntVar(fs *pflag.FlagSet, p *int, name string, def int, usage string) {
	register((*pflag.FlagSet).IntVar, fs, p, name, def, usage)
}

func SetFlagInt64Var(fs *pflag.FlagSet, p *int64, name string, def int64, usage string) {
	register((*pflag.FlagSet).Int64Var, fs, p, name, def, usage)
}

func SetFlagBoolVar(fs *pflag.FlagSet, p *bool, name string, def bool, usage string) {
	register((*pflag.FlagSet).BoolVar, fs, p, name, def, usage)
}

func SetFlagStringVar(fs *pflag.FlagSet, p *string, name string, def string, usage string) {
	register((*pflag.FlagSet).StringVar, fs, p, name, def, usage)
}

func SetFlagDurationVar(fs *pflag.FlagSet, p *time.Duration, name string, def time.Duration, usage string) {
	register((*pflag.FlagSet).DurationVar, fs, p, name, def, usage)
}

// SetFlagVar registers a custom pflag.Value.
func SetFlagVar(fs *pflag.FlagSet, value pflag.Value, name, usage string) {
	warnUnderscore(name)
	fs.Var(value, name, usage)
}

// NormalizeUnderscoresToDashes is a pflag normalize func mapping
// "planner_table_lock_timeout" to "planner-table-lock-timeout". Names that
// already contain a dash are left alone.
func NormalizeUnderscoresToDashes(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if glogFlags[name] || strings.Contains(name, "-") {
		return pflag.NormalizedName(name)
	}
	return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
}
