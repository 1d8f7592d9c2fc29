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

// vtplanner hosts the auto-analyze daemons over a seeded in-memory catalog.
package main

import (
	"os"

	"github.com/olapfe/planstate/go/cmd/vtplanner/cli"
	"github.com/olapfe/planstate/go/vt/log"
)

func main() {
	defer log.Flush()
	if err := cli.Main.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
