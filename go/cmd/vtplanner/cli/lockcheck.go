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
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
	"github.com/olapfe/planstate/go/vt/vtgate/stmtctx"
)

var (
	mtmvTables   []string
	insertTarget string

	lockCheck = &cobra.Command{
		Use:     "lockcheck [flags] <db.table> [<db.table>...]",
		Short:   "Locks the named tables the way a statement referencing them does and prints the acquisition order.",
		Example: `vtplanner lockcheck --catalog-seed catalog.yaml --mtmv db.mv1 db.orders db.items`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := loadCatalog()
			if err != nil {
				return err
			}
			return runLockCheck(cmd.Context(), cmd.OutOrStdout(), cat, cfg.StatementOptions("lockcheck", 0), args, insertTarget, mtmvTables)
		},
	}
)

func init() {
	lockCheck.Flags().StringSliceVar(&mtmvTables, "mtmv", nil, "materialized views considered for rewrite")
	lockCheck.Flags().StringVar(&insertTarget, "insert-target", "", "table written by the statement")
}

func runLockCheck(ctx context.Context, w io.Writer, resolver catalog.Resolver, opts stmtctx.Options,
	queried []string, target string, mtmvs []string) error {
	return stmtctx.Run(ctx, resolver, opts, func(ctx context.Context, sc *stmtctx.StatementContext) error {
		register := func(names []string, role stmtctx.Role) error {
			for _, s := range names {
				name, err := catalog.ParseTableName(s)
				if err != nil {
					return err
				}
				if _, err := sc.GetAndCacheTable(ctx, name, role); err != nil {
					return err
				}
			}
			return nil
		}
		if err := register(queried, stmtctx.RoleQuery); err != nil {
			return err
		}
		if target != "" {
			if err := register([]string{target}, stmtctx.RoleInsertTarget); err != nil {
				return err
			}
		}
		if err := register(mtmvs, stmtctx.RoleMTMV); err != nil {
			return err
		}
		if err := sc.Lock(); err != nil {
			return err
		}
		names := make(map[int64]catalog.TableName)
		for _, role := range []stmtctx.Role{stmtctx.RoleQuery, stmtctx.RoleInsertTarget, stmtctx.RoleMTMV} {
			for name, t := range sc.Tables(role) {
				names[t.ID()] = name
			}
		}
		for i, id := range sc.LockedTableIDs() {
			fmt.Fprintf(w, "%d\t%d\t%s\n", i+1, id, names[id])
		}
		return nil
	})
}
