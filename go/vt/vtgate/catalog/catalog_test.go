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

package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
)

func TestParseTableName(t *testing.T) {
	n, err := ParseTableName("sales.orders")
	require.NoError(t, err)
	assert.Equal(t, TableName{Catalog: DefaultCatalog, Database: "sales", Table: "orders"}, n)
	assert.Equal(t, "internal.sales.orders", n.String())

	n, err = ParseTableName("hive.sales.orders")
	require.NoError(t, err)
	assert.Equal(t, "hive", n.Catalog)

	for _, bad := range []string{"orders", "a..b", "a.b.c.d", ""} {
		_, err := ParseTableName(bad)
		assert.Equal(t, codes.InvalidArgument, vterrors.Code(err), bad)
	}
}

func TestTableNameStringDefaultsCatalog(t *testing.T) {
	assert.Equal(t, "internal.db.t", TableName{Database: "db", Table: "t"}.String())
}

func TestCapability(t *testing.T) {
	c := CapAutoAnalyze | CapMVCC
	assert.True(t, c.Has(CapMVCC))
	assert.False(t, c.Has(CapPartitioned))
	assert.False(t, c.Has(CapMVCC|CapPartitioned))
	assert.Equal(t, "auto_analyze|mvcc", c.String())
	assert.Equal(t, "none", Capability(0).String())

	p, err := ParseCapability("Partitioned")
	require.NoError(t, err)
	assert.Equal(t, CapPartitioned, p)
	_, err = ParseCapability("bogus")
	assert.Error(t, err)
}

func TestTypeUnsupported(t *testing.T) {
	assert.False(t, TypeBigInt.Unsupported())
	assert.False(t, TypeVarchar.Unsupported())
	assert.True(t, TypeJSON.Unsupported())
	assert.True(t, TypeBitmap.Unsupported())

	typ, err := ParseType("BIGINT")
	require.NoError(t, err)
	assert.Equal(t, TypeBigInt, typ)
	_, err = ParseType("unknown")
	assert.Error(t, err)
}

func TestIsSystemDatabase(t *testing.T) {
	assert.True(t, IsSystemDatabase("information_schema"))
	assert.True(t, IsSystemDatabase("MySQL"))
	assert.True(t, IsSystemDatabase("__internal_schema"))
	assert.False(t, IsSystemDatabase("sales"))
}

func TestNotFoundError(t *testing.T) {
	err := NotFoundError(NewTableName("db", "t"))
	assert.Equal(t, codes.NotFound, vterrors.Code(err))
	assert.EqualError(t, err, "table internal.db.t does not exist")
}

func TestSnapshotString(t *testing.T) {
	var s *Snapshot
	assert.Equal(t, "<none>", s.String())
}
