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

package memorycatalog

import (
	"github.com/spf13/afero"
	"google.golang.org/grpc/codes"
	"sigs.k8s.io/yaml"

	"github.com/olapfe/planstate/go/vt/vterrors"
	"github.com/olapfe/planstate/go/vt/vtgate/catalog"
)

// Seed is the YAML layout of a catalog seed file:
//
//	databases:
//	- name: sales
//	  tables:
//	  - name: orders
//	    id: 10
//	    capabilities: [auto_analyze, internal, mvcc]
//	    rowCount: 1000
//	    dataSize: 1048576
//	    columns:
//	    - {name: id, type: bigint}
//	    - {name: doc, type: json}
type Seed struct {
	Databases []SeedDatabase `json:"databases"`
}

// SeedDatabase is one database of a Seed.
type SeedDatabase struct {
	Name   string      `json:"name"`
	ID     int64       `json:"id,omitempty"`
	Tables []SeedTable `json:"tables"`
}

// SeedTable is one table of a SeedDatabase.
type SeedTable struct {
	Name             string              `json:"name"`
	ID               int64               `json:"id,omitempty"`
	Capabilities     []string            `json:"capabilities,omitempty"`
	SkipPlanningLock bool                `json:"skipPlanningLock,omitempty"`
	RowCount         *int64              `json:"rowCount,omitempty"`
	DataSize         int64               `json:"dataSize,omitempty"`
	Columns          []SeedColumn        `json:"columns"`
	Indexes          map[string][]string `json:"indexes,omitempty"`
	ViewSQL          string              `json:"viewSQL,omitempty"`
}

// SeedColumn is one column of a SeedTable.
type SeedColumn struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Hidden bool   `json:"hidden,omitempty"`
}

// LoadSeedFile reads a YAML seed file into a new catalog.
func LoadSeedFile(path string) (*Catalog, error) {
	return LoadSeedFs(afero.NewOsFs(), path)
}

// LoadSeedFs is LoadSeedFile on fsys.
func LoadSeedFs(fsys afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, vterrors.Errorf(codes.InvalidArgument, "reading catalog seed: %v", err)
	}
	return LoadSeed(data)
}

// LoadSeed parses a YAML seed into a new catalog.
func LoadSeed(data []byte) (*Catalog, error) {
	var seed Seed
	if err := yaml.UnmarshalStrict(data, &seed); err != nil {
		return nil, vterrors.Errorf(codes.InvalidArgument, "parsing catalog seed: %v", err)
	}
	c := New()
	if err := c.Apply(seed); err != nil {
		return nil, err
	}
	return c, nil
}

// Apply creates every database and table of seed.
func (c *Catalog) Apply(seed Seed) error {
	for _, sdb := range seed.Databases {
		if _, err := c.CreateDatabase(sdb.Name, sdb.ID); err != nil {
			return err
		}
		for _, st := range sdb.Tables {
			spec, err := st.toSpec()
			if err != nil {
				return vterrors.Wrapf(err, "table %s.%s", sdb.Name, st.Name)
			}
			if _, err := c.CreateTable(sdb.Name, spec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (st SeedTable) toSpec() (TableSpec, error) {
	spec := TableSpec{
		ID:               st.ID,
		Name:             st.Name,
		SkipPlanningLock: st.SkipPlanningLock,
		RowCount:         catalog.UnknownRowCount,
		DataSize:         st.DataSize,
		Indexes:          st.Indexes,
		ViewSQL:          st.ViewSQL,
	}
	if st.RowCount != nil {
		spec.RowCount = *st.RowCount
	}
	for _, name := range st.Capabilities {
		c, err := catalog.ParseCapability(name)
		if err != nil {
			return TableSpec{}, err
		}
		spec.Capabilities |= c
	}
	for _, sc := range st.Columns {
		typ, err := catalog.ParseType(sc.Type)
		if err != nil {
			return TableSpec{}, vterrors.Wrapf(err, "column %s", sc.Name)
		}
		spec.Columns = append(spec.Columns, catalog.Column{Name: sc.Name, Type: typ, Visible: !sc.Hidden})
	}
	return spec, nil
}
