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
	"strings"

	"google.golang.org/grpc/codes"

	"github.com/olapfe/planstate/go/vt/vterrors"
)

// Type is a column type.
type Type int

// Column types.
const (
	TypeUnknown Type = iota
	TypeBoolean
	TypeInt
	TypeBigInt
	TypeDouble
	TypeDecimal
	TypeVarchar
	TypeDate
	TypeDatetime
	TypeJSON
	TypeArray
	TypeMap
	TypeStruct
	TypeHLL
	TypeBitmap
	TypeQuantileState
	TypeVariant
)

var typeNames = map[Type]string{
	TypeUnknown:       "unknown",
	TypeBoolean:       "boolean",
	TypeInt:           "int",
	TypeBigInt:        "bigint",
	TypeDouble:        "double",
	TypeDecimal:       "decimal",
	TypeVarchar:       "varchar",
	TypeDate:          "date",
	TypeDatetime:      "datetime",
	TypeJSON:          "json",
	TypeArray:         "array",
	TypeMap:           "map",
	TypeStruct:        "struct",
	TypeHLL:           "hll",
	TypeBitmap:        "bitmap",
	TypeQuantileState: "quantile_state",
	TypeVariant:       "variant",
}

func (t Type) String() string {
	if s, ok := typeNames[t]; ok {
		return s
	}
	return "unknown"
}

// Unsupported returns true for types that statistics cannot be collected on.
func (t Type) Unsupported() bool {
	switch t {
	case TypeUnknown, TypeJSON, TypeArray, TypeMap, TypeStruct, TypeHLL, TypeBitmap, TypeQuantileState, TypeVariant:
		return true
	}
	return false
}

// ParseType parses a type name as printed by String.
func ParseType(s string) (Type, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == s && t != TypeUnknown {
			return t, nil
		}
	}
	return TypeUnknown, vterrors.Errorf(codes.InvalidArgument, "unknown column type %q", s)
}

// Column is one column of a table schema.
type Column struct {
	Name    string
	Type    Type
	Visible bool
}

// ColumnIndexPair names a column within one index of a table. Statistics
// are kept per pair.
type ColumnIndexPair struct {
	Index  string
	Column string
}

func (p ColumnIndexPair) String() string {
	return p.Index + "." + p.Column
}
