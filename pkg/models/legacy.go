// Package models holds the target-side representation of every migrated
// entity: one struct per target table, constructed from a legacy document
// and able to render its own column/value tuple for the insert.
package models

import (
	"github.com/ds-wizard/dsw2to3/pkg/utils"
)

// LegacyDocument is one raw record as decoded from the source document
// store. Field names follow the legacy camelCase convention.
type LegacyDocument = map[string]interface{}

// Field reads a document field as a string, empty when absent.
func Field(doc LegacyDocument, name string) string {
	return utils.ToString(doc[name])
}

// HasField reports whether the document carries a non-empty value under the
// given name. Mongo documents routinely omit fields instead of storing null.
func HasField(doc LegacyDocument, name string) bool {
	v, ok := doc[name]
	if !ok || v == nil {
		return false
	}
	return utils.ToString(v) != ""
}
