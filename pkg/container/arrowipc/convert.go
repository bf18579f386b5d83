package arrowipc

import (
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/battkit/battkit/pkg/container/arrowconv"
	"github.com/battkit/battkit/pkg/errors"
	"github.com/battkit/battkit/pkg/schema"
	"github.com/battkit/battkit/pkg/table"
)

// Keys for the sidecar attributes embedded in each block's Arrow
// schema metadata.
const (
	schemaMetadataKey  = "column_schema"
	versionMetadataKey = "battkit_version"
)

// arrowSchemaForTable builds the Arrow schema for a table, preserving
// its column order and embedding the column schema document as
// schema-level metadata so the block is self-describing.
func arrowSchemaForTable(t *table.Table, s *schema.ColumnSchema, version string) (*arrow.Schema, error) {
	fields, err := arrowconv.SchemaFields(t)
	if err != nil {
		return nil, err
	}
	doc, err := s.ToJSON()
	if err != nil {
		return nil, err
	}
	md := arrow.NewMetadata(
		[]string{schemaMetadataKey, versionMetadataKey},
		[]string{string(doc), version},
	)
	return arrow.NewSchema(fields, &md), nil
}

// schemaFromArrow recovers the embedded column schema document from a
// block's Arrow schema metadata.
func schemaFromArrow(aschema *arrow.Schema) (*schema.ColumnSchema, error) {
	md := aschema.Metadata()
	idx := md.FindKey(schemaMetadataKey)
	if idx < 0 {
		return nil, errors.New(errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"block carries no embedded column schema")
	}
	s, err := schema.FromJSON([]byte(md.Values()[idx]))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeContainer, errors.CodeCorruptContainer,
			"embedded column schema cannot be parsed")
	}
	return s, nil
}
