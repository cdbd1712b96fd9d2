package convert

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core/examconfig"
)

const (
	xmlArrayStart = "<array>"
	xmlArrayEnd   = "</array>"
	xmlDictStart  = "<dict>"
	xmlDictEnd    = "</dict>"
	xmlEmptyArray = "<array />"

	jsonArrayStart = "["
	jsonArrayEnd   = "]"
	jsonDictStart  = "{"
	jsonDictEnd    = "}"
	jsonEmptyArray = "[]"

	listSeparator = ","
)

// tableConverter writes table attributes: an array of row dicts whose
// cells are delegated back to the registry by column attribute type.
// Composite tables emit a single dict and are omitted entirely when
// they have no rows.
type tableConverter struct {
	svc *Service
}

func newTableConverter(svc *Service) *tableConverter {
	return &tableConverter{svc: svc}
}

func (c *tableConverter) Types() []examconfig.AttributeType {
	return []examconfig.AttributeType{
		examconfig.TypeTable,
		examconfig.TypeInlineTable,
		examconfig.TypeCompositeTable,
	}
}

func (c *tableConverter) ToXML(ctx context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error {
	return c.convert(ctx, w, attr, valueOf(attr), true)
}

func (c *tableConverter) ToJSON(ctx context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error {
	return c.convert(ctx, w, attr, valueOf(attr), false)
}

func (c *tableConverter) convert(
	ctx context.Context,
	w io.Writer,
	attr examconfig.Attribute,
	value examconfig.Value,
	xml bool,
) error {
	rows, err := c.svc.values.OrderedTableValues(ctx, value.ConfigurationID, attr.ID)
	if err != nil {
		return errors.Wrap(err, "loading table values")
	}
	noValues := len(rows) == 0

	keyTemplate, arrayStart, arrayEnd, emptyArray := jsonKeyTemplate, jsonArrayStart, jsonArrayEnd, jsonEmptyArray
	if xml {
		keyTemplate, arrayStart, arrayEnd, emptyArray = xmlKeyTemplate, xmlArrayStart, xmlArrayEnd, xmlEmptyArray
	}

	if attr.Type != examconfig.TypeCompositeTable {
		if _, err = fmt.Fprintf(w, keyTemplate, extractName(attr)); err != nil {
			return err
		}
		if noValues {
			_, err = io.WriteString(w, emptyArray)
			return err
		}
		if _, err = io.WriteString(w, arrayStart); err != nil {
			return err
		}
	} else {
		// a composite table without values is omitted entirely
		if noValues {
			return nil
		}
		if _, err = fmt.Fprintf(w, keyTemplate, extractName(attr)); err != nil {
			return err
		}
	}

	if err = c.writeRows(ctx, w, attr, rows, xml); err != nil {
		return err
	}

	if attr.Type != examconfig.TypeCompositeTable {
		_, err = io.WriteString(w, arrayEnd)
		return err
	}
	return nil
}

func (c *tableConverter) writeRows(
	ctx context.Context,
	w io.Writer,
	attr examconfig.Attribute,
	rows [][]examconfig.Value,
	xml bool,
) error {
	children, err := c.svc.attrs.ChildAttributes(ctx, attr.ID)
	if err != nil {
		return errors.Wrap(err, "loading column attributes")
	}
	columns := make(map[int64]examconfig.Attribute, len(children))
	for _, child := range children {
		columns[child.ID] = child
	}

	dictStart, dictEnd := jsonDictStart, jsonDictEnd
	if xml {
		dictStart, dictEnd = xmlDictStart, xmlDictEnd
	}

	for ri, row := range rows {
		if _, err = io.WriteString(w, dictStart); err != nil {
			return err
		}

		for ci, cell := range row {
			col, ok := columns[cell.AttributeID]
			if !ok {
				continue
			}
			conv := c.svc.ConverterFor(col)
			cellValue := cell
			supplier := func(examconfig.Attribute) examconfig.Value { return cellValue }

			if xml {
				err = conv.ToXML(ctx, w, col, supplier)
			} else {
				err = conv.ToJSON(ctx, w, col, supplier)
			}
			if err != nil {
				return err
			}

			if !xml && ci < len(row)-1 {
				if _, err = io.WriteString(w, listSeparator); err != nil {
					return err
				}
			}
		}

		if _, err = io.WriteString(w, dictEnd); err != nil {
			return err
		}
		if !xml && ri < len(rows)-1 {
			if _, err = io.WriteString(w, listSeparator); err != nil {
				return err
			}
		}
	}
	return nil
}

const (
	xmlKeyTemplate  = "<key>%s</key>"
	jsonKeyTemplate = "%q:"
)
