package convert

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/invigilo/invigilo/core/examconfig"
)

// scalarConverter writes single-valued attributes: strings, booleans
// and numbers. Missing values fall back to the attribute default.
type scalarConverter struct{}

func (c *scalarConverter) Types() []examconfig.AttributeType {
	return []examconfig.AttributeType{
		examconfig.TypeTextField,
		examconfig.TypeTextArea,
		examconfig.TypeCheckbox,
		examconfig.TypeInteger,
		examconfig.TypeDecimal,
		examconfig.TypeSingleSelection,
		examconfig.TypeRadioSelection,
		examconfig.TypeFileUpload,
	}
}

func (c *scalarConverter) resolve(attr examconfig.Attribute, valueOf ValueSupplier) string {
	val := valueOf(attr).Value
	if val == "" {
		val = attr.DefaultValue
	}
	return val
}

func (c *scalarConverter) ToXML(_ context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error {
	val := c.resolve(attr, valueOf)
	if _, err := fmt.Fprintf(w, "<key>%s</key>", extractName(attr)); err != nil {
		return err
	}

	switch attr.Type {
	case examconfig.TypeCheckbox:
		if val == "true" {
			_, err := io.WriteString(w, "<true />")
			return err
		}
		_, err := io.WriteString(w, "<false />")
		return err
	case examconfig.TypeInteger:
		if val == "" {
			val = "0"
		}
		_, err := fmt.Fprintf(w, "<integer>%s</integer>", val)
		return err
	case examconfig.TypeDecimal:
		if val == "" {
			val = "0"
		}
		_, err := fmt.Fprintf(w, "<real>%s</real>", val)
		return err
	default:
		if _, err := io.WriteString(w, "<string>"); err != nil {
			return err
		}
		if err := xml.EscapeText(w, []byte(val)); err != nil {
			return err
		}
		_, err := io.WriteString(w, "</string>")
		return err
	}
}

func (c *scalarConverter) ToJSON(_ context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error {
	val := c.resolve(attr, valueOf)
	if _, err := fmt.Fprintf(w, "%q:", extractName(attr)); err != nil {
		return err
	}

	switch attr.Type {
	case examconfig.TypeCheckbox:
		if val != "true" {
			val = "false"
		}
		_, err := io.WriteString(w, val)
		return err
	case examconfig.TypeInteger, examconfig.TypeDecimal:
		if val == "" {
			val = "0"
		}
		// guard against non-numeric stored values
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			val = "0"
		}
		_, err := io.WriteString(w, val)
		return err
	default:
		quoted, err := json.Marshal(val)
		if err != nil {
			return err
		}
		_, err = w.Write(quoted)
		return err
	}
}
