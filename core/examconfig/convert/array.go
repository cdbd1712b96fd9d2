package convert

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/invigilo/invigilo/core/examconfig"
)

// arrayConverter writes multi-selection attributes as arrays of
// strings. The stored value is the comma-separated selection.
type arrayConverter struct{}

func (c *arrayConverter) Types() []examconfig.AttributeType {
	return []examconfig.AttributeType{
		examconfig.TypeMultiSelection,
		examconfig.TypeMultiCheckboxSelection,
	}
}

func (c *arrayConverter) elements(attr examconfig.Attribute, valueOf ValueSupplier) []string {
	val := valueOf(attr).Value
	if val == "" {
		val = attr.DefaultValue
	}
	if val == "" {
		return nil
	}
	return strings.Split(val, ",")
}

func (c *arrayConverter) ToXML(_ context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error {
	if _, err := fmt.Fprintf(w, "<key>%s</key>", extractName(attr)); err != nil {
		return err
	}

	elems := c.elements(attr, valueOf)
	if len(elems) == 0 {
		_, err := io.WriteString(w, "<array />")
		return err
	}

	if _, err := io.WriteString(w, "<array>"); err != nil {
		return err
	}
	for _, elem := range elems {
		if _, err := io.WriteString(w, "<string>"); err != nil {
			return err
		}
		if err := xml.EscapeText(w, []byte(elem)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</string>"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</array>")
	return err
}

func (c *arrayConverter) ToJSON(_ context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error {
	elems := c.elements(attr, valueOf)
	if elems == nil {
		elems = []string{}
	}
	arr, err := json.Marshal(elems)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%q:%s", extractName(attr), arr)
	return err
}
