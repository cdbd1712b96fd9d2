// Package convert serializes a configuration's attribute values into
// exam-client config documents: plist XML or JSON. A registry picks the
// converter per attribute type (with per-name overrides); the table
// converter recursively delegates row cells back to the registry.
package convert

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/invigilo/invigilo/core/examconfig"
)

// Format selects the output document format.
type Format string

const (
	FormatXML  Format = "xml"
	FormatJSON Format = "json"
)

// ValueSupplier resolves the value of an attribute within the
// configuration being exported. The returned Value always carries the
// configuration id, even when no row exists for the attribute.
type ValueSupplier func(examconfig.Attribute) examconfig.Value

// Converter writes one attribute (key and value) to the output.
type Converter interface {
	Types() []examconfig.AttributeType
	ToXML(ctx context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error
	ToJSON(ctx context.Context, w io.Writer, attr examconfig.Attribute, valueOf ValueSupplier) error
}

type (
	// AttributeSource reads the attribute catalog; implemented by the
	// examconfig attribute repository.
	AttributeSource interface {
		ChildAttributes(ctx context.Context, parentID int64) ([]examconfig.Attribute, error)
		TopLevelAttributes(ctx context.Context) ([]examconfig.Attribute, error)
	}

	// ValueSource reads configuration values; implemented by the
	// examconfig value repository.
	ValueSource interface {
		ValuesOf(ctx context.Context, configurationID int64) ([]examconfig.Value, error)
		OrderedTableValues(ctx context.Context, configurationID, attributeID int64) ([][]examconfig.Value, error)
	}
)

// Service is the converter registry plus the document assembler.
type Service struct {
	attrs  AttributeSource
	values ValueSource

	byType map[examconfig.AttributeType]Converter
	byName map[string]Converter
}

func NewService(attrs AttributeSource, values ValueSource) *Service {
	svc := &Service{
		attrs:  attrs,
		values: values,
		byType: make(map[examconfig.AttributeType]Converter),
		byName: make(map[string]Converter),
	}
	svc.Register(&scalarConverter{})
	svc.Register(&arrayConverter{})
	svc.Register(newTableConverter(svc))
	return svc
}

// Register adds a converter for all its supported types.
func (svc *Service) Register(c Converter) {
	for _, t := range c.Types() {
		svc.byType[t] = c
	}
}

// RegisterForName overrides converter selection for a single attribute.
func (svc *Service) RegisterForName(name string, c Converter) {
	svc.byName[name] = c
}

// ConverterFor picks the converter of an attribute: name override
// first, then type, scalar as fallback.
func (svc *Service) ConverterFor(attr examconfig.Attribute) Converter {
	if c, ok := svc.byName[attr.Name]; ok {
		return c
	}
	if c, ok := svc.byType[attr.Type]; ok {
		return c
	}
	return svc.byType[examconfig.TypeTextField]
}

// Export writes the full config document of a configuration.
func (svc *Service) Export(ctx context.Context, w io.Writer, format Format, cfg examconfig.Configuration) error {
	attrs, err := svc.attrs.TopLevelAttributes(ctx)
	if err != nil {
		return errors.Wrap(err, "loading attributes")
	}
	sort.Slice(attrs, func(i, j int) bool { return attrs[i].Name < attrs[j].Name })

	values, err := svc.values.ValuesOf(ctx, cfg.ID)
	if err != nil {
		return errors.Wrap(err, "loading values")
	}
	byAttr := make(map[int64]examconfig.Value, len(values))
	for _, v := range values {
		if v.ListIndex == 0 {
			byAttr[v.AttributeID] = v
		}
	}
	valueOf := func(attr examconfig.Attribute) examconfig.Value {
		if v, ok := byAttr[attr.ID]; ok {
			return v
		}
		return examconfig.Value{
			InstitutionID:   cfg.InstitutionID,
			ConfigurationID: cfg.ID,
			AttributeID:     attr.ID,
		}
	}

	switch format {
	case FormatJSON:
		return svc.exportJSON(ctx, w, attrs, valueOf)
	default:
		return svc.exportXML(ctx, w, attrs, valueOf)
	}
}

const (
	plistHeader = `<?xml version="1.0" encoding="UTF-8"?>` + "\n" +
		`<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">` + "\n" +
		`<plist version="1.0"><dict>`
	plistFooter = `</dict></plist>`
)

func (svc *Service) exportXML(ctx context.Context, w io.Writer, attrs []examconfig.Attribute, valueOf ValueSupplier) error {
	if _, err := io.WriteString(w, plistHeader); err != nil {
		return err
	}
	for _, attr := range attrs {
		if err := svc.ConverterFor(attr).ToXML(ctx, w, attr, valueOf); err != nil {
			return errors.Wrapf(err, "converting %s", attr.Name)
		}
	}
	_, err := io.WriteString(w, plistFooter)
	return err
}

func (svc *Service) exportJSON(ctx context.Context, w io.Writer, attrs []examconfig.Attribute, valueOf ValueSupplier) error {
	if _, err := io.WriteString(w, "{"); err != nil {
		return err
	}
	// converters may write nothing (empty composite tables); buffer
	// each attribute so separators only land between non-empty outputs
	first := true
	var buf bytes.Buffer
	for _, attr := range attrs {
		buf.Reset()
		if err := svc.ConverterFor(attr).ToJSON(ctx, &buf, attr, valueOf); err != nil {
			return errors.Wrapf(err, "converting %s", attr.Name)
		}
		if buf.Len() == 0 {
			continue
		}
		if !first {
			if _, err := io.WriteString(w, ","); err != nil {
				return err
			}
		}
		first = false
		if _, err := w.Write(buf.Bytes()); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "}")
	return err
}

// extractName strips the parent-name prefix of child attribute names:
// "prohibitedProcesses.executable" exports as "executable".
func extractName(attr examconfig.Attribute) string {
	if i := strings.LastIndex(attr.Name, "."); i >= 0 {
		return attr.Name[i+1:]
	}
	return attr.Name
}
