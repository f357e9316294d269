// Package schema holds the per-operation parameter schemas. Descriptors are loaded
// once at start-up and are read-only afterwards, so they are safe to share between
// concurrent jobs.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"gbif-workers/internal/models"
)

//go:embed schemas.yaml
var defaultSchemas []byte

type Cardinality string

const (
	Single Cardinality = "single"
	List   Cardinality = "list"
)

type FieldSpec struct {
	Name        string      `yaml:"name" json:"name"`
	Cardinality Cardinality `yaml:"cardinality" json:"cardinality"`
}

type descriptorDoc struct {
	Description   string            `yaml:"description"`
	Endpoint      string            `yaml:"endpoint"`
	PortalPath    string            `yaml:"portal_path"`
	Aggregation   bool              `yaml:"aggregation"`
	FallbackField string            `yaml:"fallback_field"`
	TaxonKeyField string            `yaml:"taxon_key_field"`
	Fields        []FieldSpec       `yaml:"fields"`
	HighRisk      []string          `yaml:"high_risk"`
	Control       []string          `yaml:"control"`
	Required      []string          `yaml:"required"`
	PathParams    []string          `yaml:"path_params"`
	Defaults      map[string]string `yaml:"defaults"`
	Fixed         map[string]string `yaml:"fixed"`
}

type registryDoc struct {
	Operations map[models.Operation]descriptorDoc `yaml:"operations"`
}

// Descriptor is the immutable schema of one operation.
type Descriptor struct {
	operation     models.Operation
	description   string
	endpoint      string
	portalPath    string
	aggregation   bool
	fallbackField string
	taxonKeyField string
	fields        []FieldSpec
	position      map[string]int
	highRisk      map[string]bool
	control       map[string]bool
	required      []string
	pathParams    map[string]bool
	defaults      map[string]string
	fixed         map[string]string
}

func (d *Descriptor) Operation() models.Operation { return d.operation }
func (d *Descriptor) Description() string         { return d.description }

// Endpoint is the API path, possibly holding {param} placeholders.
func (d *Descriptor) Endpoint() string { return d.endpoint }

// PortalPath is the browse path on the GBIF portal.
func (d *Descriptor) PortalPath() string { return d.portalPath }

// Aggregation reports whether the operation groups results by facet.
func (d *Descriptor) Aggregation() bool { return d.aggregation }

// FallbackField is the free-text field that absorbs unresolved terms. Empty when the
// operation has none.
func (d *Descriptor) FallbackField() string { return d.fallbackField }

// TaxonKeyField, when set, replaces the per-rank key fields as the single field that
// receives a resolved taxon identifier.
func (d *Descriptor) TaxonKeyField() string { return d.taxonKeyField }

func (d *Descriptor) Allows(field string) bool {
	_, ok := d.position[field]
	return ok
}

func (d *Descriptor) IsHighRisk(field string) bool  { return d.highRisk[field] }
func (d *Descriptor) IsControl(field string) bool   { return d.control[field] }
func (d *Descriptor) IsPathParam(field string) bool { return d.pathParams[field] }

func (d *Descriptor) IsRequired(field string) bool {
	for _, f := range d.required {
		if f == field {
			return true
		}
	}
	return false
}

func (d *Descriptor) CardinalityOf(field string) Cardinality {
	if i, ok := d.position[field]; ok {
		return d.fields[i].Cardinality
	}
	return ""
}

// Position is the serialisation index of the field, or -1 if unknown.
func (d *Descriptor) Position(field string) int {
	if i, ok := d.position[field]; ok {
		return i
	}
	return -1
}

// Fields returns the allowed fields in declared order.
func (d *Descriptor) Fields() []FieldSpec {
	return append([]FieldSpec(nil), d.fields...)
}

func (d *Descriptor) AllowedFields() []string {
	out := make([]string, len(d.fields))
	for i, f := range d.fields {
		out[i] = f.Name
	}
	return out
}

func (d *Descriptor) HighRiskFields() []string { return d.ordered(d.highRisk) }
func (d *Descriptor) ControlFields() []string  { return d.ordered(d.control) }
func (d *Descriptor) RequiredFields() []string { return append([]string(nil), d.required...) }

// Defaults are applied when the caller left the field empty.
func (d *Descriptor) Defaults() map[string]string { return copyMap(d.defaults) }

// Fixed values always override whatever the caller supplied.
func (d *Descriptor) Fixed() map[string]string { return copyMap(d.fixed) }

func (d *Descriptor) ordered(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for _, f := range d.fields {
		if set[f.Name] {
			out = append(out, f.Name)
		}
	}
	return out
}

// Summary is the JSON form sent to the extraction service.
type Summary struct {
	Operation   models.Operation `json:"operation"`
	Description string           `json:"description"`
	Fields      []FieldSpec      `json:"fields"`
	HighRisk    []string         `json:"highRiskFields"`
	Control     []string         `json:"controlFields"`
	Required    []string         `json:"requiredFields"`
}

func (d *Descriptor) Summary() Summary {
	return Summary{
		Operation:   d.operation,
		Description: d.description,
		Fields:      d.Fields(),
		HighRisk:    d.HighRiskFields(),
		Control:     d.ControlFields(),
		Required:    d.RequiredFields(),
	}
}

// Registry maps operations to descriptors.
type Registry struct {
	descriptors map[models.Operation]*Descriptor
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Load(bytes.NewReader(defaultSchemas))
}

func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema registry: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Registry, error) {
	var doc registryDoc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode schema registry: %w", err)
	}
	if len(doc.Operations) == 0 {
		return nil, fmt.Errorf("schema registry defines no operations")
	}

	reg := &Registry{descriptors: make(map[models.Operation]*Descriptor, len(doc.Operations))}
	for op, d := range doc.Operations {
		desc, err := build(op, d)
		if err != nil {
			return nil, fmt.Errorf("operation %s: %w", op, err)
		}
		reg.descriptors[op] = desc
	}
	return reg, nil
}

func build(op models.Operation, d descriptorDoc) (*Descriptor, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("unknown operation")
	}
	if strings.TrimSpace(d.Endpoint) == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if len(d.Fields) == 0 {
		return nil, fmt.Errorf("no fields declared")
	}

	desc := &Descriptor{
		operation:     op,
		description:   d.Description,
		endpoint:      d.Endpoint,
		portalPath:    d.PortalPath,
		aggregation:   d.Aggregation,
		fallbackField: d.FallbackField,
		taxonKeyField: d.TaxonKeyField,
		fields:        make([]FieldSpec, 0, len(d.Fields)),
		position:      make(map[string]int, len(d.Fields)),
		highRisk:      map[string]bool{},
		control:       map[string]bool{},
		pathParams:    map[string]bool{},
		required:      append([]string(nil), d.Required...),
		defaults:      copyMap(d.Defaults),
		fixed:         copyMap(d.Fixed),
	}
	if desc.portalPath == "" {
		desc.portalPath = desc.endpoint
	}

	for _, f := range d.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field with empty name")
		}
		if f.Cardinality != Single && f.Cardinality != List {
			return nil, fmt.Errorf("field %s: cardinality must be single or list", f.Name)
		}
		if _, dup := desc.position[f.Name]; dup {
			return nil, fmt.Errorf("field %s declared twice", f.Name)
		}
		desc.position[f.Name] = len(desc.fields)
		desc.fields = append(desc.fields, f)
	}

	subsets := []struct {
		name   string
		fields []string
		into   map[string]bool
	}{
		{"high_risk", d.HighRisk, desc.highRisk},
		{"control", d.Control, desc.control},
		{"required", d.Required, nil},
		{"path_params", d.PathParams, desc.pathParams},
	}
	for _, s := range subsets {
		for _, f := range s.fields {
			if !desc.Allows(f) {
				return nil, fmt.Errorf("%s field %s is not an allowed field", s.name, f)
			}
			if s.into != nil {
				s.into[f] = true
			}
		}
	}

	for _, f := range []string{d.FallbackField, d.TaxonKeyField} {
		if f != "" && !desc.Allows(f) {
			return nil, fmt.Errorf("field %s is not an allowed field", f)
		}
	}
	for _, m := range []map[string]string{d.Defaults, d.Fixed} {
		for f := range m {
			if !desc.Allows(f) {
				return nil, fmt.Errorf("default field %s is not an allowed field", f)
			}
		}
	}
	if desc.aggregation && !desc.Allows("facet") {
		return nil, fmt.Errorf("aggregation operation must allow facet")
	}

	return desc, nil
}

// Get returns the descriptor for the operation.
func (r *Registry) Get(op models.Operation) (*Descriptor, error) {
	d, ok := r.descriptors[op]
	if !ok {
		return nil, fmt.Errorf("no schema for operation %q", op)
	}
	return d, nil
}

// Operations lists registered operations in lexical order.
func (r *Registry) Operations() []models.Operation {
	ops := make([]models.Operation, 0, len(r.descriptors))
	for op := range r.descriptors {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
