// internal/engine/query/assembler.go
package query

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

var ErrMissingPathParameter = errors.New("MISSING_PATH_PARAMETER")

type Pair struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Query is an assembled GBIF request. Pairs follow the schema's field order, so equal
// parameter sets always serialise to the same string.
type Query struct {
	Operation  models.Operation `json:"operation"`
	Path       string           `json:"path"`
	PortalPath string           `json:"portalPath"`
	Pairs      []Pair           `json:"pairs"`
}

// Assemble turns a finalised parameter set into a query. Operation defaults fill
// fields the caller left empty; fixed values always win. Path parameters are
// substituted into the endpoints and left out of the pairs.
func Assemble(d *schema.Descriptor, params models.ParameterSet) (Query, error) {
	p := params.Clone()
	for field, value := range d.Defaults() {
		if !p.Has(field) {
			p.Set(field, value)
		}
	}
	for field, value := range d.Fixed() {
		p.Set(field, value)
	}

	for _, field := range p.Fields() {
		if !d.Allows(field) {
			return Query{}, apperrors.NewUnknownFieldError(field)
		}
	}

	path, err := substitute(d, d.Endpoint(), p)
	if err != nil {
		return Query{}, err
	}
	portalPath, err := substitute(d, d.PortalPath(), p)
	if err != nil {
		return Query{}, err
	}

	q := Query{
		Operation:  d.Operation(),
		Path:       path,
		PortalPath: portalPath,
	}
	for _, field := range d.Fields() {
		if d.IsPathParam(field.Name) {
			continue
		}
		values := p.Get(field.Name)
		if field.Cardinality == schema.Single && len(values) > 1 {
			values = values[:1]
		}
		for _, v := range values {
			if v = strings.TrimSpace(v); v != "" {
				q.Pairs = append(q.Pairs, Pair{Field: field.Name, Value: v})
			}
		}
	}
	return q, nil
}

func substitute(d *schema.Descriptor, template string, p models.ParameterSet) (string, error) {
	out := template
	for _, field := range d.Fields() {
		if !d.IsPathParam(field.Name) {
			continue
		}
		placeholder := "{" + field.Name + "}"
		if !strings.Contains(out, placeholder) {
			continue
		}
		value := strings.TrimSpace(p.First(field.Name))
		if value == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingPathParameter, field.Name)
		}
		out = strings.ReplaceAll(out, placeholder, url.PathEscape(value))
	}
	return out, nil
}

// Encode renders the pairs as a query string in their assembled order.
func (q Query) Encode() string {
	var b strings.Builder
	for i, pair := range q.Pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.Field))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair.Value))
	}
	return b.String()
}

// APIURL addresses the query at the machine API.
func (q Query) APIURL(base string) string {
	return join(base, q.Path, q.Encode())
}

// PortalURL addresses the same pairs at the human-facing portal.
func (q Query) PortalURL(base string) string {
	return join(base, q.PortalPath, q.Encode())
}

// Get returns the values of field in pair order.
func (q Query) Get(field string) []string {
	var out []string
	for _, pair := range q.Pairs {
		if pair.Field == field {
			out = append(out, pair.Value)
		}
	}
	return out
}

// With returns a copy with field set to value, replacing earlier pairs of that field
// in place or appending when absent. Used for paging.
func (q Query) With(field, value string) Query {
	out := q
	out.Pairs = make([]Pair, 0, len(q.Pairs)+1)
	replaced := false
	for _, pair := range q.Pairs {
		if pair.Field == field {
			if !replaced {
				out.Pairs = append(out.Pairs, Pair{Field: field, Value: value})
				replaced = true
			}
			continue
		}
		out.Pairs = append(out.Pairs, pair)
	}
	if !replaced {
		out.Pairs = append(out.Pairs, Pair{Field: field, Value: value})
	}
	return out
}

func join(base, path, rawQuery string) string {
	u := strings.TrimRight(base, "/") + path
	if rawQuery == "" {
		return u
	}
	return u + "?" + rawQuery
}
