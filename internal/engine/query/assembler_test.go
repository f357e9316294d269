// internal/engine/query/assembler_test.go
package query

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "gbif-workers/internal/common/errors"
	"gbif-workers/internal/engine/schema"
	"gbif-workers/internal/models"
)

const (
	apiBase    = "https://api.gbif.org/v1"
	portalBase = "https://www.gbif.org/"
)

func descriptor(t *testing.T, op models.Operation) *schema.Descriptor {
	t.Helper()
	reg, err := schema.Default()
	require.NoError(t, err)
	d, err := reg.Get(op)
	require.NoError(t, err)
	return d
}

func TestAssemble_FacetQuery(t *testing.T) {
	d := descriptor(t, models.OperationOccurrenceFacets)
	params := models.ParameterSet{
		"facet":     {"speciesKey"},
		"continent": {"ASIA"},
		"limit":     {"20"},
	}

	q, err := Assemble(d, params)
	require.NoError(t, err)

	assert.Equal(t, []Pair{
		{Field: "continent", Value: "ASIA"},
		{Field: "facet", Value: "speciesKey"},
		{Field: "facetLimit", Value: "100"},
		{Field: "limit", Value: "0"},
	}, q.Pairs)
	assert.Equal(t, "https://api.gbif.org/v1/occurrence/search?continent=ASIA&facet=speciesKey&facetLimit=100&limit=0", q.APIURL(apiBase))
	assert.Equal(t, "https://www.gbif.org/occurrence/search?continent=ASIA&facet=speciesKey&facetLimit=100&limit=0", q.PortalURL(portalBase))
	assert.Equal(t, []string{"20"}, params.Get("limit"), "input is not modified")
}

func TestAssemble_ExplicitFacetLimitKept(t *testing.T) {
	q, err := Assemble(descriptor(t, models.OperationOccurrenceFacets), models.ParameterSet{
		"facet":      {"country"},
		"facetLimit": {"5"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"5"}, q.Get("facetLimit"))
}

func TestAssemble_ListFieldsRepeatKey(t *testing.T) {
	q, err := Assemble(descriptor(t, models.OperationOccurrenceSearch), models.ParameterSet{
		"year":          {"2020"},
		"basisOfRecord": {"PRESERVED_SPECIMEN", "FOSSIL_SPECIMEN"},
		"q":             {"Gainesville"},
		"gadmGid":       {"USA.10_1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "q=Gainesville&basisOfRecord=PRESERVED_SPECIMEN&basisOfRecord=FOSSIL_SPECIMEN&gadmGid=USA.10_1&year=2020", q.Encode())
}

func TestAssemble_Deterministic(t *testing.T) {
	d := descriptor(t, models.OperationOccurrenceSearch)
	build := func() models.ParameterSet {
		return models.ParameterSet{
			"speciesKey":    {"2435099"},
			"country":       {"US", "MX"},
			"year":          {"2020"},
			"recordedBy":    {"J. Smith & Co"},
			"hasCoordinate": {"true"},
		}
	}

	first, err := Assemble(d, build())
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Assemble(d, build())
		require.NoError(t, err)
		assert.Equal(t, first.APIURL(apiBase), again.APIURL(apiBase))
	}
	assert.Contains(t, first.Encode(), "recordedBy=J.+Smith+%26+Co")
}

func TestAssemble_PathParameters(t *testing.T) {
	q, err := Assemble(descriptor(t, models.OperationOccurrenceByID), models.ParameterSet{"gbifId": {"1258202889"}})
	require.NoError(t, err)

	assert.Empty(t, q.Pairs)
	assert.Equal(t, "https://api.gbif.org/v1/occurrence/1258202889", q.APIURL(apiBase))
	assert.Equal(t, "https://www.gbif.org/occurrence/1258202889", q.PortalURL(portalBase))

	_, err = Assemble(descriptor(t, models.OperationOccurrenceByID), models.ParameterSet{})
	assert.True(t, errors.Is(err, ErrMissingPathParameter))
}

func TestAssemble_UnknownField(t *testing.T) {
	_, err := Assemble(descriptor(t, models.OperationDatasetSearch), models.ParameterSet{"colour": {"red"}})
	assert.ErrorIs(t, err, apperrors.ErrUnknownField)
}

func TestAssemble_SkipsBlankValues(t *testing.T) {
	q, err := Assemble(descriptor(t, models.OperationOccurrenceSearch), models.ParameterSet{
		"country": {"", "  ", "KE"},
		"q":       {},
	})
	require.NoError(t, err)
	assert.Equal(t, "country=KE", q.Encode())
}

func TestQuery_With(t *testing.T) {
	q := Query{Path: "/occurrence/search", Pairs: []Pair{{"country", "KE"}, {"offset", "0"}, {"year", "2020"}}}

	paged := q.With("offset", "300")
	assert.Equal(t, "country=KE&offset=300&year=2020", paged.Encode())
	assert.Equal(t, "country=KE&offset=0&year=2020", q.Encode())

	limited := q.With("limit", "300")
	assert.Equal(t, "country=KE&offset=0&year=2020&limit=300", limited.Encode())
}
