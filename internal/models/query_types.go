// internal/models/query_types.go
package models

// Operation identifies one GBIF search surface the engine can build queries for.
type Operation string

const (
	OperationOccurrenceSearch Operation = "occurrence_search"
	OperationOccurrenceFacets Operation = "occurrence_facets"
	OperationOccurrenceByID   Operation = "occurrence_by_id"
	OperationSpeciesSearch    Operation = "species_search"
	OperationSpeciesFacets    Operation = "species_facets"
	OperationSpeciesTaxonomic Operation = "species_taxonomic"
	OperationDatasetSearch    Operation = "dataset_search"
)

var AllOperations = []Operation{
	OperationOccurrenceSearch,
	OperationOccurrenceFacets,
	OperationOccurrenceByID,
	OperationSpeciesSearch,
	OperationSpeciesFacets,
	OperationSpeciesTaxonomic,
	OperationDatasetSearch,
}

func (o Operation) Valid() bool {
	for _, op := range AllOperations {
		if op == o {
			return true
		}
	}
	return false
}
