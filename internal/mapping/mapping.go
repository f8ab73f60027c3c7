// package mapping translates flattened source records into target payloads
//
// Field mappings pair a flat source key with a target attribute slug. Builtin
// tables cover the stock people and companies objects; custom objects load
// their tables from a JSON file.
package mapping

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/shared"
)

// peopleMapping covers the stock person fields.
var peopleMapping = models.FieldMapping{
	{Source: "name_full", Target: "name"},
	{Source: "email_primary", Target: "email_addresses"},
	{Source: "jobTitle", Target: "job_title"},
	{Source: "city", Target: "primary_location"},
	{Source: "linkedin_url", Target: "linkedin"},
	{Source: "x_url", Target: "twitter"},
}

// companiesMapping covers the stock company fields.
var companiesMapping = models.FieldMapping{
	{Source: "name", Target: "name"},
	{Source: "domain_url", Target: "domains"},
	{Source: "address", Target: "primary_location"},
	{Source: "linkedin_url", Target: "linkedin"},
	{Source: "x_url", Target: "twitter"},
}

var builtins = map[string]models.FieldMapping{
	"people":    peopleMapping,
	"companies": companiesMapping,
}

// Resolve returns the field mapping for an object type. When mappingFile is
// non-empty it is loaded and takes precedence over the builtin tables.
func Resolve(object, mappingFile string) (models.FieldMapping, error) {
	if mappingFile != "" {
		return LoadMappingFile(mappingFile, object)
	}
	mapping, ok := builtins[object]
	if !ok {
		return nil, fmt.Errorf("%w: no builtin mapping for %s, provide a mapping file", shared.ErrNoMapping, object)
	}
	return mapping, nil
}

// LoadMappingFile reads a JSON mapping table for one object type. The file
// holds either a flat {"source": "target"} table, or tables per object type
// keyed by object name.
func LoadMappingFile(path, object string) (models.FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	var perObject map[string]map[string]string
	if err := json.Unmarshal(data, &perObject); err == nil {
		table, ok := perObject[object]
		if !ok {
			return nil, fmt.Errorf("%w: mapping file has no table for %s", shared.ErrNoMapping, object)
		}
		return tableToMapping(table), nil
	}

	var flat map[string]string
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("%w: mapping file is not a JSON object: %v", shared.ErrInvalidInput, err)
	}
	return tableToMapping(flat), nil
}

func tableToMapping(table map[string]string) models.FieldMapping {
	mapping := make(models.FieldMapping, 0, len(table))
	for source, target := range table {
		mapping = append(mapping, models.FieldPair{Source: source, Target: target})
	}
	return mapping
}

// BuiltinObjects lists the object types with builtin mapping tables.
func BuiltinObjects() []string {
	return []string{"companies", "people"}
}
