package mapping

import (
	"strings"

	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/services"
)

// encoder converts one flat source value into the wire shape the target
// expects for an attribute.
type encoder func(value any) any

// socialAttributes take the single-entry value-object shape.
var socialAttributes = map[string]bool{
	"linkedin":  true,
	"twitter":   true,
	"facebook":  true,
	"instagram": true,
	"angellist": true,
}

// BuildPayload encodes a flattened record into a target payload using the
// given mapping. Source fields that are absent or empty are skipped rather
// than written as nulls.
func BuildPayload(object string, record models.FlatRecord, mapping models.FieldMapping) *models.TargetPayload {
	payload := &models.TargetPayload{Values: make(map[string]any, len(mapping))}

	for _, pair := range mapping {
		value, ok := record[pair.Source]
		if !ok || value == nil {
			continue
		}
		if s, isString := value.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		payload.Values[pair.Target] = encodeAttribute(object, pair.Target, value)
	}

	return payload
}

func encodeAttribute(object, attribute string, value any) any {
	switch {
	case attribute == "name" && object == "people":
		return encodePersonName(value)
	case attribute == "email_addresses":
		return encodeEmail(value)
	case attribute == "primary_location":
		return encodeLocation(value)
	case attribute == "domains":
		return encodeDomains(value)
	case socialAttributes[attribute]:
		return encodeValueObject(value)
	default:
		if _, ok := value.(string); ok {
			return encodeValueObject(value)
		}
		return value
	}
}

// encodePersonName splits a full name into first and last on the first
// space, keeping the full form alongside.
func encodePersonName(value any) any {
	full, ok := value.(string)
	if !ok {
		return value
	}
	first := full
	last := ""
	if idx := strings.Index(full, " "); idx >= 0 {
		first = full[:idx]
		last = full[idx+1:]
	}
	return []map[string]any{{
		"full_name":  full,
		"first_name": first,
		"last_name":  last,
	}}
}

func encodeEmail(value any) any {
	return []map[string]any{{"email_address": value}}
}

// encodeLocation wraps a city or address string in the target's full
// location shape, leaving the components it cannot derive blank.
func encodeLocation(value any) any {
	return []map[string]any{{
		"line_1":       "",
		"line_2":       "",
		"line_3":       "",
		"line_4":       "",
		"locality":     value,
		"region":       "",
		"postcode":     "",
		"country_code": nil,
		"latitude":     nil,
		"longitude":    nil,
	}}
}

func encodeDomains(value any) any {
	domain, ok := value.(string)
	if !ok {
		return value
	}
	return []map[string]any{{"domain": services.NormalizeDomain(domain)}}
}

func encodeValueObject(value any) any {
	return []map[string]any{{"value": value}}
}
