package services

import (
	"strings"

	"github.com/desertthunder/crmx/internal/models"
)

// Flatten copies a source record and derives flat scalar fields from its
// nested structures so the mapping layer only ever sees top-level keys.
// The original nested values are left in place.
func Flatten(record models.SourceRecord) models.FlatRecord {
	flat := make(models.FlatRecord, len(record)+5)
	for k, v := range record {
		flat[k] = v
	}

	if name, ok := record["name"].(map[string]any); ok {
		first, _ := name["firstName"].(string)
		last, _ := name["lastName"].(string)
		flat["name_full"] = strings.TrimSpace(first + " " + last)
	}

	if emails, ok := record["emails"].(map[string]any); ok {
		if primary, ok := emails["primaryEmail"].(string); ok {
			flat["email_primary"] = primary
		}
	}

	if link := primaryLink(record, "linkedinLink"); link != "" {
		flat["linkedin_url"] = link
	}

	if link := primaryLink(record, "domainName"); link != "" {
		flat["domain_url"] = link
	}

	if link := primaryLink(record, "xLink"); link != "" {
		flat["x_url"] = NormalizeHandle(link)
	}

	return flat
}

func primaryLink(record models.SourceRecord, key string) string {
	nested, ok := record[key].(map[string]any)
	if !ok {
		return ""
	}
	link, _ := nested["primaryLinkUrl"].(string)
	return link
}

// NormalizeHandle reduces a Twitter/X profile URL to a bare handle. Values
// that do not look like profile URLs pass through with only the trailing
// domain fragment trimmed.
func NormalizeHandle(value string) string {
	handle := value
	if strings.Contains(handle, "twitter.com/") || strings.Contains(handle, "x.com/") {
		handle = strings.TrimRight(handle, "/")
		if idx := strings.LastIndex(handle, "/"); idx >= 0 {
			handle = handle[idx+1:]
		}
		if idx := strings.Index(handle, "?"); idx >= 0 {
			handle = handle[:idx]
		}
	}
	if idx := strings.Index(handle, "."); idx >= 0 {
		handle = handle[:idx]
	}
	return handle
}

// NormalizeDomain lowercases a domain and strips scheme, www prefix, path
// and trailing slashes so company domains compare reliably.
func NormalizeDomain(value string) string {
	domain := strings.ToLower(strings.TrimSpace(value))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	if idx := strings.Index(domain, "/"); idx >= 0 {
		domain = domain[:idx]
	}
	return domain
}
