package tasks

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/services"
	"github.com/desertthunder/crmx/internal/shared"
)

// KeyFunc extracts the grouping keys a record is filed under. A record with
// several keys joins several groups.
type KeyFunc func(models.RecordSummary) []string

// PersonEmailKeys groups people by each of their lowercased emails.
func PersonEmailKeys(record models.RecordSummary) []string {
	keys := make([]string, 0, len(record.Emails))
	for _, email := range record.Emails {
		if email = strings.ToLower(strings.TrimSpace(email)); email != "" {
			keys = append(keys, email)
		}
	}
	return keys
}

// CompanyDomainKeys groups companies by each of their domains.
func CompanyDomainKeys(record models.RecordSummary) []string {
	keys := make([]string, 0, len(record.Domains))
	for _, domain := range record.Domains {
		if domain = services.NormalizeDomain(domain); domain != "" {
			keys = append(keys, domain)
		}
	}
	return keys
}

// CompanyNameKeys groups companies by lowercased name.
func CompanyNameKeys(record models.RecordSummary) []string {
	name := strings.ToLower(strings.TrimSpace(record.Name))
	if name == "" {
		return nil
	}
	return []string{name}
}

// Detect groups records sharing a key and keeps the groups with more than
// one member, sorted by key for stable output. Group members stay sorted by
// creation time ascending.
func Detect(records []models.RecordSummary, keyOf KeyFunc) []models.DuplicateGroup {
	byKey := make(map[string][]models.RecordSummary)
	for _, record := range records {
		for _, key := range keyOf(record) {
			byKey[key] = append(byKey[key], record)
		}
	}

	groups := make([]models.DuplicateGroup, 0)
	for key, members := range byKey {
		if len(members) < 2 {
			continue
		}
		sort.SliceStable(members, func(i, j int) bool {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		})
		groups = append(groups, models.DuplicateGroup{Key: key, Records: members})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

// DuplicateReport contains every duplicate view found in one target object.
type DuplicateReport struct {
	Object   string                  // Target object that was scanned
	Total    int                     // Records scanned
	ByEmail  []models.DuplicateGroup // People sharing an email
	ByDomain []models.DuplicateGroup // Companies sharing a domain
	ByName   []models.DuplicateGroup // Companies sharing a name
}

// Groups returns every group across the report's views.
func (r *DuplicateReport) Groups() []models.DuplicateGroup {
	groups := make([]models.DuplicateGroup, 0, len(r.ByEmail)+len(r.ByDomain)+len(r.ByName))
	groups = append(groups, r.ByEmail...)
	groups = append(groups, r.ByDomain...)
	groups = append(groups, r.ByName...)
	return groups
}

// DuplicateDetector scans a target object for records sharing a natural key.
type DuplicateDetector struct {
	target services.Target
	logger *log.Logger
}

func NewDuplicateDetector(target services.Target, logger *log.Logger) *DuplicateDetector {
	return &DuplicateDetector{target: target, logger: logger}
}

// Scan queries every record of an object and groups duplicates. People are
// grouped by email; companies by domain and, independently, by name.
func (d *DuplicateDetector) Scan(ctx context.Context, prog chan<- ProgressUpdate, object string) (*DuplicateReport, error) {
	if d.target == nil {
		return nil, fmt.Errorf("%w: target not initialized", shared.ErrServiceUnavailable)
	}

	if prog != nil {
		select {
		case prog <- queryUpdate(object, d.target.Name()):
		default:
		}
	}

	records, err := d.target.QueryRecords(ctx, object)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", object, err)
	}

	report := &DuplicateReport{Object: object, Total: len(records)}
	switch object {
	case "people":
		summaries := summarize(records, services.SummarizePerson)
		report.ByEmail = Detect(summaries, PersonEmailKeys)
	case "companies":
		summaries := summarize(records, services.SummarizeCompany)
		report.ByDomain = Detect(summaries, CompanyDomainKeys)
		report.ByName = Detect(summaries, CompanyNameKeys)
	default:
		return nil, fmt.Errorf("%w: no duplicate keys defined for %s", shared.ErrInvalidArgument, object)
	}

	groups := report.Groups()
	covered := 0
	for _, group := range groups {
		covered += len(group.Records)
	}
	d.logger.Info("duplicate scan complete", "object", object, "records", len(records), "groups", len(groups))

	if prog != nil {
		select {
		case prog <- duplicatesUpdate(len(groups), covered):
		default:
		}
	}
	return report, nil
}

func summarize(records []services.TargetRecord, fn func(services.TargetRecord) models.RecordSummary) []models.RecordSummary {
	summaries := make([]models.RecordSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, fn(record))
	}
	return summaries
}
