package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/services"
	"github.com/desertthunder/crmx/internal/shared"
	"golang.org/x/time/rate"
)

// MergeResolver collapses duplicate groups into their oldest record.
//
// Every duplicate is deleted before the survivor is touched, so a failure
// partway through a group never leaves the survivor pointing at records
// that no longer exist. A delete failure aborts the rest of the group.
type MergeResolver struct {
	target  services.Target
	logger  *log.Logger
	limiter *rate.Limiter
}

// NewMergeResolver builds a resolver whose target calls are paced at
// rateLimit requests per second.
func NewMergeResolver(target services.Target, rateLimit float64, logger *log.Logger) *MergeResolver {
	if rateLimit <= 0 {
		rateLimit = 5.0
	}
	return &MergeResolver{
		target:  target,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
	}
}

// Plan decides how a duplicate group collapses: the oldest record survives
// and the union of every member's domains, oldest first, lands on it.
func Plan(group models.DuplicateGroup) models.MergeDecision {
	decision := models.MergeDecision{
		Master: group.Records[0],
		Others: group.Records[1:],
	}

	seen := make(map[string]bool)
	for _, record := range group.Records {
		for _, domain := range record.Domains {
			domain = services.NormalizeDomain(domain)
			if domain == "" || seen[domain] {
				continue
			}
			seen[domain] = true
			decision.Domains = append(decision.Domains, domain)
		}
	}
	return decision
}

// MergeResult contains the outcome of merging one duplicate group.
type MergeResult struct {
	Key      string               // Group key that was merged
	MasterID string               // Surviving record
	Deleted  []string             // Records removed
	Decision models.MergeDecision // The plan that was executed
	Err      error                // Non-nil when the group was aborted
}

// Execute collapses one duplicate group in the target. Duplicates are
// deleted one at a time; the first delete failure aborts the group before
// the survivor is updated. Only after every duplicate is gone does the
// survivor receive the merged domain list.
func (m *MergeResolver) Execute(ctx context.Context, object string, decision models.MergeDecision) (MergeResult, error) {
	result := MergeResult{MasterID: decision.Master.ID, Decision: decision}

	for _, record := range decision.Others {
		if err := m.limiter.Wait(ctx); err != nil {
			result.Err = err
			return result, err
		}
		if err := m.target.DeleteRecord(ctx, object, record.ID); err != nil {
			result.Err = fmt.Errorf("%w: failed to delete %s, survivor %s left untouched: %v",
				shared.ErrMergeAborted, record.ID, decision.Master.ID, err)
			return result, result.Err
		}
		result.Deleted = append(result.Deleted, record.ID)
		m.logger.Info("deleted duplicate", "object", object, "record", record.ID, "survivor", decision.Master.ID)
	}

	if len(decision.Domains) > 0 {
		if err := m.limiter.Wait(ctx); err != nil {
			result.Err = err
			return result, err
		}
		domains := make([]map[string]any, 0, len(decision.Domains))
		for _, domain := range decision.Domains {
			domains = append(domains, map[string]any{"domain": domain})
		}
		values := map[string]any{"domains": domains}
		if err := m.target.UpdateRecord(ctx, object, decision.Master.ID, values); err != nil {
			result.Err = fmt.Errorf("duplicates removed but survivor %s update failed: %w", decision.Master.ID, err)
			return result, result.Err
		}
	}

	return result, nil
}

// MergeGroups plans and executes every group, continuing past aborted
// groups so one stubborn record does not stall the whole scan.
func (m *MergeResolver) MergeGroups(ctx context.Context, prog chan<- ProgressUpdate, object string, groups []models.DuplicateGroup) ([]MergeResult, error) {
	if m.target == nil {
		return nil, fmt.Errorf("%w: target not initialized", shared.ErrServiceUnavailable)
	}

	results := make([]MergeResult, 0, len(groups))
	for i, group := range groups {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		if prog != nil {
			select {
			case prog <- mergeUpdate(i+1, len(groups), group.Key):
			default:
			}
		}

		result, err := m.Execute(ctx, object, Plan(group))
		result.Key = group.Key
		if err != nil {
			m.logger.Warn("merge group aborted", "object", object, "key", group.Key, "error", err)
			if prog != nil {
				select {
				case prog <- mergeFailedUpdate(i+1, len(groups), group.Key, err):
				default:
				}
			}
		}
		results = append(results, result)
	}
	return results, nil
}
