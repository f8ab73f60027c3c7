package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Extract Phase = iota
	Transform
	Load
	QueryTarget
	DetectDuplicates
	Merge
)

func (p Phase) String() string {
	switch p {
	case Extract:
		return "extract"
	case Transform:
		return "transform"
	case Load:
		return "load"
	case QueryTarget:
		return "query_target"
	case DetectDuplicates:
		return "detect_duplicates"
	case Merge:
		return "merge"
	default:
		return ""
	}
}

func extractUpdate(step, total int, object, service string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Extract,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Extracting %s from %s...", object, service),
	}
}

func extractedUpdate(count int, object string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Extract,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Extracted %d %s", count, object),
	}
}

func loadUpdate(step, total int, sourceID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Load,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Migrating %s...", step, total, sourceID),
	}
}

func loadedUpdate(step, total int, sourceID, targetID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Load,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s -> %s", step, total, sourceID, targetID),
	}
}

func loadFailedUpdate(step, total int, sourceID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Load,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, sourceID, err),
	}
}

func queryUpdate(object, service string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueryTarget,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Querying %s records from %s...", object, service),
	}
}

func duplicatesUpdate(groups, records int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DetectDuplicates,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d duplicate groups covering %d records", groups, records),
	}
}

func mergeUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Merge,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Merging group %s...", step, total, key),
	}
}

func mergeFailedUpdate(step, total int, key string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Merge,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ group %s: %v", step, total, key, err),
	}
}
