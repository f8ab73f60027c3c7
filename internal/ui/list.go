package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/crmx/internal/models"
)

var (
	_ list.Item = groupItem{}
	_ list.Item = recordItem{}
)

// groupItem wraps [models.DuplicateGroup] to implement [list.Item].
type groupItem struct {
	group models.DuplicateGroup
}

func (i groupItem) FilterValue() string { return i.group.Key }
func (i groupItem) Title() string       { return i.group.Key }
func (i groupItem) Description() string {
	return fmt.Sprintf("%d records, oldest kept on merge", len(i.group.Records))
}

// recordItem wraps [models.RecordSummary] to implement [list.Item].
type recordItem struct {
	record models.RecordSummary
	oldest bool
}

func (i recordItem) FilterValue() string { return i.record.Name }
func (i recordItem) Title() string {
	name := i.record.Name
	if name == "" {
		name = i.record.ID
	}
	if i.oldest {
		return fmt.Sprintf("%s (survives)", name)
	}
	return name
}
func (i recordItem) Description() string {
	desc := fmt.Sprintf("created %s", i.record.CreatedAt.Format(time.RFC3339))
	if len(i.record.Emails) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, i.record.Emails[0])
	}
	if len(i.record.Domains) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, i.record.Domains[0])
	}
	return desc
}
