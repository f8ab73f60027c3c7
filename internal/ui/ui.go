package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/crmx/internal/models"
	"github.com/desertthunder/crmx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	GroupListView ViewState = iota
	GroupDetailView
	ConfirmView
	MergeView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx           context.Context
	view          ViewState
	object        string
	detector      *tasks.DuplicateDetector
	resolver      *tasks.MergeResolver
	width         int
	height        int
	groupList     list.Model
	groups        []models.DuplicateGroup
	autoGroups    []models.DuplicateGroup
	recordList    list.Model
	selectedGroup *models.DuplicateGroup
	progressChan  chan tasks.ProgressUpdate
	progress      tasks.ProgressUpdate
	results       []tasks.MergeResult
	err           error
	help          help.Model
	keys          keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	all     key.Binding
	restart key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "inspect")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "no")),
		all:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "merge all")),
		restart: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "rescan")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no},
		{k.all, k.restart, k.quit},
	}
}

type groupsFetchedMsg struct {
	report *tasks.DuplicateReport
	err    error
}

type progressUpdateMsg tasks.ProgressUpdate

type mergeCompleteMsg struct {
	results []tasks.MergeResult
	err     error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, object string, detector *tasks.DuplicateDetector, resolver *tasks.MergeResolver) *Model {
	return &Model{
		ctx:      ctx,
		view:     GroupListView,
		object:   object,
		detector: detector,
		resolver: resolver,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init initializes the TUI by scanning the target for duplicates.
func (m *Model) Init() tea.Cmd {
	return m.scanDuplicates()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.groupList.Width() == 0 {
			m.groupList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.recordList.Width() == 0 {
			m.recordList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case GroupListView:
			return m.handleGroupListKeys(msg)
		case GroupDetailView:
			return m.handleDetailKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case groupsFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.groups = msg.report.Groups()
		// Merge-all stays off name-keyed groups; those need per-group
		// confirmation because a shared name alone is too weak a signal
		// to delete records on.
		m.autoGroups = append([]models.DuplicateGroup{}, msg.report.ByEmail...)
		m.autoGroups = append(m.autoGroups, msg.report.ByDomain...)
		items := make([]list.Item, len(m.groups))
		for i, group := range m.groups {
			items[i] = groupItem{group: group}
		}
		m.groupList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.groupList.Title = fmt.Sprintf("Duplicate %s groups", m.object)
		m.groupList.SetSize(m.width-4, m.height-8)
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case mergeCompleteMsg:
		if msg.results != nil {
			m.results = msg.results
		}
		m.err = msg.err
		m.view = ResultView
		if m.progressChan != nil {
			m.progressChan = nil
		}
		return m, nil
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case GroupListView:
		return m.renderGroupList()
	case GroupDetailView:
		return m.renderDetail()
	case ConfirmView:
		return m.renderConfirm()
	case MergeView:
		return m.renderMerge()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleGroupListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "a":
		if len(m.autoGroups) > 0 {
			m.view = MergeView
			return m, m.startMergeAll()
		}
	case "enter":
		selected := m.groupList.SelectedItem()
		if selected != nil {
			if item, ok := selected.(groupItem); ok {
				m.showDetail(item.group)
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	m.groupList, cmd = m.groupList.Update(msg)
	return m, cmd
}

func (m *Model) showDetail(group models.DuplicateGroup) {
	m.selectedGroup = &group
	items := make([]list.Item, len(group.Records))
	for i, record := range group.Records {
		items[i] = recordItem{record: record, oldest: i == 0}
	}
	m.recordList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.recordList.Title = fmt.Sprintf("Records sharing '%s'", group.Key)
	m.recordList.SetSize(m.width-4, m.height-8)
	m.view = GroupDetailView
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = GroupListView
		return m, nil
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.recordList, cmd = m.recordList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		m.view = GroupDetailView
		return m, nil
	case "y":
		m.view = MergeView
		return m, m.startMergeGroup()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = GroupListView
		m.selectedGroup = nil
		m.results = nil
		m.err = nil
		return m, m.scanDuplicates()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case GroupListView:
		m.groupList, cmd = m.groupList.Update(msg)
	case GroupDetailView:
		m.recordList, cmd = m.recordList.Update(msg)
	}
	return m, cmd
}

func (m *Model) scanDuplicates() tea.Cmd {
	return func() tea.Msg {
		report, err := m.detector.Scan(m.ctx, nil, m.object)
		return groupsFetchedMsg{report: report, err: err}
	}
}

func (m *Model) startMergeGroup() tea.Cmd {
	group := *m.selectedGroup
	return func() tea.Msg {
		result, err := m.resolver.Execute(m.ctx, m.object, tasks.Plan(group))
		result.Key = group.Key
		return mergeCompleteMsg{results: []tasks.MergeResult{result}, err: err}
	}
}

func (m *Model) startMergeAll() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progress := m.progressChan
	groups := m.autoGroups

	go func() {
		results, err := m.resolver.MergeGroups(m.ctx, progress, m.object, groups)
		m.results = results
		m.err = err
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return mergeCompleteMsg{results: nil, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return mergeCompleteMsg{results: m.results, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderGroupList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.all, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.groupList.View(), helpView)
}

func (m *Model) renderDetail() string {
	mergeKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "merge"),
	)
	helpKeys := []key.Binding{mergeKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.recordList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	group := m.selectedGroup
	title := styles.title.Render(fmt.Sprintf("Merge %d records sharing '%s'?", len(group.Records), group.Key))
	decision := tasks.Plan(*group)
	info := fmt.Sprintf("\nSurvivor: %s (oldest)\nDeleted: %d records\nMerged domains: %d\n",
		decision.Master.ID, len(decision.Others), len(decision.Domains))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderMerge() string {
	title := styles.title.Render("Merging duplicates")
	return fmt.Sprintf("%s\n\n%s", title, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil && len(m.results) == 0 {
		return styles.err.Render(fmt.Sprintf("Merge failed: %v\n\nPress r to rescan, q to quit", m.err))
	}

	merged := 0
	aborted := 0
	for _, result := range m.results {
		if result.Err != nil {
			aborted++
		} else {
			merged++
		}
	}

	title := styles.ok.Render("✓ Merge complete")
	if aborted > 0 {
		title = styles.warn.Render("Merge finished with aborted groups")
	}
	info := fmt.Sprintf("\nMerged: %d groups\nAborted: %d groups\n", merged, aborted)

	var failures string
	for _, result := range m.results {
		if result.Err != nil {
			failures += fmt.Sprintf("\n  • %s: %v", result.Key, result.Err)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failures, helpView)
}
