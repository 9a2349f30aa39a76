package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ipfs/go-cid"

	"github.com/em32/mlcatalog/catalog"
	"github.com/em32/mlcatalog/catalog/plan"
)

const maxErrorsInTUI = 20

var (
	tuiTitleStyle = lipgloss.NewStyle().Bold(true)
	tuiErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	tuiDimStyle   = lipgloss.NewStyle().Faint(true)
)

// publishMsg is a message from the pipeline to the TUI.
type publishMsg struct {
	Item  *plan.Item
	Stats map[string]int
	Err   error
}

// publishModel is the Bubble Tea model for the publish TUI.
type publishModel struct {
	completed   int
	failed      int
	total       int
	currentItem string
	errors      []string
	logPath     string
	done        bool
	execErr     error
	finalStats  map[string]int
	ch          chan publishMsg
	width       int
}

func newPublishModel(logPath string, total int, ch chan publishMsg) *publishModel {
	return &publishModel{
		total:   total,
		logPath: logPath,
		errors:  make([]string, 0, maxErrorsInTUI),
		ch:      ch,
	}
}

func (m *publishModel) Init() tea.Cmd {
	return m.waitForMsg()
}

func (m *publishModel) waitForMsg() tea.Cmd {
	return func() tea.Msg {
		return <-m.ch
	}
}

func (m *publishModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, m.waitForMsg()
	case tea.KeyMsg:
		if m.done && msg.String() == "q" {
			return m, tea.Quit
		}
		return m, m.waitForMsg()
	case publishMsg:
		if msg.Item != nil {
			switch msg.Item.GetStatus() {
			case plan.ItemStatusCompleted:
				m.completed++
				m.currentItem = ""
			case plan.ItemStatusFailed:
				m.failed++
				m.errors = append(m.errors, msg.Item.Name+": "+msg.Item.GetError())
				if len(m.errors) > maxErrorsInTUI {
					m.errors = m.errors[len(m.errors)-maxErrorsInTUI:]
				}
				m.currentItem = ""
			case plan.ItemStatusInProgress:
				m.currentItem = msg.Item.Name
			}
			return m, m.waitForMsg()
		}
		if msg.Stats != nil {
			m.done = true
			m.execErr = msg.Err
			m.finalStats = msg.Stats
			m.completed = msg.Stats["completed"]
			m.failed = msg.Stats["failed"]
			m.total = msg.Stats["total"]
			return m, tea.Quit
		}
		return m, m.waitForMsg()
	default:
		return m, m.waitForMsg()
	}
}

func (m *publishModel) View() string {
	var b strings.Builder
	b.WriteString("  " + tuiTitleStyle.Render("mlcatalog publish") + "\n\n")
	b.WriteString(fmt.Sprintf("  Completed: %d  Failed: %d  Total: %d\n", m.completed, m.failed, m.total))
	if m.currentItem != "" {
		b.WriteString("  Current: " + truncate(m.currentItem, 60) + "\n")
	}
	b.WriteString("  " + tuiDimStyle.Render("Log file: "+m.logPath) + "\n\n")
	if len(m.errors) > 0 {
		b.WriteString("  Recent errors:\n")
		start := 0
		if len(m.errors) > 10 {
			start = len(m.errors) - 10
		}
		for i := start; i < len(m.errors); i++ {
			b.WriteString("    " + tuiErrStyle.Render("• "+truncate(m.errors[i], 70)) + "\n")
		}
	}
	if m.done && m.execErr != nil {
		b.WriteString("\n  " + tuiErrStyle.Render("Fatal: "+m.execErr.Error()) + "\n")
	}
	if m.done {
		b.WriteString("\n  Press q to quit.\n")
	}
	return b.String()
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// countPendingItems counts the items a publish run will actually execute.
func countPendingItems(p *plan.PublishPlan) int {
	n := 0
	for _, item := range p.Items {
		if item.GetStatus() == plan.ItemStatusPending {
			n++
		}
	}
	return n
}

// runPublishWithTUI runs the publish pipeline behind the progress TUI.
func runPublishWithTUI(ctx context.Context, svc *catalog.Service, logPath string, root cid.Cid) {
	ch := make(chan publishMsg, 64)
	svc.OnItemUpdate(func(item *plan.Item) {
		select {
		case ch <- publishMsg{Item: item}:
		default:
			// A slow TUI never blocks the pipeline.
		}
	})

	if err := svc.Publish(ctx, root); err != nil {
		log.Fatalf("Failed to start publish: %v", err)
	}

	go func() {
		svc.WaitForCompletion()
		stats := map[string]int{}
		if p := svc.GetPlan(); p != nil {
			stats = p.GetExecutionStatistics()
		}
		var execErr error
		status := svc.GetStatus()
		if msg, ok := status["error"].(string); ok && msg != "" {
			execErr = fmt.Errorf("%s", msg)
		}
		ch <- publishMsg{Stats: stats, Err: execErr}
	}()

	total := 0
	if p := svc.GetPlan(); p != nil {
		total = countPendingItems(p)
	}

	model := newPublishModel(logPath, total, ch)
	program := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := program.Run()
	if err != nil {
		log.Fatalf("TUI error: %v", err)
	}

	if pm, ok := finalModel.(*publishModel); ok && pm.failed > 0 {
		reportOutcome(svc)
	} else {
		printPatchResult(svc.GetPlan())
	}
}
