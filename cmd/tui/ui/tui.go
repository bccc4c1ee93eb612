package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hazukari/sc3kit/internal/tui/adapters"
	modelpkg "github.com/hazukari/sc3kit/internal/tui/model"
)

// historyLimit caps how many runs the browser loads per refresh.
const historyLimit = 200

// TuiModel is the Bubble Tea model used by cmd/tui.
type TuiModel struct {
	uiModel *modelpkg.UIModel
	list    list.Model
	vp      viewport.Model

	width  int
	height int

	showDetail  bool
	detail      string
	detailTitle string
	loadErr     string
	// accessibility / theme
	themeHighContrast bool
	// track last selected run so we can detect changes and update preview
	lastSelectedID int64
	// focus: false = left pane (list), true = right pane (viewport)
	focusRight bool
}

// Messages
type runsLoadedMsg struct{ err error }

func NewModel(ui *modelpkg.UIModel) *TuiModel {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "sc3kit — runs"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	vp := viewport.New(0, 0)

	return &TuiModel{uiModel: ui, list: l, vp: vp}
}

// NewProgram constructs the tea.Program for the TUI.
func NewProgram(ui *modelpkg.UIModel) *tea.Program {
	m := NewModel(ui)
	p := tea.NewProgram(m, tea.WithAltScreen())
	return p
}

// refreshRuns reloads the run cache off the UI goroutine and reports back
// with a runsLoadedMsg.
func refreshRuns(ui *modelpkg.UIModel) tea.Cmd {
	return func() tea.Msg {
		err := ui.RefreshRuns(context.Background(), historyLimit)
		return runsLoadedMsg{err: err}
	}
}

func (m *TuiModel) Init() tea.Cmd {
	return refreshRuns(m.uiModel)
}

func (m *TuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// While the filter input is active every key belongs to the list,
		// otherwise typing a query would trigger the global bindings.
		if m.list.FilterState() == list.Filtering {
			m.list, cmd = m.list.Update(msg)
			return m, cmd
		}

		s := msg.String()
		switch s {
		case "q", "esc":
			return m, tea.Quit
		case "?":
			m.showDetail = true
			m.detailTitle = "Help"
			m.setDetail("Help:\n\n? show help\nq or Esc to quit\nEnter to open the selected run\nb back to the run list\nr refresh the run list\nR show releases\n/ to filter\n← → or Tab to switch pane focus\n↑ ↓ to scroll focused pane\nT toggle high-contrast theme")
			return m, nil
		case "enter":
			if i, ok := m.list.SelectedItem().(runItem); ok {
				m.showDetail = true
				m.detailTitle = fmt.Sprintf("Run #%d", i.r.ID)
				// fetch the full run (including step output) if possible
				if run, steps, err := m.uiModel.RunDetail(context.Background(), i.r.ID); err == nil {
					m.setDetail(formatRunFullScreen(run, steps, m.width))
				} else {
					m.setDetail(formatRunFullScreen(i.r, nil, m.width))
				}
			}
			return m, nil
		case "b":
			m.showDetail = false
			m.focusRight = false // reset focus to left pane when going back
			// Restore the viewport content to show the preview of the selected run
			_, rightInner, bodyInner := m.layoutSizes()
			m.ensureViewportSize(rightInner, bodyInner)
			if si := m.list.SelectedItem(); si != nil {
				if it, ok := si.(runItem); ok {
					m.vp.SetContent(m.previewFor(it.r))
				}
			}
			return m, nil
		case "r":
			return m, refreshRuns(m.uiModel)
		case "R":
			if err := m.uiModel.RefreshReleases(context.Background(), 0); err != nil {
				m.loadErr = err.Error()
				return m, nil
			}
			m.showDetail = true
			m.detailTitle = "Releases"
			m.setDetail(formatReleases(m.uiModel.CachedReleases(), m.width))
			return m, nil
		case "T", "t":
			m.themeHighContrast = !m.themeHighContrast
			return m, nil
		case "left":
			m.focusRight = false
			return m, nil
		case "right":
			m.focusRight = true
			return m, nil
		case "tab":
			m.focusRight = !m.focusRight
			return m, nil
		}
		// non-printable bindings
		if msg.Type == tea.KeyCtrlT {
			m.themeHighContrast = !m.themeHighContrast
			return m, nil
		}

		// Handle scrolling based on which pane has focus. The detail view
		// is a single scrollable pane, so scroll keys always reach it.
		if m.focusRight || m.showDetail {
			switch s {
			case "up", "k":
				m.vp.LineUp(1)
				return m, nil
			case "down", "j":
				m.vp.LineDown(1)
				return m, nil
			case "pgup":
				m.vp.HalfViewUp()
				return m, nil
			case "pgdown":
				m.vp.HalfViewDown()
				return m, nil
			case "home":
				m.vp.GotoTop()
				return m, nil
			case "end":
				m.vp.GotoBottom()
				return m, nil
			}
		}
		// Left pane focused or other keys - pass to list

		m.list, cmd = m.list.Update(msg)

		if s == "/" {
			// filter mode entry is already handled by the list; just return
			return m, cmd
		}

		// If the selection changed, update the preview pane by fetching the
		// full run (including steps) from the model and rendering it.
		if si := m.list.SelectedItem(); si != nil {
			if it, ok := si.(runItem); ok {
				if it.r.ID != m.lastSelectedID {
					m.vp.SetContent(m.previewFor(it.r))
					m.lastSelectedID = it.r.ID
				}
			}
		}

	case runsLoadedMsg:
		if msg.err != nil {
			m.loadErr = msg.err.Error()
			return m, nil
		}
		m.loadErr = ""
		cached := m.uiModel.CachedRuns()
		items := make([]list.Item, 0, len(cached))
		for _, r := range cached {
			items = append(items, runItem{r: r})
		}

		// Ensure the list and viewport have reasonable defaults so the UI
		// shows content on first render (before a WindowSizeMsg arrives).
		if m.list.Height() == 0 {
			m.list.SetSize(30, 10)
		}
		if m.vp.Width == 0 || m.vp.Height == 0 {
			m.vp = viewport.New(40, 12)
		}

		// Set items after sizing so the list delegate can render immediately
		m.list.SetItems(items)

		// If there are runs, select the first and populate the preview
		if len(items) > 0 {
			m.list.Select(0)
			if it, ok := items[0].(runItem); ok {
				m.lastSelectedID = it.r.ID
				m.vp.SetContent(m.previewFor(it.r))
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		sideInner, rightInner, bodyInner := m.layoutSizes()
		m.list.SetSize(sideInner, bodyInner)

		if m.showDetail {
			w, h := m.detailSizes()
			m.ensureViewportSize(w, h)
			m.vp.SetContent(m.detail)
			return m, nil
		}
		m.ensureViewportSize(rightInner, bodyInner)

		// update content for selected
		if si := m.list.SelectedItem(); si != nil {
			if it, ok := si.(runItem); ok {
				m.vp.SetContent(m.previewFor(it.r))
			}
		}
	}

	return m, cmd
}

// setDetail switches the viewport to the full-screen detail layout and
// fills it with the given content.
func (m *TuiModel) setDetail(content string) {
	m.detail = content
	w, h := m.detailSizes()
	m.ensureViewportSize(w, h)
	m.vp.SetContent(content)
	m.vp.GotoTop()
}

// previewFor renders the right-pane preview for a run, falling back to the
// cached summary when the full record cannot be fetched.
func (m *TuiModel) previewFor(r adapters.RunSummary) string {
	if run, steps, err := m.uiModel.RunDetail(context.Background(), r.ID); err == nil {
		return formatRunDetails(run, steps, m.vp.Width)
	}
	return formatRunDetails(r, nil, m.vp.Width)
}

// layoutSizes computes the inner pane sizes for the main two-pane view.
func (m *TuiModel) layoutSizes() (sideInner, rightInner, bodyInner int) {
	bodyH := m.height - 1 - 1 - 2
	if bodyH < 3 {
		bodyH = 3
	}

	sideW := int(float64(m.width) * 0.35)
	if sideW > 36 {
		sideW = 36
	}
	if sideW < 20 {
		sideW = 20
	}
	sideInner = sideW - 2
	if sideInner < 10 {
		sideInner = 10
	}

	rightW := m.width - sideW - 4
	if rightW < 12 {
		rightW = 12
	}
	rightInner = rightW - 2
	if rightInner < 10 {
		rightInner = 10
	}

	bodyInner = bodyH - 2
	if bodyInner < 1 {
		bodyInner = 1
	}
	return sideInner, rightInner, bodyInner
}

// detailSizes computes the viewport size for the full-screen detail view.
func (m *TuiModel) detailSizes() (w, h int) {
	bodyH := m.height - 1 - 1 - 2
	if bodyH < 3 {
		bodyH = 3
	}
	w = m.width - 6
	if w < 10 {
		w = 10
	}
	h = bodyH - 2
	if h < 1 {
		h = 1
	}
	return w, h
}

func (m *TuiModel) View() string {
	if m.showDetail {
		// Use the same top title bar and content container approach as the main
		// page so borders and colors remain consistent across views.
		var rightBorder, bottomBg, bottomFg string
		if m.themeHighContrast {
			rightBorder = "#ffffff"
			bottomBg, bottomFg = "#000000", "#ffffff"
		} else {
			rightBorder = "#c084fc"
			bottomBg, bottomFg = "#0b1226", "#cbd5e1"
		}

		footerH := 1
		bottomH := 1
		bodyH := m.height - footerH - bottomH - 2
		if bodyH < 3 {
			bodyH = 3
		}

		contentStyle := lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color(rightBorder)).
			Padding(1).
			Width(m.width - 2).
			Height(bodyH)
		body := contentStyle.Render(m.vp.View())

		status := fmt.Sprintf("Viewing: %s", m.detailTitle)
		bottom := lipgloss.NewStyle().
			Background(lipgloss.Color(bottomBg)).
			Foreground(lipgloss.Color(bottomFg)).
			Padding(0, 1).
			Width(m.width).
			Render(" " + status + " ")

		footer := lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#94a3b8")).
			Render("(↑/↓) Scroll • (T) Toggle Theme • (b) Back • (q) Quit")
		return lipgloss.JoinVertical(lipgloss.Left, body, footer, bottom)
	}

	headH := 1
	footerH := 1
	bodyH := m.height - headH - footerH - 2
	if bodyH < 3 {
		bodyH = 3
	}

	// colors adjust for high-contrast theme
	var sideBorder, rightBorder, bottomBg, bottomFg string
	var sideBorderStyle, rightBorderStyle lipgloss.Border
	sideBorderStyle = lipgloss.NormalBorder()
	rightBorderStyle = lipgloss.NormalBorder()

	if m.themeHighContrast {
		bottomBg, bottomFg = "#000000", "#ffffff"
		if m.focusRight {
			sideBorder = "#444444"
			rightBorder = "#ffffff"
			rightBorderStyle = lipgloss.ThickBorder()
		} else {
			sideBorder = "#ffffff"
			sideBorderStyle = lipgloss.ThickBorder()
			rightBorder = "#444444"
		}
	} else {
		bottomBg, bottomFg = "#0b1226", "#cbd5e1"
		if m.focusRight {
			// Right focused
			sideBorder = "#334155"  // dimmed slate
			rightBorder = "#c084fc" // active purple
			rightBorderStyle = lipgloss.ThickBorder()
		} else {
			// Left focused
			sideBorder = "#7dd3fc" // active sky
			sideBorderStyle = lipgloss.ThickBorder()
			rightBorder = "#334155" // dimmed slate
		}
	}

	titleBox := m.renderTitleBox(fmt.Sprintf(" sc3kit — Run history (%d) ", len(m.list.Items())))

	sidebarStyle := lipgloss.NewStyle().BorderStyle(sideBorderStyle).BorderForeground(lipgloss.Color(sideBorder)).Padding(0).Width(m.list.Width()).Height(bodyH)
	sidebar := sidebarStyle.Render(m.list.View())

	// compute right pane width to align with outer layout (same logic used in WindowSizeMsg)
	rightW := m.width - m.list.Width() - 4
	if rightW < 12 {
		rightW = 12
	}
	rightStyle := lipgloss.NewStyle().BorderStyle(rightBorderStyle).BorderForeground(lipgloss.Color(rightBorder)).Padding(1).Width(rightW).Height(bodyH)
	right := rightStyle.Render(m.vp.View())

	var body string
	if m.width < 80 {
		body = lipgloss.JoinVertical(lipgloss.Left, sidebar, right)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, right)
	}

	status := "Runs: " + fmt.Sprintf("%d", len(m.list.Items()))
	if m.focusRight {
		status += " • FOCUS: DETAILS"
	} else {
		status += " • FOCUS: RUN LIST"
	}
	if m.list.FilterState() == list.Filtering {
		status += " • FILTER MODE"
	}
	if m.loadErr != "" {
		status += " • ERROR: " + m.loadErr
	}
	bottom := lipgloss.NewStyle().Background(lipgloss.Color(bottomBg)).Foreground(lipgloss.Color(bottomFg)).Padding(0, 1).Width(m.width).Render(" " + status + " ")

	footerText := "← / → / Tab switch focus • ↑ / ↓ scroll focused pane • Enter details • r refresh • R releases • T theme • q quit • ? help"
	footer := lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#94a3b8")).Render(footerText)

	return lipgloss.JoinVertical(lipgloss.Left, titleBox, body, footer, bottom)
}

// runItem adapts adapters.RunSummary for the list component
type runItem struct{ r adapters.RunSummary }

func (i runItem) Title() string {
	label := i.r.Event
	if i.r.Version != "" {
		label = "v" + i.r.Version
	}
	return fmt.Sprintf("#%d  %s", i.r.ID, label)
}

func (i runItem) Description() string {
	if i.r.Message != "" {
		return i.r.Status + " • " + i.r.Message
	}
	return i.r.Status + " • " + i.r.Started
}

func (i runItem) FilterValue() string {
	return fmt.Sprintf("#%d %s %s %s %s %s", i.r.ID, i.r.Event, i.r.Ref, i.r.Version, i.r.Status, i.r.Message)
}

// renderTitleBox produces a consistent title bar (with border) matching the
// main page. Use this to keep title styling identical across views.
func (m *TuiModel) renderTitleBox(text string) string {
	var titleFg, titleBg, titleBorder string
	if m.themeHighContrast {
		titleFg, titleBg = "#000000", "#ffff00"
		titleBorder = "#ffff00"
	} else {
		titleFg, titleBg = "#ffffff", "#0f766e"
		titleBorder = "#0ea5a4"
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(titleFg)).Background(lipgloss.Color(titleBg)).Padding(0, 1)
	title := titleStyle.Render(text)
	titleInner := lipgloss.Place(m.width-2, 1, lipgloss.Center, lipgloss.Center, title)
	return lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color(titleBorder)).Width(m.width).Render(titleInner)
}
