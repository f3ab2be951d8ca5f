package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"dbt-setup/internal/app"
)

// ProjectChosenMsg is the widget's single side effect: the identity of
// the project the user picked.
type ProjectChosenMsg struct {
	ID int
}

const (
	selectTriggerZone = "project-select-trigger"
	selectOptionZone  = "project-select-opt-%d"
)

// ProjectSelect is a controlled single-select over the candidate
// projects. It owns only transient interaction state (open, cursor);
// the selection itself is always supplied by the caller through
// SetSelected, so the widget can never disagree with the controller.
type ProjectSelect struct {
	theme    Theme
	options  []app.Project
	open     bool
	cursor   int
	selected int // project id, 0 = nothing selected
}

func NewProjectSelect(theme Theme) ProjectSelect {
	return ProjectSelect{theme: theme}
}

func (s *ProjectSelect) SetOptions(projects []app.Project) {
	s.options = projects
	if s.cursor >= len(projects) {
		s.cursor = 0
	}
}

// SetSelected sets the displayed selection. Zero clears it.
func (s *ProjectSelect) SetSelected(id int) { s.selected = id }

func (s ProjectSelect) Selected() int { return s.selected }

func (s ProjectSelect) IsOpen() bool { return s.open }

func (s ProjectSelect) Update(msg tea.Msg) (ProjectSelect, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !s.open {
			switch msg.String() {
			case "enter", " ":
				s.openList()
			case "down":
				// Directional open also moves off the current selection.
				s.openList()
				if s.open && s.selected != 0 && s.cursor < len(s.options)-1 {
					s.cursor++
				}
			case "up":
				s.openList()
				if s.open && s.selected != 0 && s.cursor > 0 {
					s.cursor--
				}
			}
			return s, nil
		}
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(s.options)-1 {
				s.cursor++
			}
		case "enter", " ":
			return s.choose(s.cursor)
		case "esc":
			// Close without choosing; focus stays on the trigger.
			s.open = false
		}
		return s, nil

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
			return s, nil
		}
		if z := zone.Get(selectTriggerZone); z != nil && z.InBounds(msg) {
			if s.open {
				s.open = false
			} else {
				s.openList()
			}
			return s, nil
		}
		if !s.open {
			return s, nil
		}
		for i := range s.options {
			if z := zone.Get(fmt.Sprintf(selectOptionZone, i)); z != nil && z.InBounds(msg) {
				return s.choose(i)
			}
		}
		// A press outside the control's boundary closes the list.
		s.open = false
		return s, nil
	}
	return s, nil
}

func (s *ProjectSelect) openList() {
	if len(s.options) == 0 {
		return
	}
	s.open = true
	s.cursor = 0
	for i, p := range s.options {
		if p.ID == s.selected {
			s.cursor = i
			break
		}
	}
}

func (s ProjectSelect) choose(idx int) (ProjectSelect, tea.Cmd) {
	if idx < 0 || idx >= len(s.options) {
		return s, nil
	}
	s.open = false
	id := s.options[idx].ID
	return s, func() tea.Msg { return ProjectChosenMsg{ID: id} }
}

func (s ProjectSelect) View() string {
	trigger := s.theme.Placeholder.Render("Select a project…")
	if p := s.selectedProject(); p != nil {
		trigger = fmt.Sprintf("%s  %s", p.Name, s.theme.Muted.Render(p.AccountName))
	}

	style := s.theme.Trigger
	if s.open {
		style = s.theme.TriggerOpen
	}
	out := zone.Mark(selectTriggerZone, style.Render(trigger+"  ▾"))

	if !s.open {
		return out
	}

	var rows []string
	for i, p := range s.options {
		label := fmt.Sprintf("%s · %s", p.Name, p.AccountName)
		if i == s.cursor {
			label = s.theme.OptionSel.Render("› " + label)
		} else {
			label = s.theme.Option.Render(label)
		}
		rows = append(rows, zone.Mark(fmt.Sprintf(selectOptionZone, i), label))
	}
	return out + "\n" + strings.Join(rows, "\n")
}

func (s ProjectSelect) selectedProject() *app.Project {
	for i := range s.options {
		if s.options[i].ID == s.selected {
			return &s.options[i]
		}
	}
	return nil
}
