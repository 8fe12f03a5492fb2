package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"

	"github.com/oakwood-commons/vmscope/internal/formatter"
)

// Theme defines colors used across the panel.
type Theme struct {
	HeaderFG   color.Color // Title bar text
	HeaderBG   color.Color // Title bar background
	Instance   color.Color // Instance names
	Property   color.Color // Property names
	Value      color.Color // Property values
	Meta       color.Color // Ids, types and other dim text
	Fitted     color.Color // Rows satisfying the search
	SelectedFG color.Color // Cursor row foreground
	SelectedBG color.Color // Cursor row background
	Notice     color.Color // Notification text
	Error      color.Color // Error status text
	FooterFG   color.Color // Footer key labels
	FooterBG   color.Color // Footer key background
}

// DefaultTheme returns the dark palette (ANSI 256 codes).
func DefaultTheme() Theme {
	return Theme{
		HeaderFG:   lipgloss.Color("15"),
		HeaderBG:   lipgloss.Color("24"),
		Instance:   lipgloss.Color("14"),
		Property:   lipgloss.Color("12"),
		Value:      lipgloss.Color("248"),
		Meta:       lipgloss.Color("240"),
		Fitted:     lipgloss.Color("11"),
		SelectedFG: lipgloss.Color("0"),
		SelectedBG: lipgloss.Color("117"),
		Notice:     lipgloss.Color("10"),
		Error:      lipgloss.Color("9"),
		FooterFG:   lipgloss.Color("15"),
		FooterBG:   lipgloss.Color("240"),
	}
}

// TableColors maps the theme onto the text formatter palette so dumps and
// the panel agree.
func (t Theme) TableColors() formatter.TableColors {
	return formatter.TableColors{
		HeaderFG:       t.HeaderFG,
		HeaderBG:       t.HeaderBG,
		KeyColor:       t.Property,
		ValueColor:     t.Value,
		SeparatorColor: t.Meta,
		FittedColor:    t.Fitted,
	}
}

type styles struct {
	header   lipgloss.Style
	instance lipgloss.Style
	property lipgloss.Style
	value    lipgloss.Style
	meta     lipgloss.Style
	fitted   lipgloss.Style
	selected lipgloss.Style
	notice   lipgloss.Style
	err      lipgloss.Style
	key      lipgloss.Style
	badge    lipgloss.Style
}

func newStyles(t Theme, noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{
			header:   plain.Bold(true),
			instance: plain,
			property: plain,
			value:    plain,
			meta:     plain,
			fitted:   plain.Bold(true),
			selected: plain.Reverse(true),
			notice:   plain,
			err:      plain,
			key:      plain.Reverse(true),
			badge:    plain.Border(lipgloss.NormalBorder()).Padding(0, 1),
		}
	}
	return styles{
		header:   lipgloss.NewStyle().Bold(true).Foreground(t.HeaderFG).Background(t.HeaderBG),
		instance: lipgloss.NewStyle().Bold(true).Foreground(t.Instance),
		property: lipgloss.NewStyle().Foreground(t.Property),
		value:    lipgloss.NewStyle().Foreground(t.Value),
		meta:     lipgloss.NewStyle().Foreground(t.Meta),
		fitted:   lipgloss.NewStyle().Bold(true).Foreground(t.Fitted),
		selected: lipgloss.NewStyle().Foreground(t.SelectedFG).Background(t.SelectedBG),
		notice:   lipgloss.NewStyle().Foreground(t.Notice),
		err:      lipgloss.NewStyle().Foreground(t.Error),
		key:      lipgloss.NewStyle().Bold(true).Foreground(t.FooterFG).Background(t.FooterBG),
		badge: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Instance).
			Padding(0, 1),
	}
}
