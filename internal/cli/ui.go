package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/syncarch/pkg/arch"
	"github.com/matzehuels/syncarch/pkg/netlist"
	"github.com/matzehuels/syncarch/pkg/pipeline"
)

// =============================================================================
// Palette
// =============================================================================

var (
	colorAccent   = lipgloss.Color("36")  // teal: element names, numbers
	colorOK       = lipgloss.Color("35")  // green: consistent
	colorFsm      = lipgloss.Color("220") // amber
	colorPipeline = lipgloss.Color("75")  // light blue
	colorFail     = lipgloss.Color("167") // soft red
	colorValue    = lipgloss.Color("255")
	colorLabel    = lipgloss.Color("245")
	colorMuted    = lipgloss.Color("240")
)

var (
	// StyleTitle renders element names.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)

	// StyleDim renders secondary lines.
	StyleDim = lipgloss.NewStyle().Foreground(colorMuted)

	// StyleValue renders paths and values.
	StyleValue = lipgloss.NewStyle().Foreground(colorValue)

	// StyleNumber renders clock indices and counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorAccent)
)

var (
	styleOK       = lipgloss.NewStyle().Foreground(colorOK)
	styleFail     = lipgloss.NewStyle().Foreground(colorFail)
	styleLabel    = lipgloss.NewStyle().Foreground(colorLabel)
	styleKey      = styleLabel.Width(12)
	styleFsm      = lipgloss.NewStyle().Foreground(colorFsm)
	stylePipeline = lipgloss.NewStyle().Foreground(colorPipeline)
	styleHeader   = lipgloss.NewStyle().Bold(true).Foreground(colorLabel).Padding(0, 1)
	styleCell     = lipgloss.NewStyle().Padding(0, 1)
)

// kindStyle colors an element kind.
func kindStyle(k arch.Kind) lipgloss.Style {
	if k == arch.KindFsm {
		return styleFsm
	}
	return stylePipeline
}

// =============================================================================
// Console
// =============================================================================

// console prints human-readable command output. Logs go to the logger;
// everything a user asked for goes here.
type console struct {
	w io.Writer
}

func newConsole(w io.Writer) *console {
	return &console{w: w}
}

func (c *console) line(prefix, msg string) {
	fmt.Fprintln(c.w, prefix+msg)
}

func (c *console) success(format string, args ...any) {
	c.line(styleOK.Render("✓")+" ", fmt.Sprintf(format, args...))
}

func (c *console) failure(format string, args ...any) {
	c.line(styleFail.Render("✗")+" ", fmt.Sprintf(format, args...))
}

func (c *console) detail(format string, args ...any) {
	c.line("  ", StyleDim.Render(fmt.Sprintf(format, args...)))
}

func (c *console) file(path string) {
	c.line("  "+StyleDim.Render("→")+" ", StyleValue.Render(path))
}

func (c *console) keyValue(key, value string) {
	c.line(styleKey.Render(key)+" ", StyleValue.Render(value))
}

func (c *console) newline() {
	fmt.Fprintln(c.w)
}

// =============================================================================
// Synthesis Summary
// =============================================================================

// result prints run statistics followed by one block per element.
func (c *console) result(nl *netlist.Netlist, r *pipeline.Result) {
	c.keyValue("netlist", nl.Name)
	c.stats(r.Stats)
	c.newline()
	for _, el := range r.Elements {
		c.element(el, r.Analysis)
	}
}

func (c *console) stats(s pipeline.Stats) {
	c.detail("%d nodes · %d rewrites · %d islands · %d merges",
		s.NodeCount, s.Rewrites, s.IslandCount, s.Merges)
}

func (c *console) element(el arch.ArchElement, iea *arch.InterArchAnalysis) {
	c.line(styleLabel.Render("›")+" ", StyleTitle.Render(el.Name())+" "+kindStyle(el.Kind()).Render(el.Kind().String()))

	clks := make([]string, 0, len(el.Stages()))
	for _, st := range el.Stages() {
		clks = append(clks, fmt.Sprint(st.Clk))
	}
	c.detail("stages: %s", strings.Join(clks, ", "))

	if iea != nil {
		if ns := iea.NonSkippable(el); len(ns) > 0 {
			c.detail("non-skippable: %s", StyleNumber.Render(fmt.Sprint(ns)))
		}
	}

	f, ok := el.(*arch.Fsm)
	if !ok {
		return
	}
	if f.StateReg != nil {
		c.detail("state register: %s (%d bits, reset %d)", f.StateReg.Name, f.StateReg.Width, f.StateReg.Reset)
	}
	if rows := transitionRows(f); len(rows) > 0 {
		fmt.Fprintln(c.w, transitionTable(rows))
	}
}

// transitionRows lists the FSM transitions as (from, to, condition) in
// state order.
func transitionRows(f *arch.Fsm) [][]string {
	tt := f.TransitionTable()
	var rows [][]string
	for _, from := range f.States() {
		for _, to := range slices.Sorted(maps.Keys(tt[from])) {
			rows = append(rows, []string{fmt.Sprint(from), fmt.Sprint(to), tt[from][to].String()})
		}
	}
	return rows
}

func transitionTable(rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("from", "to", "when").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styleHeader
			}
			return styleCell
		}).
		Render()
}
