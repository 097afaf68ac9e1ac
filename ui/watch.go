// Package ui renders a live terminal view of the monitor readings, a
// stand-in for the physical display when working over SSH.
package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nasmond/nasmond/model"
)

// CollectFunc gathers one snapshot.
type CollectFunc func(ctx context.Context) *model.Snapshot

type tickMsg time.Time

type snapMsg struct {
	snap *model.Snapshot
}

// Model is the bubbletea model for the watch view.
type Model struct {
	collect  CollectFunc
	interval time.Duration
	width    int
	height   int

	snap       *model.Snapshot
	collecting bool
	cycles     int
}

// NewModel builds a watch model that refreshes on the given interval.
func NewModel(collect CollectFunc, interval time.Duration) Model {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return Model{collect: collect, interval: interval}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(collectOnce(m.collect), m.tick())
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func collectOnce(collect CollectFunc) tea.Cmd {
	return func() tea.Msg {
		return snapMsg{snap: collect(context.Background())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			if !m.collecting {
				m.collecting = true
				return m, collectOnce(m.collect)
			}
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		cmds := []tea.Cmd{m.tick()}
		if !m.collecting {
			m.collecting = true
			cmds = append(cmds, collectOnce(m.collect))
		}
		return m, tea.Batch(cmds...)
	case snapMsg:
		m.snap = msg.snap
		m.collecting = false
		m.cycles++
	}
	return m, nil
}

func (m Model) View() string {
	if m.snap == nil {
		return dimStyle.Render("collecting first snapshot...")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("nasmond"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %s  cycle %d",
		m.snap.Timestamp.Format("15:04:05"), m.cycles)))
	if m.collecting {
		b.WriteString(dimStyle.Render("  refreshing..."))
	}
	b.WriteString("\n\n")

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		m.temperaturePanel(), " ", m.networkPanel())
	b.WriteString(panels)
	b.WriteString("\n")
	b.WriteString(m.storagePanel())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("q quit · r refresh"))
	return b.String()
}

func (m Model) temperaturePanel() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Temperatures"))
	b.WriteString("\n")

	sys := m.snap.Temps[model.SystemSlot]
	b.WriteString(fmt.Sprintf("%s %s\n",
		labelStyle.Render("CPU   "), renderTemp(sys)))

	slots := make([]string, 0, len(m.snap.Temps))
	for slot := range m.snap.Temps {
		if slot != model.SystemSlot {
			slots = append(slots, slot)
		}
	}
	sort.Strings(slots)
	for _, slot := range slots {
		b.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render(strings.ToUpper(slot)), renderTemp(m.snap.Temps[slot])))
	}
	return panelStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderTemp(temp float64) string {
	if temp <= 0 {
		return dimStyle.Render("  n/a")
	}
	return tempColor(temp).Render(fmt.Sprintf("%5.1f°C", temp))
}

func (m Model) networkPanel() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Network"))
	b.WriteString("\n")

	id := m.snap.Network
	if id.Empty() {
		b.WriteString(dimStyle.Render("no active interface"))
		return panelStyle.Render(b.String())
	}
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("MAC "), valueStyle.Render(id.MAC)))
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("IPv4"), valueStyle.Render(id.IPv4)))
	ipv6 := id.IPv6
	if ipv6 == "" {
		ipv6 = "-"
	}
	b.WriteString(fmt.Sprintf("%s %s", labelStyle.Render("IPv6"), valueStyle.Render(ipv6)))
	return panelStyle.Render(b.String())
}

func (m Model) storagePanel() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Storage"))
	b.WriteString("  ")
	b.WriteString(healthColor(string(m.snap.StorageState)).Render(string(m.snap.StorageState)))
	b.WriteString("\n")

	if len(m.snap.Pools) == 0 {
		b.WriteString(dimStyle.Render("no pools"))
		return panelStyle.Render(b.String())
	}

	b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s %-8s %8s %8s  %s",
		"POOL", "TYPE", "SIZE", "USED", "STATE")))
	for _, pool := range m.snap.Pools {
		b.WriteString("\n")
		line := fmt.Sprintf("%-12s %-8s %8s %8s  ",
			pool.Name, pool.Type, pool.Capacity, pool.Usage)
		b.WriteString(valueStyle.Render(line))
		b.WriteString(healthColor(pool.State).Render(pool.State))
	}
	return panelStyle.Render(b.String())
}

// Run starts the watch view and blocks until the user quits.
func Run(collect CollectFunc, interval time.Duration) error {
	p := tea.NewProgram(NewModel(collect, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
