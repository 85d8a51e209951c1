package main

import (
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
)

type model struct {
	gamesPlayed int
	decided     int
	wins        map[string]int
	plies       int64
	rows        int64
	startTime   time.Time
	recentGames []string
	updates     chan GameUpdate
}

func initialModel(updates chan GameUpdate) model {
	return model{
		startTime: time.Now(),
		wins:      make(map[string]int),
		updates:   updates,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*250, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan GameUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.plies = totalPlies.Load()
		m.rows = totalRows.Load()
		return m, tickCmd()
	case GameUpdate:
		r := msg.Result
		m.gamesPlayed++
		if r.Decided {
			m.decided++
			m.wins[winnerName(r)]++
		}
		line := fmt.Sprintf("%s: %s vs %s, winner %s by %s after %d plies",
			r.GameID, r.Engines[0], r.Engines[1], winnerName(r), r.Reason, r.Plies)
		m.recentGames = append([]string{line}, m.recentGames...)
		if len(m.recentGames) > 10 {
			m.recentGames = m.recentGames[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	gamesPerSec := float64(m.gamesPlayed) / duration.Seconds()
	pliesPerSec := float64(m.plies) / duration.Seconds()
	if duration.Seconds() < 1 {
		gamesPerSec = 0
		pliesPerSec = 0
	}

	s := fmt.Sprintf("Games Played:   %d (%d decided)\n", m.gamesPlayed, m.decided)
	names := lo.Keys(m.wins)
	sort.Strings(names)
	for _, name := range names {
		s += fmt.Sprintf("  %-12s %d wins\n", name, m.wins[name])
	}
	s += fmt.Sprintf("Total Plies:    %d\n", m.plies)
	s += fmt.Sprintf("Rows Written:   %d\n", m.rows)
	s += fmt.Sprintf("Duration:       %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Games/Sec:      %.2f\n", gamesPerSec)
	s += fmt.Sprintf("Plies/Sec:      %.2f\n\n", pliesPerSec)

	s += "Recent Games:\n"
	for _, g := range m.recentGames {
		s += g + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}
