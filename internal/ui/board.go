package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/grooveboxdev/groovebox-cli/internal/store"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

// createBoardPage builds the shared song-request board: a track search on
// top, the live request list below.
func (ui *UI) createBoardPage() tview.Primitive {
	ui.searchInput = tview.NewInputField().
		SetLabel(" Search: ").
		SetPlaceholder("song or artist, Enter to search").
		SetFieldWidth(0)
	ui.searchInput.SetLabelColor(ui.colors.foreground)
	ui.searchInput.SetFieldBackgroundColor(ui.colors.headerBackground)
	ui.searchInput.SetFieldTextColor(ui.colors.foreground)
	ui.searchInput.SetPlaceholderTextColor(ui.colors.borders)
	ui.searchInput.SetBackgroundColor(ui.colors.background)

	ui.searchInput.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		query := strings.TrimSpace(ui.searchInput.GetText())
		go func() {
			ui.board.Search(query)
		}()
		ui.app.SetFocus(ui.resultsTable)
	})

	ui.resultsTable = ui.createResultsTable()
	ui.requestTable = ui.createRequestTable()

	page := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.searchInput, 1, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.resultsTable, 0, 1, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.requestTable, 0, 2, true)
	page.SetBackgroundColor(ui.colors.background)

	return page
}

func (ui *UI) createResultsTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(true, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetTitle("Search Results").
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(ui.colors.background).
		Background(ui.colors.highlight))

	table.SetSelectedFunc(func(row, column int) {
		ui.mu.Lock()
		index := row - 1
		if index < 0 || index >= len(ui.results) {
			ui.mu.Unlock()
			return
		}
		track := ui.results[index]
		ui.mu.Unlock()

		go func() {
			if err := ui.board.Submit(track); err != nil {
				log.Debug().Err(err).Str("track", track.Name).Msg("Request rejected")
			}
		}()
	})

	ui.fillResultsTable(table)
	return table
}

func (ui *UI) fillResultsTable(table *tview.Table) {
	ui.mu.Lock()
	results := ui.results
	ui.mu.Unlock()

	table.Clear()

	table.SetCell(0, 0, tview.NewTableCell("Track").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(2).
		SetSelectable(false))

	table.SetCell(0, 1, tview.NewTableCell("Artist").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(1).
		SetSelectable(false))

	if len(results) == 0 {
		table.SetTitle("Search Results")
		return
	}
	table.SetTitle(fmt.Sprintf("Search Results (%d) — Enter to request", len(results)))

	for i, track := range results {
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(track.Name).
			SetTextColor(ui.colors.foreground).
			SetExpansion(2))
		table.SetCell(row, 1, tview.NewTableCell(track.PrimaryArtist()).
			SetTextColor(ui.colors.foreground).
			SetExpansion(1))
	}
}

func (ui *UI) refreshResultsTable() {
	if ui.resultsTable == nil {
		return
	}
	ui.fillResultsTable(ui.resultsTable)
}

func (ui *UI) createRequestTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(true, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetTitle("Song Requests").
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(ui.colors.background).
		Background(ui.colors.highlight))

	ui.fillRequestTable(table)
	return table
}

func (ui *UI) fillRequestTable(table *tview.Table) {
	ui.mu.Lock()
	requests := ui.requests
	signedIn := ui.signedIn
	name := ui.sessionName
	ui.mu.Unlock()

	table.Clear()

	table.SetCell(0, 0, tview.NewTableCell("▲").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetAlign(tview.AlignRight).
		SetMaxWidth(4).
		SetSelectable(false))

	table.SetCell(0, 1, tview.NewTableCell("Song").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(2).
		SetSelectable(false))

	table.SetCell(0, 2, tview.NewTableCell("Artist").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(1).
		SetSelectable(false))

	table.SetCell(0, 3, tview.NewTableCell("Requested by").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(1).
		SetSelectable(false))

	title := fmt.Sprintf("Song Requests (%d)", len(requests))
	if signedIn {
		title += fmt.Sprintf(" — %s", name)
	} else {
		title += " — press s to sign in"
	}
	table.SetTitle(title)

	for i := range requests {
		req := &requests[i]
		row := i + 1

		table.SetCell(row, 0, tview.NewTableCell(strconv.Itoa(len(req.Upvotes))).
			SetTextColor(ui.colors.highlight).
			SetAlign(tview.AlignRight).
			SetMaxWidth(4))

		table.SetCell(row, 1, tview.NewTableCell(req.Title).
			SetTextColor(ui.colors.foreground).
			SetExpansion(2))

		table.SetCell(row, 2, tview.NewTableCell(req.Artist).
			SetTextColor(ui.colors.foreground).
			SetExpansion(1))

		table.SetCell(row, 3, tview.NewTableCell(requesterNames(req.RequestedBy)).
			SetTextColor(ui.colors.foreground).
			SetExpansion(1))
	}
}

func requesterNames(participants []store.Participant) string {
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

func (ui *UI) refreshRequestTable() {
	if ui.requestTable == nil {
		return
	}
	ui.fillRequestTable(ui.requestTable)
}

func (ui *UI) selectedRequestID() (string, bool) {
	row, _ := ui.requestTable.GetSelection()

	ui.mu.Lock()
	defer ui.mu.Unlock()
	index := row - 1
	if index < 0 || index >= len(ui.requests) {
		return "", false
	}
	return ui.requests[index].ID, true
}

func (ui *UI) upvoteSelected() {
	id, ok := ui.selectedRequestID()
	if !ok {
		return
	}
	go func() {
		if err := ui.board.ToggleUpvote(id); err != nil {
			log.Debug().Err(err).Str("id", id).Msg("Upvote rejected")
		}
	}()
}

func (ui *UI) leaveSelected() {
	id, ok := ui.selectedRequestID()
	if !ok {
		return
	}
	go func() {
		if err := ui.board.Leave(id); err != nil {
			log.Debug().Err(err).Str("id", id).Msg("Leave rejected")
		}
	}()
}
