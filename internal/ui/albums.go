package ui

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/player"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

func (ui *UI) createAlbumTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(true, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetTitle(fmt.Sprintf("Albums (%d)", len(ui.catalog.Albums))).
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(ui.colors.background).
		Background(ui.colors.highlight))

	table.SetCell(0, 0, tview.NewTableCell(" ").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetMaxWidth(2).
		SetSelectable(false))

	table.SetCell(0, 1, tview.NewTableCell("Album").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(2).
		SetSelectable(false))

	table.SetCell(0, 2, tview.NewTableCell("Artist").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(1).
		SetSelectable(false))

	table.SetCell(0, 3, tview.NewTableCell("Songs").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetAlign(tview.AlignRight).
		SetSelectable(false))

	for i := range ui.catalog.Albums {
		ui.setAlbumRow(table, i+1, i)
	}

	table.SetSelectionChangedFunc(func(row, column int) {
		if row > 0 && row <= len(ui.catalog.Albums) {
			ui.mu.Lock()
			ui.selectedAlbum = row - 1
			ui.mu.Unlock()
			ui.refreshSongTable()
		}
	})

	table.SetSelectedFunc(func(row, column int) {
		if row > 0 && row <= len(ui.catalog.Albums) {
			ui.app.SetFocus(ui.songTable)
		}
	})

	return table
}

func (ui *UI) setAlbumRow(table *tview.Table, row, albumIndex int) {
	if albumIndex < 0 || albumIndex >= len(ui.catalog.Albums) {
		return
	}
	album := &ui.catalog.Albums[albumIndex]

	favIcon := " "
	ui.mu.Lock()
	if ui.favoriteSet[string(album.ID)] {
		favIcon = "★"
	}
	ui.mu.Unlock()
	table.SetCell(row, 0, tview.NewTableCell(favIcon).
		SetTextColor(ui.colors.highlight).
		SetMaxWidth(2))

	table.SetCell(row, 1, tview.NewTableCell(album.Name).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(35).
		SetExpansion(2))

	table.SetCell(row, 2, tview.NewTableCell(album.Artist).
		SetTextColor(ui.colors.foreground).
		SetMaxWidth(27).
		SetExpansion(1))

	table.SetCell(row, 3, tview.NewTableCell(strconv.Itoa(len(album.Songs))).
		SetTextColor(ui.colors.foreground).
		SetAlign(tview.AlignRight))
}

func (ui *UI) refreshAlbumTable() {
	if ui.albumTable == nil {
		return
	}
	for i := range ui.catalog.Albums {
		ui.setAlbumRow(ui.albumTable, i+1, i)
	}
}

func (ui *UI) createSongTable() *tview.Table {
	table := tview.NewTable().
		SetBorders(false).
		SetSeparator(' ').
		SetSelectable(true, false).
		SetFixed(1, 0)

	table.SetBorder(true).
		SetBorderColor(ui.colors.borders).
		SetTitleColor(ui.colors.foreground).
		SetBackgroundColor(ui.colors.background).
		SetBorderPadding(1, 0, 1, 1)

	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(ui.colors.background).
		Background(ui.colors.highlight))

	table.SetSelectedFunc(func(row, column int) {
		ui.mu.Lock()
		albumIndex := ui.selectedAlbum
		ui.mu.Unlock()

		at := catalog.Coordinate{Album: albumIndex, Song: row - 1}
		if err := ui.engine.SelectSong(at); err != nil {
			log.Debug().Err(err).Msg("Song selection rejected")
		}
	})

	ui.fillSongTable(table)
	return table
}

func (ui *UI) fillSongTable(table *tview.Table) {
	ui.mu.Lock()
	albumIndex := ui.selectedAlbum
	ui.mu.Unlock()

	table.Clear()

	table.SetCell(0, 0, tview.NewTableCell("#").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetMaxWidth(3).
		SetSelectable(false))

	table.SetCell(0, 1, tview.NewTableCell(" ").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetMaxWidth(2).
		SetSelectable(false))

	table.SetCell(0, 2, tview.NewTableCell("Title").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(2).
		SetSelectable(false))

	table.SetCell(0, 3, tview.NewTableCell("Artist").
		SetTextColor(ui.colors.listHeaderFg).
		SetBackgroundColor(ui.colors.listHeaderBg).
		SetExpansion(1).
		SetSelectable(false))

	if albumIndex < 0 || albumIndex >= len(ui.catalog.Albums) {
		table.SetTitle("Songs")
		return
	}
	album := &ui.catalog.Albums[albumIndex]
	table.SetTitle(fmt.Sprintf("%s (%d)", album.Name, len(album.Songs)))

	status := ui.engine.Status()

	for i := range album.Songs {
		song := &album.Songs[i]
		row := i + 1

		playIcon := " "
		if status.HasSong && status.At.Album == albumIndex && status.At.Song == i {
			if status.State == player.StatePlaying {
				playIcon = "➤"
			} else {
				playIcon = PauseIcon
			}
		}

		table.SetCell(row, 0, tview.NewTableCell(strconv.Itoa(i+1)).
			SetTextColor(ui.colors.foreground).
			SetMaxWidth(3))

		table.SetCell(row, 1, tview.NewTableCell(playIcon).
			SetTextColor(ui.colors.highlight).
			SetMaxWidth(2))

		table.SetCell(row, 2, tview.NewTableCell(song.Title).
			SetTextColor(ui.colors.foreground).
			SetMaxWidth(35).
			SetExpansion(2))

		table.SetCell(row, 3, tview.NewTableCell(songArtist(*song)).
			SetTextColor(ui.colors.foreground).
			SetMaxWidth(27).
			SetExpansion(1))
	}
}

func (ui *UI) refreshSongTable() {
	if ui.songTable == nil {
		return
	}
	ui.fillSongTable(ui.songTable)
}

// toggleFavorite flips the selected album in the remote library. The store
// subscription refreshes the star column.
func (ui *UI) toggleFavorite() {
	row, _ := ui.albumTable.GetSelection()
	if row <= 0 || row > len(ui.catalog.Albums) {
		return
	}
	album := ui.catalog.Albums[row-1]

	ui.mu.Lock()
	isFavorite := ui.favoriteSet[string(album.ID)]
	ui.mu.Unlock()

	go func() {
		var err error
		if isFavorite {
			err = ui.favorites.Remove(album)
		} else {
			err = ui.favorites.Add(album)
		}
		if err != nil {
			log.Debug().Err(err).Str("album", album.Name).Msg("Favorite toggle rejected")
		}
	}()
}
