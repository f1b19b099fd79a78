package ui

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/grooveboxdev/groovebox-cli/internal/api"
	"github.com/grooveboxdev/groovebox-cli/internal/catalog"
	"github.com/grooveboxdev/groovebox-cli/internal/config"
	"github.com/grooveboxdev/groovebox-cli/internal/identity"
	"github.com/grooveboxdev/groovebox-cli/internal/player"
	"github.com/grooveboxdev/groovebox-cli/internal/service"
	"github.com/grooveboxdev/groovebox-cli/internal/store"
	"github.com/rivo/tview"
	"github.com/rs/zerolog/log"
)

const (
	VolumeStep        = 5
	HeaderHeight      = 3
	FooterHeight      = 3
	PlayerPanelHeight = 8
)

// PauseIcon uses platform-specific character (Windows renders ⏸ as emoji)
var PauseIcon = func() string {
	if runtime.GOOS == "windows" {
		return "❚❚"
	}
	return "⏸"
}()

type UI struct {
	app       *tview.Application
	engine    *player.Engine
	catalog   *catalog.Catalog
	favorites *service.Favorites
	board     *service.RequestBoard
	provider  identity.Provider
	notices   *service.Notices
	config    *config.Config

	pages        *tview.Pages
	contentPages *tview.Pages
	mainLayout   *tview.Flex
	playerPanel  *tview.Flex
	albumTable   *tview.Table
	songTable    *tview.Table
	searchInput  *tview.InputField
	resultsTable *tview.Table
	requestTable *tview.Table
	footerPanel  *tview.Box
	volumeView   *tview.Flex
	songInfoView *tview.TextView

	stopUpdates chan struct{}

	mu            sync.Mutex
	selectedAlbum int
	favoriteSet   map[string]bool
	requests      []store.SongRequest
	results       []api.Track
	noticeText    string
	sessionName   string
	signedIn      bool

	statusRenderer *StatusRenderer

	colors struct {
		background       tcell.Color
		foreground       tcell.Color
		borders          tcell.Color
		highlight        tcell.Color
		headerBackground tcell.Color
		listHeaderBg     tcell.Color
		listHeaderFg     tcell.Color
		helpBackground   tcell.Color
		helpForeground   tcell.Color
		helpHotkey       tcell.Color
		modalBackground  tcell.Color
	}
}

func NewUI(engine *player.Engine, cat *catalog.Catalog, favorites *service.Favorites,
	board *service.RequestBoard, provider identity.Provider, notices *service.Notices,
	cfg *config.Config) *UI {

	ui := &UI{
		app:         tview.NewApplication(),
		engine:      engine,
		catalog:     cat,
		favorites:   favorites,
		board:       board,
		provider:    provider,
		notices:     notices,
		config:      cfg,
		stopUpdates: make(chan struct{}),
		favoriteSet: map[string]bool{},
	}

	ui.colors.background = config.GetColor(cfg.Theme.Background)
	ui.colors.foreground = config.GetColor(cfg.Theme.Foreground)
	ui.colors.borders = config.GetColor(cfg.Theme.Borders)
	ui.colors.highlight = config.GetColor(cfg.Theme.Highlight)
	ui.colors.headerBackground = config.GetColor(cfg.Theme.HeaderBackground)
	ui.colors.listHeaderBg = config.GetColor(cfg.Theme.ListHeaderBg)
	ui.colors.listHeaderFg = config.GetColor(cfg.Theme.ListHeaderFg)
	ui.colors.helpBackground = config.GetColor(cfg.Theme.HelpBackground)
	ui.colors.helpForeground = config.GetColor(cfg.Theme.HelpForeground)
	ui.colors.helpHotkey = config.GetColor(cfg.Theme.HelpHotkey)
	ui.colors.modalBackground = config.GetColor(cfg.Theme.ModalBackground)

	ui.statusRenderer = NewStatusRenderer(engine)
	ui.statusRenderer.SetPrimaryColor(ui.colors.highlight.String())

	if id, ok := provider.Current(); ok {
		ui.sessionName = id.DisplayName
		ui.signedIn = true
	}

	return ui
}

// OnPlayerStatus feeds engine transitions into the interface. Safe to call
// from any goroutine.
func (ui *UI) OnPlayerStatus(status player.Status) {
	go ui.app.QueueUpdateDraw(func() {
		ui.refreshSongInfo()
		ui.refreshSongTable()
		ui.updateVolumeDisplay()
	})
}

// OnFavorites mirrors the remote favorites set.
func (ui *UI) OnFavorites(albums []store.FavoriteAlbum) {
	ui.mu.Lock()
	ui.favoriteSet = make(map[string]bool, len(albums))
	for _, album := range albums {
		ui.favoriteSet[album.ID] = true
	}
	ui.mu.Unlock()

	go ui.app.QueueUpdateDraw(ui.refreshAlbumTable)
}

// OnRequests mirrors the shared request board.
func (ui *UI) OnRequests(requests []store.SongRequest) {
	ui.mu.Lock()
	ui.requests = requests
	ui.mu.Unlock()

	go ui.app.QueueUpdateDraw(ui.refreshRequestTable)
}

// OnResults shows the latest search results.
func (ui *UI) OnResults(results []api.Track) {
	ui.mu.Lock()
	ui.results = results
	ui.mu.Unlock()

	go ui.app.QueueUpdateDraw(ui.refreshResultsTable)
}

// OnNotice renders a transient status message, empty to clear.
func (ui *UI) OnNotice(message string) {
	ui.mu.Lock()
	ui.noticeText = message
	ui.mu.Unlock()

	go ui.app.QueueUpdateDraw(func() {})
}

// OnSession tracks who is signed in.
func (ui *UI) OnSession(id identity.Identity, signedIn bool) {
	ui.mu.Lock()
	ui.signedIn = signedIn
	if signedIn {
		ui.sessionName = id.DisplayName
	} else {
		ui.sessionName = ""
	}
	ui.mu.Unlock()

	go ui.app.QueueUpdateDraw(ui.refreshRequestTable)
}

func (ui *UI) SaveConfig() {
	ui.config.Volume = ui.engine.Volume()
	if err := ui.config.Save(); err != nil {
		log.Error().Err(err).Msg("Failed to save config")
	}
}

func (ui *UI) stop() {
	ui.mu.Lock()
	if ui.stopUpdates != nil {
		close(ui.stopUpdates)
		ui.stopUpdates = nil
	}
	ui.mu.Unlock()

	ui.SaveConfig()
	ui.app.Stop()
}

// Shutdown stops the UI gracefully from external callers (e.g., signal handlers).
func (ui *UI) Shutdown() {
	ui.app.QueueUpdateDraw(func() {
		ui.stop()
	})
}

func (ui *UI) Run() error {
	ui.setupUI()
	ui.configureScreen()
	ui.startStatusUpdates()

	ui.app.SetRoot(ui.pages, true).EnableMouse(true)
	ui.app.SetFocus(ui.albumTable)
	return ui.app.Run()
}

func (ui *UI) configureScreen() {
	bgStyle := tcell.StyleDefault.Background(ui.colors.background)
	ui.app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		screen.SetStyle(bgStyle)
		screen.Clear()
		return false
	})

	var titleSet sync.Once
	ui.app.SetAfterDrawFunc(func(screen tcell.Screen) {
		titleSet.Do(func() { screen.SetTitle(config.AppName) })
	})
}

func (ui *UI) setupUI() {
	header := ui.createHeader()

	ui.playerPanel = tview.NewFlex().SetDirection(tview.FlexRow)
	ui.playerPanel.SetBackgroundColor(ui.colors.background)
	ui.buildPlayerPanel()

	ui.albumTable = ui.createAlbumTable()
	ui.songTable = ui.createSongTable()
	ui.footerPanel = ui.createFooter()

	browser := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(ui.albumTable, 0, 2, true).
		AddItem(nil, 1, 0, false).
		AddItem(ui.songTable, 0, 3, false)
	browser.SetBackgroundColor(ui.colors.background)

	boardPage := ui.createBoardPage()

	ui.contentPages = tview.NewPages().
		AddPage("albums", browser, true, true).
		AddPage("board", boardPage, true, false)
	ui.contentPages.SetBackgroundColor(ui.colors.background)

	contentLayout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(header, HeaderHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.playerPanel, PlayerPanelHeight, 0, false).
		AddItem(nil, 1, 0, false).
		AddItem(ui.contentPages, 0, 1, true).
		AddItem(ui.footerPanel, FooterHeight, 0, false)
	contentLayout.SetBackgroundColor(ui.colors.background)

	wrapper := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(nil, 3, 0, false).
		AddItem(contentLayout, 0, 1, true).
		AddItem(nil, 3, 0, false)
	wrapper.SetBackgroundColor(ui.colors.background)

	ui.mainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(nil, 1, 0, false).
		AddItem(wrapper, 0, 1, true).
		AddItem(nil, 1, 0, false)
	ui.mainLayout.SetBackgroundColor(ui.colors.background)

	ui.pages = tview.NewPages().
		AddPage("main", ui.mainLayout, true, true)
	ui.pages.SetBackgroundColor(ui.colors.background)

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if ui.pages.HasPage("modal") {
			return event
		}
		if ui.searchInput != nil && ui.searchInput.HasFocus() {
			// The search field owns the keyboard while focused.
			if event.Key() == tcell.KeyEscape {
				ui.app.SetFocus(ui.resultsTable)
				return nil
			}
			return event
		}
		return ui.globalInputHandler(event)
	})
}

func (ui *UI) createHeader() tview.Primitive {
	titleView := tview.NewTextView()
	titleView.SetText(" " + config.AppName)
	titleView.SetTextAlign(tview.AlignLeft)
	titleView.SetTextColor(ui.colors.foreground)
	titleView.SetBackgroundColor(ui.colors.headerBackground)

	versionView := tview.NewTextView()
	versionView.SetText("v" + config.AppVersion + " ")
	versionView.SetTextAlign(tview.AlignRight)
	versionView.SetTextColor(ui.colors.foreground)
	versionView.SetBackgroundColor(ui.colors.headerBackground)

	textFlex := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(titleView, 0, 1, false).
		AddItem(versionView, 10, 0, false)
	textFlex.SetBackgroundColor(ui.colors.headerBackground)

	topSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)
	bottomSpacer := tview.NewBox().SetBackgroundColor(ui.colors.headerBackground)

	headerFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(topSpacer, 1, 0, false).
		AddItem(textFlex, 1, 0, false).
		AddItem(bottomSpacer, 1, 0, false)
	headerFlex.SetBackgroundColor(ui.colors.headerBackground)

	return headerFlex
}

func (ui *UI) buildPlayerPanel() {
	ui.songInfoView = tview.NewTextView()
	ui.songInfoView.SetDynamicColors(true)
	ui.songInfoView.SetBackgroundColor(ui.colors.background)
	ui.songInfoView.SetWrap(false)

	ui.volumeView = ui.createGraphicalVolumeBar()

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(ui.songInfoView, 0, 1, false).
		AddItem(ui.volumeView, 7, 0, false)
	content.SetBackgroundColor(ui.colors.background)

	contentWithPadding := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(nil, 2, 0, false).
		AddItem(content, 0, 1, false).
		AddItem(nil, 2, 0, false)
	contentWithPadding.SetBackgroundColor(ui.colors.background)

	ui.playerPanel.Clear()
	ui.playerPanel.AddItem(contentWithPadding, 0, 1, false)
	ui.refreshSongInfo()
}

func (ui *UI) refreshSongInfo() {
	if ui.songInfoView == nil {
		return
	}

	status := ui.engine.Status()
	highlight := ui.colors.highlight.String()

	if !status.HasSong {
		ui.songInfoView.SetText("\n Nothing selected\n\n Pick a song and press Enter")
		ui.songInfoView.SetTextColor(ui.colors.foreground)
		return
	}

	icon := PauseIcon
	if status.State == player.StatePlaying {
		icon = "▶"
	}

	album := ""
	if status.At.Album >= 0 && status.At.Album < len(ui.catalog.Albums) {
		album = ui.catalog.Albums[status.At.Album].Name
	}

	text := fmt.Sprintf("\n %s [%s]%s[-]\n   %s\n   %s\n\n %s",
		icon, highlight, status.Song.Title,
		songArtist(status.Song), album,
		renderProgress(status.Position, status.Duration))
	ui.songInfoView.SetText(text)
	ui.songInfoView.SetTextColor(ui.colors.foreground)
}

func songArtist(song catalog.Song) string {
	if song.Artist == "" {
		return "Unknown Artist"
	}
	return song.Artist
}

func renderProgress(position, duration time.Duration) string {
	const width = 24
	if duration <= 0 {
		return formatDuration(position)
	}

	filled := int(int64(width) * int64(position) / int64(duration))
	if filled > width {
		filled = width
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return fmt.Sprintf("%s %s/%s", bar, formatDuration(position), formatDuration(duration))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

func (ui *UI) startStatusUpdates() {
	ui.mu.Lock()
	stop := ui.stopUpdates
	ui.mu.Unlock()

	go func() {
		animationTicker := time.NewTicker(time.Second / 10)
		progressTicker := time.NewTicker(time.Second)
		defer animationTicker.Stop()
		defer progressTicker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-animationTicker.C:
				ui.statusRenderer.AdvanceAnimation()
				ui.app.QueueUpdateDraw(func() {})
			case <-progressTicker.C:
				if ui.engine.State() == player.StatePlaying {
					ui.app.QueueUpdateDraw(ui.refreshSongInfo)
				}
			}
		}
	}()
}

func (ui *UI) showBoardPage() {
	ui.contentPages.SwitchToPage("board")
	ui.app.SetFocus(ui.resultsTable)
	ui.refreshRequestTable()
	ui.refreshResultsTable()
}

func (ui *UI) showAlbumsPage() {
	ui.contentPages.SwitchToPage("albums")
	ui.app.SetFocus(ui.albumTable)
}

func (ui *UI) onBoardPage() bool {
	name, _ := ui.contentPages.GetFrontPage()
	return name == "board"
}

func (ui *UI) signIn() {
	id, err := ui.provider.SignIn()
	if err != nil {
		log.Error().Err(err).Msg("Sign-in failed")
		ui.notices.Show("Could not sign you in")
		return
	}
	log.Info().Str("uid", id.UID).Msg("Signed in")
}

func (ui *UI) globalInputHandler(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			ui.stop()
			return nil
		case ' ':
			ui.engine.TogglePlayPause()
			return nil
		case '>', 'n':
			ui.engine.Next()
			return nil
		case '<', 'p':
			ui.engine.Prev()
			return nil
		case 'b', 'B':
			if ui.onBoardPage() {
				ui.showAlbumsPage()
			} else {
				ui.showBoardPage()
			}
			return nil
		case 'f', 'F':
			if !ui.onBoardPage() {
				ui.toggleFavorite()
				return nil
			}
		case 's', 'S':
			ui.signIn()
			return nil
		case 'w', 'W':
			ui.provider.SignOut()
			return nil
		case '/':
			if ui.onBoardPage() {
				ui.app.SetFocus(ui.searchInput)
				return nil
			}
		case 'u', 'U':
			if ui.onBoardPage() {
				ui.upvoteSelected()
				return nil
			}
		case 'x', 'X':
			if ui.onBoardPage() {
				ui.leaveSelected()
				return nil
			}
		case '+', '=':
			ui.adjustVolume(VolumeStep)
			return nil
		case '-', '_':
			ui.adjustVolume(-VolumeStep)
			return nil
		case 'm', 'M':
			ui.toggleMute()
			return nil
		case '?':
			ui.showHelpModal()
			return nil
		case 'a', 'A':
			ui.showAboutModal()
			return nil
		}
	case tcell.KeyTab:
		if !ui.onBoardPage() {
			if ui.albumTable.HasFocus() {
				ui.app.SetFocus(ui.songTable)
			} else {
				ui.app.SetFocus(ui.albumTable)
			}
			return nil
		}
		if ui.resultsTable.HasFocus() {
			ui.app.SetFocus(ui.requestTable)
		} else {
			ui.app.SetFocus(ui.resultsTable)
		}
		return nil
	case tcell.KeyEscape:
		if ui.onBoardPage() {
			ui.showAlbumsPage()
			return nil
		}
		ui.stop()
		return nil
	case tcell.KeyRight:
		ui.adjustVolume(VolumeStep)
		return nil
	case tcell.KeyLeft:
		ui.adjustVolume(-VolumeStep)
		return nil
	}
	return event
}
