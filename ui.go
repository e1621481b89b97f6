package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"biblify/internal/app"
	"biblify/internal/history"
	"biblify/internal/notify"
	"biblify/internal/search"
	"biblify/internal/storage"
	"biblify/internal/verse"
)

type mode int

const (
	readingMode mode = iota
	searchMode
	chapterMode
	favoritesMode
	affirmationsMode
	editMode
)

// AppState is the reading session saved between runs.
type AppState struct {
	History history.State `json:"history"`
	Book    string        `json:"book,omitempty"`
	Chapter int           `json:"chapter,omitempty"`
}

const (
	stateFile = "state.json"
	logFile   = "biblify.log"
)

const (
	verseTextPadding  = 6
	searchTextPadding = 23
)

type model struct {
	svc     *app.Service
	nav     *history.Navigator
	engine  *search.Engine
	dataDir string

	mode          mode
	input         textinput.Model
	searchQuery   string
	searchGen     uint64
	searchResults []search.Result
	searching     bool
	searchErr     error

	chapter       chapterCursor
	chapterVerses []verse.Verse
	list          []verse.Verse

	formText  textarea.Model
	formRef   textinput.Model
	formFocus int
	editing   *verse.Verse

	selected     int
	scrollOffset int
	height       int
	width        int
	status       string

	titleStyle     lipgloss.Style
	referenceStyle lipgloss.Style
	textStyle      lipgloss.Style
	dimStyle       lipgloss.Style
	cursorStyle    lipgloss.Style
}

// searchMsg carries a search outcome from the engine into Update.
type searchMsg search.Outcome

var (
	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			PaddingLeft(1)
)

func getFilePath(dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return filepath.Join(dir, filename), nil
}

func saveJSON(dir, filename string, data interface{}) error {
	path, err := getFilePath(dir, filename)
	if err != nil {
		return err
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, jsonData, 0o644)
}

func loadJSON(dir, filename string, target interface{}) error {
	data, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func loadState(dir string) (AppState, bool) {
	var state AppState
	if err := loadJSON(dir, stateFile, &state); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("Failed to load session state", "error", err)
		}
		return AppState{}, false
	}
	return state, true
}

func newModel(svc *app.Service, nav *history.Navigator, engine *search.Engine, dataDir string) model {
	input := textinput.New()
	input.Placeholder = "Search by reference (gen 1:1) or text"
	input.Prompt = "/ "
	input.CharLimit = 200

	text := textarea.New()
	text.Placeholder = "Affirmation text"
	text.CharLimit = 500
	text.ShowLineNumbers = false
	text.SetWidth(60)
	text.SetHeight(4)
	ref := textinput.New()
	ref.Placeholder = "Reference (optional)"
	ref.CharLimit = 100

	m := model{
		svc:      svc,
		nav:      nav,
		engine:   engine,
		dataDir:  dataDir,
		mode:     readingMode,
		input:    input,
		formText: text,
		formRef:  ref,
		height:   24,
		width:    80,
	}
	m.applyTheme(svc.Preferences().Theme)
	return m
}

// initialModel restores the last session, or opens link when it names a
// verse in the collection.
func initialModel(svc *app.Service, link string) model {
	m := newModel(svc, svc.NewNavigator(nil), svc.NewEngine(), svc.Config.DataDir)

	if state, ok := loadState(m.dataDir); ok {
		m.nav.Restore(state.History)
		if state.Book != "" {
			m.chapter = chapterCursor{book: state.Book, chapter: state.Chapter}
		}
	}

	if link != "" {
		v, err := notify.ParseLink(link)
		if err != nil {
			m.status = err.Error()
		} else if found, ok := resolveLinked(svc.Snapshot(), v); ok {
			m.nav.ShowInitial(&found)
		} else {
			m.status = fmt.Sprintf("%s is no longer in the collection", v.Reference)
		}
	}

	if !m.nav.Ready() {
		m.nav.ShowInitial(nil)
	}
	return m
}

// resolveLinked finds the collection entry a notification link points at.
// Links do not say whether the verse was an affirmation.
func resolveLinked(snap *verse.Snapshot, v verse.Verse) (verse.Verse, bool) {
	for _, affirmation := range []bool{false, true} {
		v.IsAffirmation = affirmation
		if snap.Contains(v) {
			return v, true
		}
	}
	return snap.FindReference(v.Reference)
}

func (m *model) applyTheme(theme string) {
	p := m.svc.Config.Palette(theme)
	m.titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Highlight))
	m.referenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Reference)).Bold(true)
	m.textStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Text))
	m.dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Dim))
	m.cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Highlight)).Bold(true)
}

func (m model) saveCurrentState() {
	state := AppState{History: m.nav.State()}
	if m.chapter.valid() {
		state.Book, state.Chapter = m.chapter.book, m.chapter.chapter
	}
	if err := saveJSON(m.dataDir, stateFile, state); err != nil {
		slog.Error("Failed to save session state", "error", err)
	}
}

func waitForSearch(e *search.Engine) tea.Cmd {
	return func() tea.Msg {
		o, ok := <-e.Results()
		if !ok {
			return nil
		}
		return searchMsg(o)
	}
}

func (m model) Init() tea.Cmd {
	return waitForSearch(m.engine)
}

func (m model) quit() (tea.Model, tea.Cmd) {
	m.saveCurrentState()
	m.engine.Close()
	return m, tea.Quit
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.width = msg.Width
		m.input.Width = max(20, msg.Width-8)
		return m, nil

	case searchMsg:
		if msg.Generation == m.searchGen {
			m.searchResults = msg.Results
			m.searchErr = msg.Err
			m.searching = false
			m.selected = 0
			m.scrollOffset = 0
		}
		return m, waitForSearch(m.engine)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		m.status = ""
		switch m.mode {
		case searchMode:
			return m.updateSearch(msg)
		case chapterMode:
			return m.updateChapter(msg)
		case favoritesMode, affirmationsMode:
			return m.updateList(msg)
		case editMode:
			return m.updateForm(msg)
		default:
			return m.updateReading(msg)
		}
	}
	return m, nil
}

func (m model) updateReading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		return m.quit()
	case "n", "right", "l":
		m.nav.GoForward()
	case "p", "left", "h":
		m.nav.GoBack()
	case "r", " ":
		m.nav.FetchNext()
		if !m.nav.Ready() {
			m.nav.ShowInitial(nil)
		}
	case "f":
		if v, ok := m.nav.Current(); ok {
			m.toggleFavorite(v)
		}
	case "/":
		return m.enterSearch()
	case "c":
		m.enterChapter()
	case "v":
		m.enterList(favoritesMode)
	case "a":
		m.enterList(affirmationsMode)
	case "t":
		m.toggleTheme()
	case "x":
		m.toggleAffirmations()
	}
	return m, nil
}

func (m *model) toggleFavorite(v verse.Verse) {
	if m.svc.Favorites.Toggle(v) {
		m.status = "Added to favorites"
	} else {
		m.status = "Removed from favorites"
	}
}

func (m *model) toggleTheme() {
	p, err := m.svc.UpdatePreferences(func(p *storage.Preferences) {
		if p.Theme == storage.ThemeDark {
			p.Theme = storage.ThemeLight
		} else {
			p.Theme = storage.ThemeDark
		}
	})
	if err != nil {
		m.status = err.Error()
		return
	}
	m.applyTheme(p.Theme)
}

func (m *model) toggleAffirmations() {
	p, err := m.svc.UpdatePreferences(func(p *storage.Preferences) {
		p.AffirmationsEnabled = !p.AffirmationsEnabled
	})
	if err != nil {
		m.status = err.Error()
		return
	}
	if p.AffirmationsEnabled {
		m.status = "Affirmations shown"
	} else {
		m.status = "Affirmations hidden"
	}
}

func (m model) enterSearch() (tea.Model, tea.Cmd) {
	m.mode = searchMode
	m.input.SetValue(m.searchQuery)
	m.input.CursorEnd()
	m.selected = 0
	m.scrollOffset = 0
	cmd := m.input.Focus()
	return m, cmd
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.input.Blur()
		m.mode = readingMode
		return m, nil
	case tea.KeyEnter:
		if m.selected < len(m.searchResults) {
			m.nav.JumpTo(m.searchResults[m.selected].Verse)
			m.input.Blur()
			m.mode = readingMode
		}
		return m, nil
	case tea.KeyUp:
		m.handleMovement("up")
		return m, nil
	case tea.KeyDown:
		m.handleMovement("down")
		return m, nil
	case tea.KeyCtrlD:
		m.handleMovement("pageDown")
		return m, nil
	case tea.KeyCtrlU:
		m.handleMovement("pageUp")
		return m, nil
	case tea.KeyCtrlF:
		if m.selected < len(m.searchResults) {
			r := &m.searchResults[m.selected]
			m.toggleFavorite(r.Verse)
			r.Favorite = m.svc.Favorites.IsFavorite(r.Verse)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != m.searchQuery {
		m.searchQuery = q
		m.searchGen = m.engine.Submit(q)
		m.searching = strings.TrimSpace(q) != ""
	}
	return m, cmd
}

func (m *model) enterChapter() {
	snap := m.svc.Snapshot()
	cur, ok := m.nav.Current()
	if ok && !cur.IsAffirmation {
		m.chapter = chapterFor(snap, cur)
	} else if !m.chapter.valid() || len(snap.Chapter(m.chapter.book, m.chapter.chapter)) == 0 {
		m.chapter = firstChapter(snap)
	}
	if !m.chapter.valid() {
		m.status = "No chapters available"
		return
	}
	m.mode = chapterMode
	m.loadChapter()
	for i, v := range m.chapterVerses {
		if ok && v == cur {
			m.selected = i
			break
		}
	}
}

func (m *model) loadChapter() {
	m.chapterVerses = m.svc.Snapshot().Chapter(m.chapter.book, m.chapter.chapter)
	m.selected = 0
	m.scrollOffset = 0
}

func (m model) updateChapter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.svc.Snapshot()
	switch msg.String() {
	case "q", "esc":
		m.mode = readingMode
	case "enter":
		if m.selected < len(m.chapterVerses) {
			m.nav.JumpTo(m.chapterVerses[m.selected])
			m.mode = readingMode
		}
	case "k", "up":
		m.handleMovement("up")
	case "j", "down":
		m.handleMovement("down")
	case "ctrl+u":
		m.handleMovement("pageUp")
	case "ctrl+d":
		m.handleMovement("pageDown")
	case "g":
		m.selected, m.scrollOffset = 0, 0
	case "G":
		m.selected = max(0, len(m.chapterVerses)-1)
	case "h", "left":
		m.chapter = previousChapter(snap, m.chapter)
		m.loadChapter()
	case "l", "right":
		m.chapter = nextChapter(snap, m.chapter)
		m.loadChapter()
	case "b", "pgup":
		m.chapter = navigateToBook(snap, m.chapter, -1)
		m.loadChapter()
	case "w", "pgdown":
		m.chapter = navigateToBook(snap, m.chapter, 1)
		m.loadChapter()
	case "f":
		if m.selected < len(m.chapterVerses) {
			m.toggleFavorite(m.chapterVerses[m.selected])
		}
	}
	return m, nil
}

func (m *model) enterList(target mode) {
	m.mode = target
	m.selected = 0
	m.scrollOffset = 0
	m.reloadList()
}

func (m *model) reloadList() {
	if m.mode == affirmationsMode || m.mode == editMode {
		m.list = m.svc.Editor.List()
	} else {
		m.list = m.svc.Favorites.List(m.svc.Snapshot())
	}
	if len(m.list) > 0 {
		m.clampSelectedIndex(len(m.list))
	} else {
		m.selected = 0
	}
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.mode = readingMode
	case "enter":
		if m.selected < len(m.list) {
			m.nav.JumpTo(m.list[m.selected])
			m.mode = readingMode
		}
	case "k", "up":
		m.handleMovement("up")
	case "j", "down":
		m.handleMovement("down")
	case "ctrl+u":
		m.handleMovement("pageUp")
	case "ctrl+d":
		m.handleMovement("pageDown")
	case "g":
		m.selected, m.scrollOffset = 0, 0
	case "G":
		m.selected = max(0, len(m.list)-1)
	case "f":
		if m.selected < len(m.list) {
			m.toggleFavorite(m.list[m.selected])
			if m.mode == favoritesMode {
				m.reloadList()
			}
		}
	case "n":
		if m.mode == affirmationsMode {
			return m.openForm(nil)
		}
	case "e":
		if m.mode == affirmationsMode && m.selected < len(m.list) {
			v := m.list[m.selected]
			return m.openForm(&v)
		}
	case "d":
		if m.mode == affirmationsMode && m.selected < len(m.list) {
			if m.svc.Editor.Remove(m.list[m.selected]) {
				m.status = "Affirmation removed"
			}
			m.reloadList()
		}
	}
	return m, nil
}

// openForm edits v, or starts a new affirmation when v is nil.
func (m model) openForm(v *verse.Verse) (tea.Model, tea.Cmd) {
	m.mode = editMode
	m.editing = v
	m.formFocus = 0
	m.formText.Reset()
	m.formRef.Reset()
	if v != nil {
		m.formText.SetValue(v.Text)
		m.formRef.SetValue(v.Reference)
	}
	m.formRef.Blur()
	cmd := m.formText.Focus()
	return m, cmd
}

// focusForm moves the cursor to field 0 (text) or 1 (reference).
func (m *model) focusForm(field int) tea.Cmd {
	m.formFocus = field
	if field == 0 {
		m.formRef.Blur()
		return m.formText.Focus()
	}
	m.formText.Blur()
	return m.formRef.Focus()
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = affirmationsMode
		m.editing = nil
		return m, nil
	case tea.KeyTab, tea.KeyShiftTab:
		cmd := m.focusForm(1 - m.formFocus)
		return m, cmd
	case tea.KeyCtrlS:
		return m.submitForm()
	case tea.KeyEnter:
		// Enter adds a line to the text and saves from the reference field.
		if m.formFocus == 1 {
			return m.submitForm()
		}
	}

	var cmd tea.Cmd
	if m.formFocus == 0 {
		m.formText, cmd = m.formText.Update(msg)
	} else {
		m.formRef, cmd = m.formRef.Update(msg)
	}
	return m, cmd
}

func (m model) submitForm() (tea.Model, tea.Cmd) {
	text := m.formText.Value()
	ref := m.formRef.Value()

	var err error
	if m.editing == nil {
		_, err = m.svc.Editor.Add(text, ref)
	} else {
		_, err = m.svc.Editor.Edit(*m.editing, text, ref)
	}
	if err != nil {
		m.status = err.Error()
		return m, nil
	}

	if m.editing == nil {
		m.status = "Affirmation added"
	} else {
		m.status = "Affirmation updated"
	}
	m.editing = nil
	m.mode = affirmationsMode
	m.reloadList()
	return m, nil
}

// activeItems returns the verses of the list shown in the current mode.
func (m model) activeItems() []verse.Verse {
	switch m.mode {
	case searchMode:
		items := make([]verse.Verse, len(m.searchResults))
		for i, r := range m.searchResults {
			items[i] = r.Verse
		}
		return items
	case chapterMode:
		return m.chapterVerses
	case favoritesMode, affirmationsMode:
		return m.list
	}
	return nil
}

func (m model) padding() int {
	if m.mode == chapterMode {
		return verseTextPadding
	}
	return searchTextPadding
}

func (m *model) handleMovement(direction string) {
	items := m.activeItems()
	listLen := len(items)
	if listLen == 0 {
		return
	}
	visible := m.visibleItems(items)

	switch direction {
	case "up":
		if m.selected > 0 {
			m.selected--
		}
	case "down":
		if m.selected < listLen-1 {
			m.selected++
		}
	case "pageUp":
		m.selected = max(0, m.selected-max(1, visible/2))
	case "pageDown":
		m.selected = min(listLen-1, m.selected+max(1, visible/2))
	}
	m.adjustScrollOffset(listLen, visible)
}

func (m *model) clampSelectedIndex(maxLen int) {
	m.selected = max(0, min(maxLen-1, m.selected))
}

func (m *model) adjustScrollOffset(listLen int, visibleItems int) {
	maxScroll := max(0, listLen-visibleItems)
	m.scrollOffset = min(maxScroll, m.scrollOffset)
	if m.selected >= m.scrollOffset+visibleItems {
		m.scrollOffset = m.selected - visibleItems + 1
	}
	if m.selected < m.scrollOffset {
		m.scrollOffset = m.selected
	}
}

// visibleItems counts how many entries fit from scrollOffset down.
func (m model) visibleItems(items []verse.Verse) int {
	availableHeight := max(5, m.height-8)
	currentHeight := 0
	visibleCount := 0
	for i := m.scrollOffset; i < len(items); i++ {
		h := m.calculateTextHeight(items[i].Text, m.padding())
		if currentHeight+h > availableHeight {
			break
		}
		currentHeight += h
		visibleCount++
	}
	return max(1, visibleCount)
}

func (m model) wrap(text string, paddingWidth int) []string {
	textWidth := max(20, m.width-paddingWidth)
	return strings.Split(wordwrap.String(text, textWidth), "\n")
}

func (m model) calculateTextHeight(text string, paddingWidth int) int {
	return max(2, len(m.wrap(text, paddingWidth))+1)
}

func (m model) View() string {
	var content strings.Builder

	content.WriteString(m.centerText(m.titleStyle.Render(m.header())))
	content.WriteString("\n\n")

	switch m.mode {
	case searchMode:
		m.renderSearch(&content)
	case chapterMode, favoritesMode, affirmationsMode:
		m.renderList(&content, m.activeItems())
	case editMode:
		m.renderForm(&content)
	default:
		m.renderReading(&content)
	}

	if m.status != "" {
		content.WriteString("\n")
		content.WriteString(m.centerText(m.referenceStyle.Render(m.status)))
		content.WriteString("\n")
	}

	content.WriteString(helpStyle.Render(m.dimStyle.Render(m.helpText())))
	return content.String()
}

func (m model) header() string {
	switch m.mode {
	case searchMode:
		if len(m.searchResults) > 0 {
			return fmt.Sprintf("Search: %s (%d results)", m.searchQuery, len(m.searchResults))
		}
		return "Search"
	case chapterMode:
		return fmt.Sprintf("%s %d", m.chapter.book, m.chapter.chapter)
	case favoritesMode:
		return fmt.Sprintf("Favorites (%d)", len(m.list))
	case affirmationsMode:
		return fmt.Sprintf("Affirmations (%d)", len(m.list))
	case editMode:
		if m.editing != nil {
			return "Edit affirmation"
		}
		return "New affirmation"
	}
	return "Biblify"
}

func (m model) helpText() string {
	switch m.mode {
	case searchMode:
		return "Type to search • ↑/↓: Navigate • Enter: Open • Ctrl+f: Favorite • Esc: Back"
	case chapterMode:
		return "j/k: Navigate • h/l: Chapter • b/w: Book • g/G: Top/Bottom • Enter: Open • f: Favorite • Esc: Back"
	case favoritesMode:
		return "j/k: Navigate • Enter: Open • f: Remove • Esc: Back"
	case affirmationsMode:
		return "j/k: Navigate • Enter: Open • n: New • e: Edit • d: Delete • Esc: Back"
	case editMode:
		return "Tab: Switch field • Enter: New line • Ctrl+s: Save • Esc: Cancel"
	}
	return "n/→: Next • p/←: Back • r: Random • f: Favorite • /: Search • c: Chapter • v: Favorites • a: Affirmations • t: Theme • x: Toggle affirmations • q: Quit"
}

func (m model) renderReading(content *strings.Builder) {
	v, ok := m.nav.Current()
	if !ok {
		content.WriteString(m.centerText(m.dimStyle.Render("No verse to show. Press r for a random verse.")))
		content.WriteString("\n")
		return
	}

	for _, line := range m.wrap(v.Text, 16) {
		content.WriteString(m.centerText(m.textStyle.Render(line)))
		content.WriteByte('\n')
	}
	content.WriteByte('\n')

	reference := v.Reference
	if m.svc.Favorites.IsFavorite(v) {
		reference = "★ " + reference
	}
	content.WriteString(m.centerText(m.referenceStyle.Render(reference)))
	content.WriteByte('\n')

	var meta []string
	if v.IsAffirmation {
		meta = append(meta, "affirmation")
	}
	meta = append(meta, fmt.Sprintf("%d/%d", m.nav.Cursor()+1, m.nav.Len()))
	content.WriteString(m.centerText(m.dimStyle.Render(strings.Join(meta, " • "))))
	content.WriteByte('\n')
}

func (m model) renderSearch(content *strings.Builder) {
	content.WriteString(m.input.View())
	content.WriteString("\n\n")

	switch {
	case m.searchErr != nil:
		content.WriteString(m.centerText(m.dimStyle.Render("Search failed: " + m.searchErr.Error())))
		content.WriteByte('\n')
	case m.searching:
		content.WriteString(m.centerText(m.dimStyle.Render("Searching...")))
		content.WriteByte('\n')
	case strings.TrimSpace(m.searchQuery) == "":
		content.WriteString(m.centerText(m.dimStyle.Render("Type to search...")))
		content.WriteByte('\n')
	case len(m.searchResults) == 0:
		content.WriteString(m.centerText(m.dimStyle.Render("No verses found")))
		content.WriteByte('\n')
	default:
		m.renderList(content, m.activeItems())
	}
}

func (m model) renderList(content *strings.Builder, items []verse.Verse) {
	if len(items) == 0 {
		content.WriteString(m.centerText(m.dimStyle.Render("Nothing here yet")))
		content.WriteByte('\n')
		return
	}

	m.adjustScrollOffset(len(items), m.visibleItems(items))
	end := min(len(items), m.scrollOffset+m.visibleItems(items))
	for i := m.scrollOffset; i < end; i++ {
		m.renderVerse(content, items[i], i == m.selected, m.label(i, items[i]))
	}
}

// label is the left column of a list row: the verse number inside a
// chapter, otherwise the reference.
func (m model) label(i int, v verse.Verse) string {
	if m.mode == chapterMode {
		n := i + 1
		if ref, ok := verse.ParseReference(v.Reference); ok && ref.Verse > 0 {
			n = ref.Verse
		}
		return m.referenceStyle.Render(fmt.Sprintf("%3d", n))
	}

	favorite := m.svc.Favorites.IsFavorite(v)
	if m.mode == searchMode && i < len(m.searchResults) {
		favorite = m.searchResults[i].Favorite
	}
	reference := v.Reference
	if favorite {
		reference = "★ " + reference
	}
	return m.referenceStyle.Render(fmt.Sprintf("%-20s", truncateText(reference, 20)))
}

func (m model) renderVerse(content *strings.Builder, v verse.Verse, isSelected bool, label string) int {
	if isSelected {
		content.WriteString(m.cursorStyle.Render(">"))
	} else {
		content.WriteString(" ")
	}
	content.WriteByte(' ')
	content.WriteString(label)
	content.WriteByte(' ')

	paddingWidth := m.padding()
	lines := m.wrap(v.Text, paddingWidth)
	style := m.textStyle
	if !isSelected {
		style = m.dimStyle
	}

	content.WriteString(style.Render(lines[0]))
	content.WriteByte('\n')
	linesUsed := 1

	padding := strings.Repeat(" ", paddingWidth)
	for _, line := range lines[1:] {
		content.WriteString(padding)
		content.WriteString(style.Render(line))
		content.WriteByte('\n')
		linesUsed++
	}

	content.WriteByte('\n')
	return linesUsed + 1
}

func (m model) renderForm(content *strings.Builder) {
	fields := [2]struct{ label, view string }{
		{"Text", m.formText.View()},
		{"Reference", m.formRef.View()},
	}
	for i, f := range fields {
		label := m.dimStyle.Render(fmt.Sprintf("%-10s", f.label))
		if i == m.formFocus {
			label = m.cursorStyle.Render(fmt.Sprintf("%-10s", f.label))
		}
		content.WriteString(" ")
		content.WriteString(label)
		content.WriteString("\n")
		content.WriteString(f.view)
		content.WriteString("\n\n")
	}
}

func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

func (m model) centerText(text string) string {
	visualWidth := lipgloss.Width(text)
	if visualWidth >= m.width {
		return text
	}
	leftPadding := (m.width - visualWidth) / 2
	return strings.Repeat(" ", leftPadding) + text
}

// runReader opens the service and runs the reader until the user quits.
// Logs go to a file in the data directory so they do not corrupt the screen.
func runReader(link string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logPath, err := getFilePath(cfg.DataDir, logFile)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})))

	svc := app.Open(cfg)
	defer svc.Close()

	p := tea.NewProgram(initialModel(svc, link), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
