// Package tui is the terminal review surface. It only reads through the
// store's queries and mutates through the single status entry point.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/easycat/internal/database/repository"
	"github.com/jask/easycat/internal/service"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 2)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Background(lipgloss.Color("238")).Padding(0, 2)
	listBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	postedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Deps wires the app to the core.
type Deps struct {
	Transactions *repository.TransactionRepo
	Categories   *repository.CategoryRepo
	Syncer       *service.Syncer
	Poster       *service.Poster
	Categorizer  *service.Categorizer
	Suggester    *service.Suggester
	Log          *slog.Logger
}

type screen int

const (
	screenReview screen = iota
	screenCategories
)

type catItem struct {
	cat repository.Category
}

func (c catItem) Title() string       { return c.cat.FullName }
func (c catItem) Description() string { return c.cat.AccountType }
func (c catItem) FilterValue() string { return c.cat.FullName }

type catItemDelegate struct{}

func (d catItemDelegate) Height() int                             { return 1 }
func (d catItemDelegate) Spacing() int                            { return 0 }
func (d catItemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d catItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	entry, ok := item.(catItem)
	if !ok {
		return
	}
	prefix := "  "
	line := entry.cat.FullName
	if index == m.Index() {
		prefix = "> "
		line = selectedStyle.Render(line)
	}
	fmt.Fprint(w, prefix+line)
}

// App is the bubbletea model.
type App struct {
	ctx  context.Context
	deps Deps

	screen    screen
	txns      []repository.Transaction
	cats      []repository.Category
	cursor    int
	catCursor int

	picker  list.Model
	picking bool

	search    textinput.Model
	searching bool
	query     string

	status string
	width  int
	height int
}

// New builds the app model.
func New(ctx context.Context, deps Deps) *App {
	picker := list.New(nil, catItemDelegate{}, 60, 16)
	picker.Title = "Assign category"
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(true)

	search := textinput.New()
	search.Placeholder = "search description or vendor"

	return &App{ctx: ctx, deps: deps, picker: picker, search: search, status: "ready"}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadTransactions(), a.loadCategories())
}

// Messages.

type txnsMsg []repository.Transaction
type catsMsg []repository.Category
type syncedMsg struct {
	categories int
	result     service.SyncResult
}
type postedMsg service.PostResult
type categorizedMsg service.CategorizeResult
type clearedMsg int64
type statusMsg string
type errorMsg struct{ err error }

// commandHandlers is the fixed dispatch table for named UI actions.
var commandHandlers = map[Command]func(a *App) tea.Cmd{
	CommandQuit:             func(a *App) tea.Cmd { return tea.Quit },
	CommandSwitchScreen:     (*App).switchScreen,
	CommandSync:             (*App).runSync,
	CommandPost:             (*App).runPost,
	CommandCategorize:       (*App).openPicker,
	CommandApplyRules:       (*App).runApplyRules,
	CommandSkipCategory:     (*App).clearCategory,
	CommandSimilar:          (*App).applyToSimilar,
	CommandToggleVisibility: (*App).toggleVisibility,
	CommandSearch:           (*App).openSearch,
	CommandClearPosted:      (*App).clearPosted,
	CommandCursorUp:         (*App).cursorUp,
	CommandCursorDown:       (*App).cursorDown,
	CommandNone:             func(a *App) tea.Cmd { return nil },
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.picker.SetSize(min(72, msg.Width-4), min(20, msg.Height-6))
		return a, nil

	case tea.KeyMsg:
		if a.picking {
			return a.updatePicker(msg)
		}
		if a.searching {
			return a.updateSearch(msg)
		}
		handler, ok := commandHandlers[commandForKey(msg.String())]
		if !ok {
			return a, nil
		}
		return a, handler(a)

	case txnsMsg:
		a.txns = msg
		if a.cursor >= len(a.txns) {
			a.cursor = max(0, len(a.txns)-1)
		}
		return a, nil

	case catsMsg:
		a.cats = msg
		items := make([]list.Item, 0, len(msg))
		for _, c := range msg {
			if c.IsVisible {
				items = append(items, catItem{cat: c})
			}
		}
		a.picker.SetItems(items)
		if a.catCursor >= len(a.cats) {
			a.catCursor = max(0, len(a.cats)-1)
		}
		return a, nil

	case syncedMsg:
		a.status = fmt.Sprintf("synced %d categories, %d transactions (%d new, %d refreshed)",
			msg.categories, msg.result.Fetched, msg.result.Created, msg.result.Updated)
		return a, tea.Batch(a.loadTransactions(), a.loadCategories())

	case postedMsg:
		a.status = fmt.Sprintf("posted %d, skipped %d, failed %d", msg.Posted, msg.Skipped, msg.Failed)
		return a, a.loadTransactions()

	case categorizedMsg:
		a.status = fmt.Sprintf("rules matched %d of %d pending", msg.Matched, msg.Scanned)
		return a, a.loadTransactions()

	case clearedMsg:
		a.status = fmt.Sprintf("purged %d posted transactions", int64(msg))
		return a, a.loadTransactions()

	case statusMsg:
		a.status = string(msg)
		return a, nil

	case errorMsg:
		a.status = "error: " + msg.err.Error()
		return a, nil
	}
	return a, nil
}

func (a *App) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.picking = false
		return a, nil
	case "enter":
		a.picking = false
		item, ok := a.picker.SelectedItem().(catItem)
		if !ok {
			return a, nil
		}
		return a, a.assignCategory(item.cat)
	}
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)
	return a, cmd
}

func (a *App) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.searching = false
		a.search.Blur()
		return a, nil
	case "enter":
		a.searching = false
		a.search.Blur()
		a.query = a.search.Value()
		return a, a.loadTransactions()
	}
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	return a, cmd
}

// Command handlers.

func (a *App) switchScreen() tea.Cmd {
	if a.screen == screenReview {
		a.screen = screenCategories
	} else {
		a.screen = screenReview
	}
	return nil
}

func (a *App) runSync() tea.Cmd {
	a.status = "syncing..."
	return func() tea.Msg {
		cats, err := a.deps.Syncer.SyncCategories(a.ctx)
		if err != nil {
			return errorMsg{err}
		}
		res, err := a.deps.Syncer.SyncTransactions(a.ctx, nil, nil)
		if err != nil {
			return errorMsg{err}
		}
		return syncedMsg{categories: cats, result: res}
	}
}

func (a *App) runPost() tea.Cmd {
	a.status = "posting..."
	return func() tea.Msg {
		res, err := a.deps.Poster.PostCategorized(a.ctx)
		if err != nil {
			return errorMsg{err}
		}
		return postedMsg(res)
	}
}

func (a *App) runApplyRules() tea.Cmd {
	a.status = "applying rules..."
	return func() tea.Msg {
		res, err := a.deps.Categorizer.ApplyRules(a.ctx)
		if err != nil {
			return errorMsg{err}
		}
		return categorizedMsg(res)
	}
}

func (a *App) openPicker() tea.Cmd {
	if a.screen != screenReview || a.selected() == nil {
		return nil
	}
	a.picking = true
	a.picker.ResetFilter()
	return nil
}

func (a *App) assignCategory(cat repository.Category) tea.Cmd {
	txn := a.selected()
	if txn == nil {
		return nil
	}
	id := txn.ID
	return func() tea.Msg {
		if err := a.deps.Transactions.UpdateStatus(a.ctx, id, repository.StatusCategorized, &cat.ID); err != nil {
			return errorMsg{err}
		}
		return statusMsg(fmt.Sprintf("categorized as %s", cat.FullName))
	}
}

func (a *App) clearCategory() tea.Cmd {
	txn := a.selected()
	if txn == nil || txn.Status != repository.StatusPending {
		return nil
	}
	id := txn.ID
	return func() tea.Msg {
		if err := a.deps.Transactions.UpdateStatus(a.ctx, id, repository.StatusPending, nil); err != nil {
			return errorMsg{err}
		}
		return statusMsg("cleared suggested category")
	}
}

func (a *App) applyToSimilar() tea.Cmd {
	txn := a.selected()
	if txn == nil || txn.CategoryID == nil {
		return nil
	}
	target := *txn
	return func() tea.Msg {
		similar, err := a.deps.Suggester.SimilarPending(a.ctx, target)
		if err != nil {
			return errorMsg{err}
		}
		applied := 0
		for _, other := range similar {
			if err := a.deps.Transactions.UpdateStatus(a.ctx, other.ID, repository.StatusCategorized, target.CategoryID); err != nil {
				continue
			}
			applied++
		}
		return statusMsg(fmt.Sprintf("applied category to %d similar transactions", applied))
	}
}

func (a *App) toggleVisibility() tea.Cmd {
	if a.screen != screenCategories || a.catCursor >= len(a.cats) {
		return nil
	}
	cat := a.cats[a.catCursor]
	return func() tea.Msg {
		if err := a.deps.Categories.SetVisibility(a.ctx, cat.ID, !cat.IsVisible); err != nil {
			return errorMsg{err}
		}
		return statusMsg(fmt.Sprintf("%s visibility toggled", cat.Name))
	}
}

func (a *App) openSearch() tea.Cmd {
	if a.screen != screenReview {
		return nil
	}
	a.searching = true
	a.search.SetValue(a.query)
	return a.search.Focus()
}

func (a *App) clearPosted() tea.Cmd {
	return func() tea.Msg {
		n, err := a.deps.Transactions.ClearPosted(a.ctx)
		if err != nil {
			return errorMsg{err}
		}
		return clearedMsg(n)
	}
}

func (a *App) cursorUp() tea.Cmd {
	if a.screen == screenReview && a.cursor > 0 {
		a.cursor--
	}
	if a.screen == screenCategories && a.catCursor > 0 {
		a.catCursor--
	}
	return nil
}

func (a *App) cursorDown() tea.Cmd {
	if a.screen == screenReview && a.cursor < len(a.txns)-1 {
		a.cursor++
	}
	if a.screen == screenCategories && a.catCursor < len(a.cats)-1 {
		a.catCursor++
	}
	return nil
}

// Data loads.

func (a *App) loadTransactions() tea.Cmd {
	query := a.query
	return func() tea.Msg {
		f := repository.SearchFilters{Text: query}
		txns, err := a.deps.Transactions.Search(a.ctx, f)
		if err != nil {
			return errorMsg{err}
		}
		return txnsMsg(txns)
	}
}

func (a *App) loadCategories() tea.Cmd {
	return func() tea.Msg {
		cats, err := a.deps.Categories.All(a.ctx)
		if err != nil {
			return errorMsg{err}
		}
		return catsMsg(cats)
	}
}

func (a *App) selected() *repository.Transaction {
	if a.cursor < 0 || a.cursor >= len(a.txns) {
		return nil
	}
	return &a.txns[a.cursor]
}

// Views.

func (a *App) View() string {
	var b strings.Builder
	switch a.screen {
	case screenReview:
		b.WriteString(a.reviewView())
	case screenCategories:
		b.WriteString(a.categoriesView())
	}
	if a.picking {
		b.WriteString("\n" + listBoxStyle.Render(a.picker.View()))
	}
	if a.searching {
		b.WriteString("\n" + listBoxStyle.Render(a.search.View()))
	}
	b.WriteString("\n" + statusBarStyle.Render(a.status))
	b.WriteString("\n" + footerStyle.Render(a.helpLine()))
	return b.String()
}

func (a *App) reviewView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Transactions") + "\n\n")
	if len(a.txns) == 0 {
		b.WriteString(dimStyle.Render("nothing fetched yet; press s to sync") + "\n")
		return b.String()
	}
	catNames := make(map[string]string, len(a.cats))
	for _, c := range a.cats {
		catNames[c.ID] = c.FullName
	}
	for i, txn := range a.txns {
		line := fmt.Sprintf("%s  %10s  %-9s  %s",
			txn.Date.Format("2006-01-02"), txn.Amount.StringFixed(2), txn.Status, txn.Description)
		if txn.CategoryID != nil {
			if name, ok := catNames[*txn.CategoryID]; ok {
				line += dimStyle.Render("  -> " + name)
			}
		}
		switch txn.Status {
		case repository.StatusPosted:
			line = postedStyle.Render(line)
		case repository.StatusPending:
			line = pendingStyle.Render(line)
		}
		prefix := "  "
		if i == a.cursor {
			prefix = selectedStyle.Render("> ")
		}
		b.WriteString(prefix + line + "\n")
	}
	return b.String()
}

func (a *App) categoriesView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Categories") + "\n\n")
	for i, cat := range a.cats {
		mark := " "
		if !cat.IsVisible {
			mark = "·"
		}
		line := fmt.Sprintf("%s %-40s %s", mark, cat.FullName, dimStyle.Render(cat.AccountType))
		prefix := "  "
		if i == a.catCursor {
			prefix = selectedStyle.Render("> ")
		}
		b.WriteString(prefix + line + "\n")
	}
	if len(a.cats) == 0 {
		b.WriteString(dimStyle.Render("no categories; press s to sync") + "\n")
	}
	return b.String()
}

func (a *App) helpLine() string {
	switch a.screen {
	case screenCategories:
		return "tab screens · v toggle visibility · s sync · q quit"
	default:
		return "tab screens · enter categorize · r apply rules · a apply to similar · / search · s sync · p post · P purge posted · q quit"
	}
}

// Run starts the program.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(New(ctx, deps), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
