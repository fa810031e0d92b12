package tui

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jask/modelhub/internal/config"
	"github.com/jask/modelhub/internal/journal"
	"github.com/jask/modelhub/internal/logging"
	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
)

// Backend is the registry service as the console uses it.
type Backend interface {
	session.Fetcher
	session.Uploader
	FetchArtifact(ctx context.Context, nftID string, w io.Writer) (string, int64, error)
}

// Journal records the user's submissions. A nil Journal disables history.
type Journal interface {
	Record(ctx context.Context, e journal.Entry) (journal.Entry, error)
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Options wires an App.
type Options struct {
	Backend    Backend
	Dispatcher session.Dispatcher
	Journal    Journal
	Explorer   registry.Explorer
	Config     config.Config
	Log        *zap.SugaredLogger
	// Scheduler overrides the wall clock for the delayed resync.
	Scheduler session.Scheduler
}

type view int

const (
	viewApproved view = iota
	viewPending
	viewUpload
	viewAggregate
	viewHistory
)

var viewTitles = [...]string{"Approved", "Pending", "Upload", "Aggregate", "History"}

const historyLimit = 50

// listState is the cursor and expanded row of one registry list.
type listState struct {
	cursor   int
	expanded string
}

// App ties together views.
type App struct {
	ctx      context.Context
	cfg      config.Config
	log      *zap.SugaredLogger
	backend  Backend
	journal  Journal
	explorer registry.Explorer
	tz       *time.Location
	keys     keyMap
	send     func(tea.Msg)

	sync    *session.RegistrySync
	upload  *session.UploadSession
	builder *session.AggregationBuilder

	view     view
	width    int
	notice   session.Notice
	inflight [2]int
	fetching int
	spin     spinner.Model

	lists   [2]listState
	history []journal.Entry

	form uploadForm
	agg  aggregateForm
}

func New(ctx context.Context, opts Options) *App {
	log := opts.Log
	if log == nil {
		log = logging.NewNop()
	}
	a := &App{
		ctx:      ctx,
		cfg:      opts.Config,
		log:      log,
		backend:  opts.Backend,
		journal:  opts.Journal,
		explorer: opts.Explorer,
		tz:       opts.Config.Location(),
		keys:     defaultKeys(),
		width:    80,
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(lipgloss.NewStyle().Foreground(colorAccent))),
		form:     newUploadForm(),
		agg:      newAggregateForm(),
	}
	a.sync = session.NewRegistrySync(opts.Backend, log.Named("sync"))
	a.upload = session.NewUploadSession(opts.Backend, nil, log.Named("upload"))
	builderOpts := []session.BuilderOption{session.WithResyncDelay(opts.Config.Aggregation.ResyncDelay)}
	if opts.Scheduler != nil {
		builderOpts = append(builderOpts, session.WithScheduler(opts.Scheduler))
	}
	a.builder = session.NewAggregationBuilder(opts.Dispatcher, a.postResync, log.Named("aggregate"), builderOpts...)
	return a
}

// Bind connects the App to the running program so timer callbacks can post
// messages. It must be called before the program starts.
func (a *App) Bind(send func(tea.Msg)) { a.send = send }

// Close cancels the pending resync.
func (a *App) Close() { a.builder.Close() }

func (a *App) postResync() {
	if a.send != nil {
		a.send(resyncMsg{})
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.refreshCmd(session.Approved), a.refreshCmd(session.Pending), a.spin.Tick)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
	case tea.KeyMsg:
		return a, a.handleKey(m)
	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(m)
		return a, cmd
	case snapshotMsg:
		a.applySnapshot(session.Snapshot(m))
	case resyncMsg:
		return a, a.refreshCmd(session.Approved)
	case uploadDoneMsg:
		return a, a.finishUpload(m)
	case fetchDoneMsg:
		a.fetching--
		return a, a.finishFetch(m)
	case historyMsg:
		a.history = []journal.Entry(m)
	case journalRecordedMsg:
		if a.view == viewHistory {
			return a, a.historyCmd()
		}
	}
	return a, nil
}

func (a *App) handleKey(m tea.KeyMsg) tea.Cmd {
	if m.String() == "ctrl+c" {
		return tea.Quit
	}
	switch {
	case a.view == viewUpload && a.form.editing:
		return a.handleUploadKey(m)
	case a.view == viewAggregate && a.agg.editing:
		return a.handleAggregateKey(m)
	}
	if m.Paste {
		return nil
	}
	switch {
	case key.Matches(m, a.keys.Quit):
		return tea.Quit
	case key.Matches(m, a.keys.Views):
		return a.switchView(view(m.Runes[0] - '1'))
	case key.Matches(m, a.keys.NextView):
		return a.switchView((a.view + 1) % view(len(viewTitles)))
	case key.Matches(m, a.keys.PrevView):
		return a.switchView((a.view + view(len(viewTitles)) - 1) % view(len(viewTitles)))
	}
	switch a.view {
	case viewApproved, viewPending:
		return a.handleListKey(m)
	case viewUpload:
		if key.Matches(m, a.keys.Detail) {
			return a.form.enter()
		}
	case viewAggregate:
		if key.Matches(m, a.keys.Detail) {
			return a.agg.enter()
		}
	case viewHistory:
		if key.Matches(m, a.keys.Refresh) {
			return a.historyCmd()
		}
	}
	return nil
}

func (a *App) switchView(v view) tea.Cmd {
	if v == a.view {
		return nil
	}
	a.view = v
	switch v {
	case viewUpload:
		return a.form.enter()
	case viewAggregate:
		a.syncSelectors()
		return a.agg.enter()
	case viewHistory:
		return a.historyCmd()
	}
	return nil
}

func (a *App) busy() bool {
	return a.inflight[session.Approved] > 0 || a.inflight[session.Pending] > 0 ||
		a.fetching > 0 || a.upload.State() == session.UploadSubmitting
}

func (a *App) refreshCmd(c session.Collection) tea.Cmd {
	run := a.sync.Begin(c)
	a.inflight[c]++
	ctx := a.ctx
	return tea.Batch(func() tea.Msg { return snapshotMsg(run(ctx)) }, a.spin.Tick)
}

func (a *App) applySnapshot(snap session.Snapshot) {
	if a.inflight[snap.Collection] > 0 {
		a.inflight[snap.Collection]--
	}
	if !a.sync.Apply(snap) {
		return
	}
	if snap.Collection == session.Approved {
		if a.builder.Prune(a.sync.Approved()) {
			a.notice = session.Notice{Severity: session.SeverityInfo, Message: "Models that are no longer approved were removed from the aggregation"}
		}
		a.syncSelectors()
	}
	a.clampCursor(snap.Collection)
}

func (a *App) models(c session.Collection) []registry.Model {
	if c == session.Pending {
		return a.pendingView()
	}
	return a.sync.Approved()
}

// pendingView hides pending entries whose id is already approved.
func (a *App) pendingView() []registry.Model {
	return a.sync.Registry()[len(a.sync.Approved()):]
}

func (a *App) clampCursor(c session.Collection) {
	n := len(a.models(c))
	st := &a.lists[c]
	if st.cursor >= n {
		st.cursor = max(n-1, 0)
	}
}

func (a *App) historyCmd() tea.Cmd {
	if a.journal == nil {
		return nil
	}
	j, ctx, log := a.journal, a.ctx, a.log
	return func() tea.Msg {
		entries, err := j.Recent(ctx, historyLimit)
		if err != nil {
			log.Warnw("journal read failed", "error", err)
			return nil
		}
		return historyMsg(entries)
	}
}

func (a *App) recordCmd(e journal.Entry) tea.Cmd {
	if a.journal == nil {
		return nil
	}
	j, ctx, log := a.journal, a.ctx, a.log
	return func() tea.Msg {
		if _, err := j.Record(ctx, e); err != nil {
			log.Warnw("journal write failed", "kind", e.Kind, "name", e.Name, "error", err)
			return nil
		}
		return journalRecordedMsg{}
	}
}

func (a *App) View() string {
	var body string
	switch a.view {
	case viewPending:
		body = a.renderList(session.Pending)
	case viewUpload:
		body = a.renderUpload()
	case viewAggregate:
		body = a.renderAggregate()
	case viewHistory:
		body = a.renderHistory()
	default:
		body = a.renderList(session.Approved)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		a.renderTabs(),
		"",
		body,
		"",
		a.renderNotice(),
		renderBar(footerStyle, max(1, a.width), renderHelp(a.keys.help(a.view, a.editing()))),
	)
}

func (a *App) editing() bool {
	return (a.view == viewUpload && a.form.editing) || (a.view == viewAggregate && a.agg.editing)
}

func (a *App) renderTabs() string {
	parts := make([]string, 0, len(viewTitles)+1)
	for i, title := range viewTitles {
		label := fmt.Sprintf("%d %s", i+1, title)
		if view(i) == a.view {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, inactiveTabStyle.Render(label))
		}
	}
	if a.busy() {
		parts = append(parts, " "+a.spin.View())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (a *App) renderNotice() string {
	n := a.notice
	if n.IsZero() {
		return renderBar(noticeStyle(session.SeverityInfo).Foreground(colorMuted), max(1, a.width), "Ready")
	}
	return renderBar(noticeStyle(n.Severity), max(1, a.width), n.Message)
}

func (a *App) formatDate(m registry.Model) string {
	if m.CreatedAt.IsZero() {
		return "-"
	}
	layout := strings.TrimSpace(a.cfg.UI.DateFormat)
	if layout == "" {
		layout = "2006-01-02"
	}
	return m.CreatedAt.In(a.tz).Format(layout)
}

func errorNotice(msg string) session.Notice {
	return session.Notice{Severity: session.SeverityError, Message: msg}
}

// Run starts the interactive console and blocks until the user quits.
func Run(ctx context.Context, opts Options) error {
	a := New(ctx, opts)
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(ctx))
	a.Bind(p.Send)
	defer a.Close()
	_, err := p.Run()
	return err
}
