package ui

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Mohsinsiddi/beancli/internal/chain"
	"github.com/Mohsinsiddi/beancli/internal/purchase"
	"github.com/Mohsinsiddi/beancli/internal/session"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/core/types"
)

// Screen texts.
const (
	textEnterAmount = "Enter An Amount To See ETH Equivalent"
	textConnect     = "Connect Wallet"
	textBuy         = "BUY NOW"
	maxNotices      = 3
	noticeTTL       = 6 * time.Second
)

// WalletControl connects and disconnects the wallet session.
type WalletControl interface {
	Connect(ctx context.Context) error
	Restore(ctx context.Context) error
	Disconnect() error
}

// Purchaser is the purchase workflow as driven by the screen.
type Purchaser interface {
	State() purchase.State
	OnAmountChange(raw string)
	Submit(ctx context.Context) (purchase.Outcome, error)
}

// StateMsg carries a new workflow state into the screen.
type StateMsg purchase.State

// NoticeMsg is a toast shown under the buy card.
type NoticeMsg string

type approvalMsg struct {
	summary string
	reply   chan bool
}

type connectDoneMsg struct{ err error }

type submitDoneMsg struct {
	outcome purchase.Outcome
	err     error
}

type appTickMsg time.Time

type notice struct {
	text string
	at   time.Time
}

// appModel is the Bubble Tea model for the Bean minting screen.
type appModel struct {
	ctx     context.Context
	wallet  WalletControl
	buyer   Purchaser
	chains  *chain.Registry
	restore bool

	state      purchase.State
	input      string
	notices    []notice
	approval   *approvalMsg
	connecting bool
	frame      int
	now        time.Time
	quitting   bool
}

func newAppModel(ctx context.Context, w WalletControl, b Purchaser, restore bool) appModel {
	return appModel{
		ctx:     ctx,
		wallet:  w,
		buyer:   b,
		chains:  chain.NewRegistry(),
		restore: restore,
		state:   b.State(),
		now:     time.Now(),
	}
}

func (m appModel) Init() tea.Cmd {
	cmds := []tea.Cmd{appTick()}
	if m.restore {
		cmds = append(cmds, m.restoreCmd())
	}
	return tea.Batch(cmds...)
}

func appTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return appTickMsg(t) })
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		m.state = purchase.State(msg)

	case NoticeMsg:
		m.addNotice(string(msg))

	case approvalMsg:
		m.approval = &msg

	case connectDoneMsg:
		m.connecting = false
		// The session manager already reports unsupported networks.
		if msg.err != nil && !errors.Is(msg.err, session.ErrUnsupportedNetwork) {
			m.addNotice(msg.err.Error())
		}
		m.state = m.buyer.State()

	case submitDoneMsg:
		if msg.outcome == purchase.OutcomeConfirmed {
			m.input = ""
		}
		m.state = m.buyer.State()

	case appTickMsg:
		m.now = time.Time(msg)
		m.frame = (m.frame + 1) % len(spinnerFrames)
		m.expireNotices()
		return m, appTick()
	}
	return m, nil
}

func (m appModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.approval != nil {
		switch key.String() {
		case "y", "Y", "enter":
			m.approval.reply <- true
			m.approval = nil
		case "n", "N", "esc":
			m.approval.reply <- false
			m.approval = nil
		}
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "esc", "q":
		m.quitting = true
		return m, tea.Quit

	case "c":
		if !m.state.Session.Connected && !m.connecting {
			m.connecting = true
			return m, m.connectCmd()
		}

	case "d":
		if m.state.Session.Connected {
			return m, m.disconnectCmd()
		}

	case "enter":
		if m.state.CanSubmit {
			return m, m.submitCmd()
		}

	case "backspace":
		if m.input != "" {
			m.input = m.input[:len(m.input)-1]
			m.buyer.OnAmountChange(m.input)
		}

	default:
		if key.Type == tea.KeyRunes && isDigits(key.Runes) && len(m.input) < 18 {
			m.input += string(key.Runes)
			m.buyer.OnAmountChange(m.input)
		}
	}
	return m, nil
}

func isDigits(rs []rune) bool {
	for _, r := range rs {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(rs) > 0
}

func (m *appModel) addNotice(text string) {
	m.notices = append(m.notices, notice{text: text, at: m.now})
	if len(m.notices) > maxNotices {
		m.notices = m.notices[len(m.notices)-maxNotices:]
	}
}

func (m *appModel) expireNotices() {
	kept := m.notices[:0]
	for _, n := range m.notices {
		if m.now.Sub(n.at) < noticeTTL {
			kept = append(kept, n)
		}
	}
	m.notices = kept
}

func (m appModel) connectCmd() tea.Cmd {
	return func() tea.Msg { return connectDoneMsg{err: m.wallet.Connect(m.ctx)} }
}

func (m appModel) restoreCmd() tea.Cmd {
	return func() tea.Msg { return connectDoneMsg{err: m.wallet.Restore(m.ctx)} }
}

func (m appModel) disconnectCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.wallet.Disconnect(); err != nil {
			return NoticeMsg(err.Error())
		}
		return nil
	}
}

func (m appModel) submitCmd() tea.Cmd {
	return func() tea.Msg {
		outcome, err := m.buyer.Submit(m.ctx)
		return submitDoneMsg{outcome: outcome, err: err}
	}
}

func (m appModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.viewHeader() + "\n\n")
	sb.WriteString(m.viewCard() + "\n")

	if m.approval != nil {
		sb.WriteString("\n" + m.approval.summary + "\n")
		sb.WriteString(StyleWarning.Render("  Sign and send?  [ y ] approve   [ n ] reject") + "\n")
	}

	for _, n := range m.notices {
		sb.WriteString("\n" + Notice(n.text))
	}
	sb.WriteString("\n\n" + m.viewControls() + "\n")
	return sb.String()
}

func (m appModel) viewHeader() string {
	title := StyleTitle.UnsetMarginBottom().Render("🫘 Bean Token Minting")

	var right string
	s := m.state.Session
	switch {
	case s.Connected:
		right = StyleAddress.Render(TruncateAddr(s.Address)) + "  " +
			ChainName(m.chains.DisplayName(s.Chain()))
	case m.connecting:
		right = StyleInfo.Render(spinnerFrames[m.frame] + " connecting…")
	default:
		right = StyleButton.Render(textConnect)
	}
	return title + "    " + right
}

func (m appModel) viewCard() string {
	st := m.state
	var sb strings.Builder

	if st.Session.Connected {
		eth := orDash(st.Session.NativeBalance)
		bnt := orDash(st.TokenBalance)
		sb.WriteString(StyleMeta.Render("ETH: ") + Val(eth+"ETH") + "\n")
		sb.WriteString(StyleMeta.Render("BNT: ") + Val(bnt+"BNT") + "\n\n")
	}

	cursor := " "
	if m.frame%10 < 5 {
		cursor = "▏"
	}
	field := StyleBorder.Render(padR(m.input+cursor, 20))
	sb.WriteString(StyleMeta.Render("Amount") + "\n" + field + "\n")

	if st.DebouncedAmount != "" && st.QuotedCost != "" {
		sb.WriteString(Val("You Pay "+st.QuotedCost+"ETH") + "\n\n")
	} else {
		sb.WriteString(StyleMeta.Render(textEnterAmount) + "\n\n")
	}

	switch {
	case st.Submitting:
		sb.WriteString(StyleButton.Render(spinnerFrames[m.frame] + " " + textBuy))
	case st.CanSubmit:
		sb.WriteString(StyleButton.Render(textBuy))
	default:
		sb.WriteString(StyleButtonDisabled.Render(textBuy))
	}
	if st.Loading && !st.Submitting {
		sb.WriteString("  " + StyleInfo.Render(spinnerFrames[m.frame]))
	}

	return StyleCard.Render(sb.String())
}

func (m appModel) viewControls() string {
	sep := StyleMeta.Render("   ")
	parts := []string{StyleMeta.Render("[ 0-9 ] amount")}
	if m.state.Session.Connected {
		parts = append(parts, StyleInfo.Render("[ enter ]")+StyleMeta.Render(" buy"),
			StyleWarning.Render("[ d ]")+StyleMeta.Render(" disconnect"))
	} else {
		parts = append(parts, StyleInfo.Render("[ c ]")+StyleMeta.Render(" connect"))
	}
	parts = append(parts, StyleMeta.Render("[ q ] quit"))
	return strings.Join(parts, sep)
}

// Notice styles a workflow or connection notice by its kind.
func Notice(text string) string {
	switch {
	case strings.HasSuffix(text, "Bought Successfully"):
		return Success(text + " 🚀")
	case text == purchase.NoticeCancelled:
		return Warn(text)
	default:
		return Err(trimErr(text))
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

var errScreenClosed = errors.New("screen closed")

// App runs the minting screen and bridges workflow output into it. Messages
// are queued and forwarded in order, so publishing never blocks the caller,
// even when the caller is the screen's own update loop.
type App struct {
	program *tea.Program
	done    chan struct{}

	mu      sync.Mutex
	pending []tea.Msg
	wake    chan struct{}
}

// NewApp builds the screen. When restore is set the previous wallet
// connection is re-established on start.
func NewApp(ctx context.Context, w WalletControl, b Purchaser, restore bool, opts ...tea.ProgramOption) *App {
	return &App{
		program: tea.NewProgram(newAppModel(ctx, w, b, restore), opts...),
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
	}
}

// Run blocks until the user quits.
func (a *App) Run() error {
	go a.forward()
	defer close(a.done)

	_, err := a.program.Run()
	return err
}

// Notify shows msg as a toast. It implements notify.Notifier.
func (a *App) Notify(msg string) { a.send(NoticeMsg(msg)) }

// Publish pushes a workflow state to the screen.
func (a *App) Publish(st purchase.State) { a.send(StateMsg(st)) }

// Approve asks the user to approve tx inside the screen. It is a
// wallet.ApproveFunc and fails once the screen has closed.
func (a *App) Approve(tx *types.Transaction, chainID *big.Int) (bool, error) {
	reply := make(chan bool, 1)
	a.send(approvalMsg{summary: TxSummary(tx, chainID), reply: reply})
	select {
	case ok := <-reply:
		return ok, nil
	case <-a.done:
		return false, errScreenClosed
	}
}

func (a *App) send(msg tea.Msg) {
	select {
	case <-a.done:
		return
	default:
	}
	a.mu.Lock()
	a.pending = append(a.pending, msg)
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *App) forward() {
	for {
		select {
		case <-a.done:
			return
		case <-a.wake:
		}
		a.mu.Lock()
		batch := a.pending
		a.pending = nil
		a.mu.Unlock()
		for _, msg := range batch {
			a.program.Send(msg)
		}
	}
}
