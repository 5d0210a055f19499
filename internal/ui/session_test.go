package ui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bz888/cardadvisor/internal/conversation"
	"github.com/bz888/cardadvisor/internal/upload"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Send(ctx context.Context, query string) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}

// startUI runs the application on a simulation screen until the test ends.
func startUI(t *testing.T, transport conversation.Transport) (*UI, *conversation.Session) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	u := New(false)
	u.app.SetScreen(screen)
	screen.SetSize(100, 40)

	session := conversation.NewSession(transport)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- u.Run(ctx, session, upload.NewController(session)) }()

	// Returns once the event loop is running, which is after Run subscribed.
	u.app.QueueUpdate(func() {})

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("ui did not stop")
		}
	})
	return u, session
}

// flush waits until every posted update has run on the event loop.
func flush(t *testing.T, u *UI) {
	t.Helper()
	ch := make(chan struct{})
	u.post(func() { close(ch) })
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("updates were not applied")
	}
}

// onLoop runs f on the event loop, as key handlers do.
func onLoop(u *UI, f func()) {
	u.app.QueueUpdate(f)
}

func typeAndEnter(u *UI, text string) {
	onLoop(u, func() {
		u.textArea.SetText(text, true)
		u.textArea.GetInputCapture()(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone))
	})
}

func TestFailedSendKeepsAlertFocused(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Send", mock.Anything, "hi").Return("", errors.New("connection refused"))
	u, session := startUI(t, transport)

	typeAndEnter(u, "hi")
	session.Wait()
	flush(t, u)

	var (
		front    string
		page     tview.Primitive
		disabled bool
	)
	onLoop(u, func() {
		front, page = u.pages.GetFrontPage()
		disabled = u.textArea.GetDisabled()
	})
	require.Equal(t, alertPage, front)
	_, isModal := page.(*tview.Modal)
	assert.True(t, isModal)
	assert.True(t, page.HasFocus(), "alert must hold the focus")
	assert.False(t, disabled)
	assert.Len(t, session.Messages(), 1)

	// Enter goes to the alert's OK button and dismisses it.
	onLoop(u, func() {
		u.app.GetFocus().InputHandler()(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), func(p tview.Primitive) {
			u.app.SetFocus(p)
		})
	})

	var textAreaFocused bool
	onLoop(u, func() {
		front, _ = u.pages.GetFrontPage()
		textAreaFocused = u.textArea.HasFocus()
	})
	assert.Equal(t, "main", front)
	assert.True(t, textAreaFocused)
}

func TestSendDisablesInputUntilReply(t *testing.T) {
	release := make(chan struct{})
	transport := new(MockTransport)
	transport.On("Send", mock.Anything, "hello").
		Run(func(mock.Arguments) { <-release }).
		Return("<think>because x</think>Buy card Y", nil)
	u, session := startUI(t, transport)

	typeAndEnter(u, "hello")
	flush(t, u)

	var (
		disabled bool
		title    string
		input    string
	)
	onLoop(u, func() {
		disabled = u.textArea.GetDisabled()
		title = u.textView.GetTitle()
		input = u.textArea.GetText()
	})
	assert.True(t, disabled)
	assert.Equal(t, thinkingTitle, title)
	assert.Empty(t, input)

	close(release)
	session.Wait()
	flush(t, u)

	var conversationText string
	onLoop(u, func() {
		disabled = u.textArea.GetDisabled()
		title = u.textView.GetTitle()
		conversationText = u.textView.GetText(true)
	})
	assert.False(t, disabled)
	assert.Equal(t, conversationTitle, title)
	assert.Contains(t, conversationText, "hello")
	assert.Contains(t, conversationText, "Buy card Y")
	assert.NotContains(t, conversationText, "because x")
}

func TestTypingSyncsPendingInput(t *testing.T) {
	u, session := startUI(t, new(MockTransport))

	onLoop(u, func() { u.textArea.SetText("draft", true) })
	assert.Equal(t, "draft", session.Pending())

	session.SetPending("Below are my spending habits:\n\na,b\n")
	flush(t, u)

	var input string
	onLoop(u, func() { input = u.textArea.GetText() })
	assert.Equal(t, "Below are my spending habits:\n\na,b\n", input)
}
