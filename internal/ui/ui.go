package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bz888/cardadvisor/internal/conversation"
	"github.com/bz888/cardadvisor/internal/logger"
	"github.com/bz888/cardadvisor/internal/prompt"
	"github.com/bz888/cardadvisor/internal/upload"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	conversationTitle = "Credit Card Recommendation System"
	thinkingTitle     = "Credit Card Recommendation System (thinking...)"
	alertPage         = "alert"
)

// UI renders a conversation.Session and feeds user input back into it.
type UI struct {
	app          *tview.Application
	pages        *tview.Pages
	mainFlex     *tview.Flex
	textView     *tview.TextView
	textArea     *tview.TextArea
	debugConsole *tview.TextView
	debugShown   bool

	session  *conversation.Session
	uploader *upload.Controller
	log      *logger.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	queueMu sync.Mutex
	queue   []func()
	wake    chan struct{}
}

func New(dev bool) *UI {
	u := &UI{
		app:        tview.NewApplication(),
		debugShown: dev,
		wake:       make(chan struct{}, 1),
	}
	u.app.EnablePaste(true)
	u.app.EnableMouse(true)

	u.debugConsole = u.initDebugConsole()
	u.textView = u.initChatViewer()
	u.textArea = u.initChatInput()
	return u
}

func (u *UI) initChatViewer() *tview.TextView {
	textView := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	textView.SetTitle(conversationTitle).SetBorder(true)
	textView.SetScrollable(true)
	textView.ScrollToEnd()
	return textView
}

func (u *UI) initChatInput() *tview.TextArea {
	textArea := tview.NewTextArea()
	textArea.SetTitle("Type your message (Enter to send, /help for commands)").SetBorder(true)
	return textArea
}

func (u *UI) initDebugConsole() *tview.TextView {
	console := tview.NewTextView().
		SetChangedFunc(func() {
			u.app.Draw()
		}).
		SetDynamicColors(true).
		SetRegions(true).
		SetWordWrap(true)

	console.SetTitle("Debugger").SetBorder(true)
	console.ScrollToEnd()
	return console
}

// DebugConsole is the view the logger writes to in dev mode.
func (u *UI) DebugConsole() *tview.TextView {
	return u.debugConsole
}

// Run shows session until the user quits or ctx is done.
func (u *UI) Run(ctx context.Context, session *conversation.Session, uploader *upload.Controller) error {
	u.session = session
	u.uploader = uploader
	u.log = logger.NewLogger("views")
	u.ctx, u.cancel = context.WithCancel(ctx)
	defer u.cancel()

	u.textView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEnter {
			u.app.SetFocus(u.textArea)
		}
		return event
	})

	subFlex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(u.textView, 0, 1, false).
		AddItem(u.textArea, 8, 2, true)
	u.mainFlex = tview.NewFlex().
		AddItem(subFlex, 0, 2, true)
	if u.debugShown {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
	}
	u.pages = tview.NewPages().AddPage("main", u.mainFlex, true, true)

	unsubscribe := session.Subscribe(u.onEvent)
	defer unsubscribe()

	u.textArea.SetChangedFunc(func() {
		if text := u.textArea.GetText(); text != u.session.Pending() {
			u.session.SetPending(text)
		}
	})
	u.setInputCapture()

	go u.pump(u.ctx)
	go func() {
		<-u.ctx.Done()
		u.app.Stop()
	}()

	return u.app.SetRoot(u.pages, true).SetFocus(u.textArea).Run()
}

func (u *UI) onEvent(ev conversation.Event) {
	switch ev.Kind {
	case conversation.EventMessage:
		entry := formatMessage(ev.Message)
		u.post(func() {
			fmt.Fprint(u.textView, entry)
			u.textView.ScrollToEnd()
		})
	case conversation.EventLoading:
		loading := ev.Loading
		u.post(func() {
			u.textArea.SetDisabled(loading)
			if loading {
				u.textView.SetTitle(thinkingTitle)
				return
			}
			u.textView.SetTitle(conversationTitle)
			// An open alert keeps the focus until it is dismissed.
			if name, _ := u.pages.GetFrontPage(); name != alertPage {
				u.app.SetFocus(u.textArea)
			}
		})
	case conversation.EventPending:
		u.post(func() {
			if pending := u.session.Pending(); u.textArea.GetText() != pending {
				u.textArea.SetText(pending, true)
			}
		})
	case conversation.EventFailed:
		msg := "Error connecting to chatbot API.\n\n" + ev.Err.Error()
		u.post(func() {
			u.alert(msg)
		})
	}
}

// post queues f for the event loop without blocking. Session events are also
// raised from inside the event loop (typing, Enter), where QueueUpdateDraw
// would wait on itself. Updates run in the order they were posted.
func (u *UI) post(f func()) {
	u.queueMu.Lock()
	u.queue = append(u.queue, f)
	u.queueMu.Unlock()

	select {
	case u.wake <- struct{}{}:
	default:
	}
}

func (u *UI) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-u.wake:
		}

		u.queueMu.Lock()
		updates := u.queue
		u.queue = nil
		u.queueMu.Unlock()

		for _, f := range updates {
			if ctx.Err() != nil {
				return
			}
			u.app.QueueUpdateDraw(f)
		}
	}
}

func (u *UI) setInputCapture() {
	u.textArea.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyESC:
			if u.textView.GetText(false) != "" {
				u.app.SetFocus(u.textView)
			}
			return event
		case tcell.KeyEnter:
			if event.Modifiers()&tcell.ModAlt != 0 {
				// Alt+Enter inserts a newline.
				return event
			}
		default:
			return event
		}

		content := u.textArea.GetText()
		if strings.TrimSpace(content) == "" {
			return nil
		}

		name, arg := parseCommand(content)
		switch name {
		case "/help":
			u.textArea.SetText("", true)
			fmt.Fprint(u.textView, helpText)
			return nil
		case "/bye", "/quit", "/exit":
			u.quit()
			return nil
		case "/debug":
			u.textArea.SetText("", true)
			u.toggleDebugConsole()
			return nil
		case "/upload":
			u.handleUpload(arg)
			return nil
		}

		if err := u.session.SendMessage(u.ctx, content); err != nil {
			u.log.Warn("Message not sent:", err)
		}
		return nil
	})
}

func (u *UI) handleUpload(path string) {
	if path == "" {
		u.alert("Usage: /upload <path to .csv file>")
		return
	}

	file, err := upload.Open(path)
	if err == nil {
		err = u.uploader.HandleUpload(file)
	}
	if err != nil {
		u.log.Error("Upload failed:", err)
		u.alert(uploadNotice(err))
		return
	}
	u.log.Info("Upload staged from", path)
}

func (u *UI) alert(text string) {
	modal := tview.NewModal().
		SetText(text).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(int, string) {
			u.pages.RemovePage(alertPage)
			u.app.SetFocus(u.textArea)
		})
	u.pages.AddPage(alertPage, modal, false, true)
	u.app.SetFocus(modal)
}

func (u *UI) toggleDebugConsole() {
	if u.debugShown {
		u.mainFlex.RemoveItem(u.debugConsole)
		fmt.Fprintf(u.textView, "\nDebug console disabled\n")
	} else {
		u.mainFlex.AddItem(u.debugConsole, 0, 1, false)
		fmt.Fprintf(u.textView, "\nDebug console enabled\n")
	}
	u.debugShown = !u.debugShown
}

func (u *UI) quit() {
	fmt.Fprintf(u.textView, "Bye bye\n")
	u.cancel()
}

const helpText = "\n[green::]Bot:[-]\n" +
	"Here are some commands you can use:\n" +
	"- /help: Display this help message\n" +
	"- /upload <path>: Load a CSV of your spending habits into the input\n" +
	"- /debug: Toggle the debug console\n" +
	"- /bye: Exit the application\n\n"

// parseCommand splits a slash command from its argument. Plain text yields "".
func parseCommand(content string) (string, string) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "/") {
		return "", ""
	}
	name, arg, _ := strings.Cut(content, " ")
	switch name {
	case "/help", "/bye", "/quit", "/exit", "/debug", "/upload":
		return name, strings.TrimSpace(arg)
	}
	return "", ""
}

func formatMessage(msg conversation.Message) string {
	label := "[green::]Bot:[-]"
	if msg.Sender == conversation.User {
		label = "[red::]You:[-]"
	}
	return fmt.Sprintf("%s\n[\"%s\"]%s[\"\"]\n\n", label, msg.ID, tview.Escape(msg.Text))
}

func uploadNotice(err error) string {
	switch {
	case errors.Is(err, upload.ErrUnsupportedFileType):
		return "Please upload a valid CSV file."
	case errors.Is(err, prompt.ErrEmptyFile):
		return "The CSV file is empty."
	default:
		return "Could not read the file.\n\n" + err.Error()
	}
}
