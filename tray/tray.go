// Package tray is murmur's status item: mode switch, language menu,
// copy-last and quit. State flows in through setters, user actions flow
// out through Callbacks.
package tray

import (
	"sync"
	"time"

	"fyne.io/systray"
)

type Language struct {
	Code  string
	Label string
}

// Languages offered in the menu, matching what the transcription
// backend accepts.
var Languages = []Language{
	{"auto", "Auto-detect"},
	{"ru", "Russian"},
	{"en", "English"},
	{"pl", "Polish"},
	{"de", "German"},
	{"es", "Spanish"},
}

type Callbacks struct {
	OnMode     func(mode string) // "raw" or "smart"
	OnLanguage func(code string)
	OnCopyLast func()
}

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	mRaw      *systray.MenuItem
	mSmart    *systray.MenuItem
	mCopy     *systray.MenuItem
	langItems []*systray.MenuItem

	stateMu   sync.Mutex
	callbacks Callbacks
	startMode string
	startLang string
)

// Init starts the tray loop and returns a channel closed on Quit. The
// systray backend owns its own thread; menu callbacks arrive on tray
// goroutines.
func Init(mode, language string, cb Callbacks) <-chan struct{} {
	stateMu.Lock()
	callbacks = cb
	startMode = mode
	startLang = language
	stateMu.Unlock()

	go systray.Run(onReady, nil)
	return quitCh
}

func Quit() {
	closeOnce.Do(func() {
		close(quitCh)
		systray.Quit()
	})
}

func onReady() {
	stateMu.Lock()
	cb := callbacks
	mode := startMode
	lang := startLang
	stateMu.Unlock()

	systray.SetTemplateIcon(iconIdle, iconIdle)
	systray.SetTooltip("murmur – push to talk")

	mRaw = systray.AddMenuItemCheckbox("Raw mode", "Type the transcript as-is", mode == "raw")
	mSmart = systray.AddMenuItemCheckbox("Smart mode", "Clean up the transcript before typing", mode == "smart")
	systray.AddSeparator()

	mLanguage := systray.AddMenuItem("Language", "Transcription language")
	for _, l := range Languages {
		item := mLanguage.AddSubMenuItemCheckbox(l.Label, l.Label, l.Code == lang)
		langItems = append(langItems, item)
		go watchLanguage(item, l.Code, cb)
	}
	systray.AddSeparator()

	mCopy = systray.AddMenuItem("Copy Last Text", "Copy the last transcript to the clipboard")
	mCopy.Disable()
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Quit murmur")

	go func() {
		for {
			select {
			case <-mRaw.ClickedCh:
				setModeChecked("raw")
				if cb.OnMode != nil {
					cb.OnMode("raw")
				}
			case <-mSmart.ClickedCh:
				setModeChecked("smart")
				if cb.OnMode != nil {
					cb.OnMode("smart")
				}
			case <-mCopy.ClickedCh:
				if cb.OnCopyLast != nil {
					cb.OnCopyLast()
				}
			case <-mQuit.ClickedCh:
				Quit()
				return
			case <-quitCh:
				return
			}
		}
	}()
}

func watchLanguage(item *systray.MenuItem, code string, cb Callbacks) {
	for {
		select {
		case <-item.ClickedCh:
			for _, it := range langItems {
				it.Uncheck()
			}
			item.Check()
			if cb.OnLanguage != nil {
				cb.OnLanguage(code)
			}
		case <-quitCh:
			return
		}
	}
}

func setModeChecked(mode string) {
	if mRaw == nil || mSmart == nil {
		return
	}
	if mode == "smart" {
		mRaw.Uncheck()
		mSmart.Check()
	} else {
		mRaw.Check()
		mSmart.Uncheck()
	}
}

// SetMode reflects a mode change made elsewhere (flag, config).
func SetMode(mode string) {
	setModeChecked(mode)
}

func SetRecording(rec bool) {
	if rec {
		systray.SetIcon(iconRec)
	} else {
		systray.SetTemplateIcon(iconIdle, iconIdle)
	}
}

// SetLastTranscript enables the copy item and shows a preview.
func SetLastTranscript(text string) {
	if mCopy == nil {
		return
	}
	preview := text
	if len(preview) > 32 {
		preview = preview[:32] + "…"
	}
	mCopy.SetTitle("Copy Last Text (" + preview + ")")
	mCopy.Enable()
}

func SetError(msg string) {
	systray.SetTooltip("murmur – " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		systray.SetTooltip("murmur – push to talk")
	}()
}
