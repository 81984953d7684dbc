package main

import (
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sync"
	"syscall"
	"time"

	"murmur/audio"
	"murmur/clipboard"
	"murmur/config"
	"murmur/hotkey"
	"murmur/log"
	"murmur/rewrite"
	"murmur/session"
	"murmur/transcriber"
	"murmur/tray"
	"murmur/typist"
)

var version = "dev"

var shutdownOnce sync.Once

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		log.Close()
		tray.Quit()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func deviceLineText(name string) string {
	suffix := ""
	if audio.IsBluetooth(name) {
		suffix = " (BT!)"
	}
	return "mic: " + name + suffix
}

func modeLineText(mode session.Mode, format string, trans transcriber.Transcriber) string {
	return fmt.Sprintf("[%s | %s | %s (%s)]", mode, format, trans.Name(), trans.GetLanguage())
}

func run() {
	configFlag := flag.String("config", "", "Config file path (default: OS config dir)")
	langFlag := flag.String("lang", "", "Transcription language: auto, ru, en, pl, de, es")
	holdDelayFlag := flag.Duration("holddelay", 0, "Hold threshold before recording arms (e.g. 350ms)")
	modeFlag := flag.String("mode", "", "Output mode: raw or smart")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	formatFlag := flag.String("format", "", "Upload format: flac or wav")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	profileFlag := flag.String("profile", "", "Enable pprof server (e.g. localhost:6060)")
	testFlag := flag.Bool("test", false, "Test mode (headless, stdin-driven)")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	cfgPath := *configFlag
	if cfgPath == "" {
		if p, err := config.DefaultPath(); err == nil {
			cfgPath = p
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags override the file.
	if *langFlag != "" {
		cfg.Language = *langFlag
	}
	if *holdDelayFlag > 0 {
		cfg.HoldDelayMS = int(holdDelayFlag.Milliseconds())
	}
	if *modeFlag != "" {
		cfg.Mode = *modeFlag
	}
	if *deviceFlag != "" {
		cfg.Device = *deviceFlag
	}
	if *formatFlag != "" {
		cfg.Format = *formatFlag
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	mode, _ := session.ParseMode(cfg.Mode)

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	trans, err := transcriber.NewWhisper(transcriber.WhisperConfig{
		Endpoint: cfg.Transcribe.Endpoint,
		Model:    cfg.Transcribe.Model,
		APIKey:   os.Getenv("MURMUR_API_KEY"),
		Format:   cfg.Format,
		Language: cfg.Language,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var rw rewrite.Rewriter
	if key := os.Getenv("MURMUR_REWRITE_API_KEY"); key != "" {
		r, err := rewrite.NewOpenAI(rewrite.OpenAIConfig{
			APIKey:      key,
			BaseURL:     cfg.Rewrite.BaseURL,
			Model:       cfg.Rewrite.Model,
			Temperature: cfg.Rewrite.Temperature,
			TopP:        cfg.Rewrite.TopP,
			MaxTokens:   cfg.Rewrite.MaxTokens,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		rw = r
	} else if mode == session.ModeSmart {
		fmt.Fprintln(os.Stderr, "Warning: MURMUR_REWRITE_API_KEY not set, smart mode falls back to raw")
		mode = session.ModeRaw
	}

	log.SessionStart(trans.Name(), mode.String(), cfg.Language)

	if *testFlag {
		args := flag.Args()
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Usage: murmur -test <wav-file>")
			os.Exit(1)
		}
		runTestMode(args[0], cfg, mode, trans, rw)
		return
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if cfg.Device != "" {
		selectedDevice, err = audio.DeviceByName(ctx, cfg.Device)
		if err != nil {
			log.Warnf("device lookup failed: %v", err)
			selectedDevice = nil
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	capture, err := ctx.NewCapture(selectedDevice, audio.DefaultConfig())
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	recorder := audio.NewRecorder(capture, func(level float64) {
		sendTUI(AudioLevelMsg{Level: level})
	})

	if *tuiFlag {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()
		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
			gracefulShutdown()
		}()
	}

	var tickStop chan struct{}
	orch := session.New(recorder, trans, rw, typist.New(), session.Hooks{
		OverlayShow: func() {
			log.Info("recording_device: " + recorder.DeviceName())
			sendTUI(RecordingStartMsg{})
			tray.SetRecording(true)
			tickStop = make(chan struct{})
			go recordingTicker(tickStop)
		},
		OverlayHide: func() {
			close(tickStop)
			sendTUI(RecordingStopMsg{})
			sendTUI(StageMsg{Text: "transcribing"})
			tray.SetRecording(false)
		},
		OnRewrite: func() {
			sendTUI(StageMsg{Text: "rewriting"})
		},
		OnTranscript: func(text string) {
			sendTUI(TranscriptionMsg{Text: text})
			tray.SetLastTranscript(text)
		},
		OnError: func(stage string, err error) {
			sendTUI(ErrorMsg{Text: stage + ": " + err.Error()})
			tray.SetError(err.Error())
		},
	})
	orch.SetMode(mode)

	refreshModeLine := func() {
		sendTUI(ModeLineMsg{Text: modeLineText(orch.Mode(), cfg.Format, trans)})
	}

	// Tray callbacks arrive on per-item goroutines, so settings changes
	// are persisted under a lock.
	var cfgMu sync.Mutex
	persist := func(mutate func(*config.Config)) {
		if cfgPath == "" {
			return
		}
		cfgMu.Lock()
		mutate(&cfg)
		snapshot := cfg
		cfgMu.Unlock()
		if err := config.Save(cfgPath, snapshot); err != nil {
			log.Warnf("saving config: %v", err)
		}
	}

	trayQuit := tray.Init(orch.Mode().String(), trans.GetLanguage(), tray.Callbacks{
		OnMode: func(name string) {
			if m, err := session.ParseMode(name); err == nil {
				if m == session.ModeSmart && rw == nil {
					tray.SetError("smart mode needs MURMUR_REWRITE_API_KEY")
					tray.SetMode("raw")
					return
				}
				orch.SetMode(m)
				persist(func(c *config.Config) { c.Mode = m.String() })
				refreshModeLine()
			}
		},
		OnLanguage: func(code string) {
			trans.SetLanguage(code)
			persist(func(c *config.Config) { c.Language = code })
			refreshModeLine()
		},
		OnCopyLast: func() {
			if text := orch.LastTranscript(); text != "" {
				if err := clipboard.Copy(text); err == nil {
					sendTUI(TranscriptionMsg{Text: text, Copied: true})
				}
			}
		},
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Fprintf(os.Stderr, "Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	deb := hotkey.NewDebouncer(hk, time.Duration(cfg.HoldDelayMS)*time.Millisecond)
	defer deb.Close()

	refreshModeLine()
	sendTUI(DeviceLineMsg{Text: deviceLineText(recorder.DeviceName())})

	for {
		select {
		case <-deb.Armed():
			trans.Warm()
			orch.Arm()
		case <-deb.Released():
			orch.Release()
		case <-sigChan:
			gracefulShutdown()
		case <-trayQuit:
			gracefulShutdown()
		}
	}
}

func recordingTicker(stop <-chan struct{}) {
	start := time.Now()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sendTUI(RecordingTickMsg{Duration: time.Since(start).Seconds()})
		case <-stop:
			return
		}
	}
}
