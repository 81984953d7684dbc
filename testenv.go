package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"murmur/audio"
	"murmur/config"
	"murmur/hotkey"
	"murmur/log"
	"murmur/rewrite"
	"murmur/session"
	"murmur/transcriber"
	"murmur/typist"
)

// runTestMode drives the full pipeline headlessly: a WAV file replayed
// through a fake capture device, key events scripted over stdin.
func runTestMode(wavPath string, cfg config.Config, mode session.Mode, trans transcriber.Transcriber, rw rewrite.Rewriter) {
	defer log.Close()

	fakeCtx, err := audio.NewFakeContext(wavPath, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading WAV: %v\n", err)
		os.Exit(1)
	}

	capture, err := fakeCtx.NewCapture(nil, audio.DefaultConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating capture: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	fakeCapture := capture.(*audio.FakeCapture)
	recorder := audio.NewRecorder(capture, nil)

	orch := session.New(recorder, trans, rw, typist.New(), session.Hooks{
		OnError: func(stage string, err error) {
			fmt.Fprintf(os.Stderr, "Error %s: %v\n", stage, err)
		},
	})
	orch.SetMode(mode)

	hk := hotkey.NewFake()
	deb := hotkey.NewDebouncer(hk, time.Duration(cfg.HoldDelayMS)*time.Millisecond)
	defer deb.Close()

	recordingDone := make(chan struct{}, 1)
	utterances := 0

	// Stdin driver in background: key events plus WAIT/SLEEP/QUIT.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			cmd := strings.TrimSpace(scanner.Text())
			switch cmd {
			case "KEYDOWN":
				hk.SimKeydown()
			case "KEYUP":
				hk.SimKeyup()
			case "WAIT":
				<-recordingDone
			case "WAIT_AUDIO_DONE":
				<-fakeCapture.AudioDone()
			case "QUIT":
				log.SessionEnd(utterances)
				os.Exit(0)
			default:
				if strings.HasPrefix(cmd, "SLEEP ") {
					if ms, err := strconv.Atoi(cmd[6:]); err == nil {
						time.Sleep(time.Duration(ms) * time.Millisecond)
					}
				}
			}
		}
		os.Exit(0)
	}()

	for {
		select {
		case <-deb.Armed():
			orch.Arm()
		case <-deb.Released():
			orch.Release()
			orch.Wait()
			utterances++
			select {
			case recordingDone <- struct{}{}:
			default:
			}
		}
	}
}
