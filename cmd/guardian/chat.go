package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"guardian/internal/bus"
	"guardian/internal/config"
	"guardian/internal/domain"
	"guardian/internal/history"
	"guardian/internal/metrics"
	"guardian/internal/playback"
	"guardian/internal/profile"
	"guardian/internal/remote"
	"guardian/internal/session"
	"guardian/internal/voice"

	"github.com/spf13/cobra"
)

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	// Graceful shutdown on signals; the teardown path below must still run.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := bus.NewEventBus(logger)

	chatClient := remote.NewChatClient(remote.ChatConfig{
		APIBase: cfg.Service.BaseURL,
		APIKey:  cfg.Service.APIKey,
		Logger:  logger,
	})
	convClient := remote.NewConversationClient(remote.ConversationConfig{
		APIBase: cfg.Service.BaseURL,
		APIKey:  cfg.Service.APIKey,
		Logger:  logger,
	})
	summaryClient := remote.NewSummaryClient(remote.SummaryConfig{
		APIBase: cfg.Service.BaseURL,
		APIKey:  cfg.Service.APIKey,
		Logger:  logger,
	})

	var archiver session.Archiver
	if cfg.History.Enabled {
		store, err := history.NewSQLiteStore(cfg.History.DBPath, logger)
		if err != nil {
			return fmt.Errorf("history store: %w", err)
		}
		defer store.Close()
		archiver = store
	}

	ctrl := session.NewController(session.Config{
		Streamer:      chatClient,
		Conversations: convClient,
		Summarizer:    summaryClient,
		Beacon:        summaryClient,
		Archiver:      archiver,
		Events:        events,
		IdleWindow:    cfg.Session.IdleWindow(),
		Logger:        logger,
	})

	var catalog *profile.Catalog
	var relay *voice.Relay
	var player *playback.Controller
	if cfg.Voice.Enabled {
		var err error
		catalog, err = profile.NewCatalog(cfg.Voice.ProfileDir, logger)
		if err != nil {
			return fmt.Errorf("voice profiles: %w", err)
		}
		go func() {
			if err := catalog.Watch(ctx); err != nil {
				logger.Warn("profile watcher stopped", "err", err)
			}
		}()

		relay = voice.NewRelay(voice.Config{
			Device: voice.NewPortAudioDevice(logger),
			Transcriber: remote.NewTranscribeClient(remote.TranscribeConfig{
				APIBase: cfg.Service.BaseURL,
				APIKey:  cfg.Service.APIKey,
				Logger:  logger,
			}),
			Submit: func(ctx context.Context, text string) error {
				printPrompt(text)
				return sendTurn(ctx, ctrl, text, true)
			},
			Logger: logger,
		})
		player = playback.NewController(playback.Config{
			Synthesizer: remote.NewSpeechClient(remote.SpeechConfig{
				APIBase: cfg.Service.BaseURL,
				APIKey:  cfg.Service.APIKey,
				Logger:  logger,
			}),
			Output: playback.NewPortAudioOutput(logger),
			Logger: logger,
		})
	}

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.HandleFunc("/metrics", metrics.Collector.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
				logger.Warn("metrics server stopped", "err", err)
			}
		}()
		logger.Info("metrics exposed", "addr", cfg.Metrics.Addr)
	}

	wireRendering(events)

	fmt.Printf("guardian %s - type a message, /help for commands\n", version)
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			// Process teardown: fire the summary beacon, never wait on it.
			fmt.Println()
			ctrl.Teardown()
			return nil

		case line, ok := <-lines:
			if !ok {
				ctrl.Close()
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "/") {
				if quit := handleCommand(ctx, line, cfg, ctrl, relay, player, catalog, events); quit {
					ctrl.Close()
					return nil
				}
				continue
			}
			if err := sendTurn(ctx, ctrl, line, false); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
}

func sendTurn(ctx context.Context, ctrl *session.Controller, text string, voiceOrigin bool) error {
	err := ctrl.Send(ctx, text, voiceOrigin)
	if session.IsStreamBusy(err) {
		return fmt.Errorf("a response is still streaming, wait for it to finish")
	}
	return err
}

func printPrompt(text string) {
	fmt.Printf("(you, voice) %s\n", text)
}

// wireRendering prints streamed output as it arrives. Chunks render
// incrementally; the session events carry everything the terminal needs.
func wireRendering(events *bus.EventBus) {
	events.On(bus.EventStreamChunk, func(e bus.Event) {
		if content, ok := e.Payload["content"].(string); ok {
			fmt.Print(content)
		}
	})
	events.On(bus.EventStreamDone, func(e bus.Event) {
		fmt.Println()
	})
	events.On(bus.EventStreamFailed, func(e bus.Event) {
		if partial, _ := e.Payload["partial"].(bool); partial {
			fmt.Println("\n[response interrupted]")
		} else {
			fmt.Println("[no response received]")
		}
	})
	events.On(bus.EventClosureNotice, func(e bus.Event) {
		fmt.Println("This session has reached a natural close. Feel free to start a new conversation.")
	})
}

func handleCommand(ctx context.Context, line string, cfg *config.Config, ctrl *session.Controller, relay *voice.Relay, player *playback.Controller, catalog *profile.Catalog, events *bus.EventBus) bool {
	switch line {
	case "/help":
		fmt.Println(`Commands:
  /rec     start voice recording
  /stop    stop recording, transcribe, and send
  /say     speak the last reply (again to stop)
  /mute    stop any playback
  /voices  list voice profiles
  /id      show conversation id
  /quit    end the session`)

	case "/rec":
		if relay == nil {
			fmt.Println("voice is disabled in config")
			return false
		}
		if err := relay.StartRecording(); err != nil {
			if errors.Is(err, domain.ErrDeviceUnavailable) {
				fmt.Println("microphone unavailable")
			} else {
				fmt.Printf("error: %v\n", err)
			}
			return false
		}
		events.Emit(bus.Event{Type: bus.EventRecordingState, Source: "chat", Payload: map[string]any{"recording": true}})
		fmt.Println("recording... /stop to send")

	case "/stop":
		if relay == nil {
			fmt.Println("voice is disabled in config")
			return false
		}
		events.Emit(bus.Event{Type: bus.EventRecordingState, Source: "chat", Payload: map[string]any{"recording": false}})
		if err := relay.StopAndSubmit(ctx); err != nil {
			fmt.Printf("error: %v\n", err)
		}

	case "/say":
		if player == nil {
			fmt.Println("voice is disabled in config")
			return false
		}
		id, text := lastAssistantTurn(ctrl)
		if id == "" {
			fmt.Println("nothing to speak yet")
			return false
		}
		voiceName := catalog.Resolve(cfg.Voice.Profile).Voice
		if err := player.Toggle(ctx, id, text, voiceName); err != nil {
			fmt.Printf("error: %v\n", err)
			return false
		}
		if player.Phase() == playback.PhaseIdle {
			events.Emit(bus.Event{Type: bus.EventPlaybackStopped, Source: "chat", Payload: map[string]any{"message_id": id}})
		} else {
			events.Emit(bus.Event{Type: bus.EventPlaybackStarted, Source: "chat", Payload: map[string]any{"message_id": id}})
		}

	case "/mute":
		if player != nil {
			player.Stop()
			events.Emit(bus.Event{Type: bus.EventPlaybackStopped, Source: "chat"})
		}

	case "/voices":
		if catalog == nil {
			fmt.Println("voice is disabled in config")
			return false
		}
		for _, slug := range catalog.Slugs() {
			fmt.Println(" ", slug)
		}

	case "/id":
		id := ctrl.ConversationID()
		if id == "" {
			fmt.Println("no conversation yet")
		} else {
			fmt.Println(id)
		}

	case "/quit", "/exit":
		return true

	default:
		fmt.Printf("unknown command %s, try /help\n", line)
	}
	return false
}

func lastAssistantTurn(ctrl *session.Controller) (id, text string) {
	msgs := ctrl.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == domain.RoleAssistant && msgs[i].Text != "" {
			return msgs[i].ID, msgs[i].Text
		}
	}
	return "", ""
}
