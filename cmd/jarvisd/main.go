// Command jarvisd runs the assistant daemon: it wires the configured model,
// stores and agent into the engine and exposes the websocket gateway plus the
// local control socket.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	cli "github.com/spf13/pflag"

	"github.com/oppositecube/jarvis/agent"
	"github.com/oppositecube/jarvis/artifact"
	"github.com/oppositecube/jarvis/command"
	"github.com/oppositecube/jarvis/config"
	"github.com/oppositecube/jarvis/core"
	"github.com/oppositecube/jarvis/engine"
	"github.com/oppositecube/jarvis/gateway"
	"github.com/oppositecube/jarvis/internal/ipc"
	"github.com/oppositecube/jarvis/logging"
	"github.com/oppositecube/jarvis/memory"
	"github.com/oppositecube/jarvis/model"
	anthropicmodel "github.com/oppositecube/jarvis/model/anthropic"
	openaimodel "github.com/oppositecube/jarvis/model/openai"
	"github.com/oppositecube/jarvis/session"
)

var logLevelMap = map[string]logging.LogLevel{
	"debug": logging.LogLevelDebug,
	"info":  logging.LogLevelInfo,
	"warn":  logging.LogLevelWarn,
	"error": logging.LogLevelError,
}

func main() {
	cfgPath := cli.StringP("config", "c", "config.yaml", "Config file path")
	securePath := cli.StringP("secure-config", "s", "secure_config.yaml", "Secure config file path (credentials)")
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "", "Log level override (debug, info, warn, error)")
	cli.Parse()

	godotenv.Load(*envFile)

	// The default config files are optional; an explicit path is not.
	if !cli.CommandLine.Changed("config") && !fileExists(*cfgPath) {
		*cfgPath = ""
	}
	if !cli.CommandLine.Changed("secure-config") && !fileExists(*securePath) {
		*securePath = ""
	}

	cfg, err := config.Load(*cfgPath, *securePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "jarvisd:", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:     logLevelMap[cfg.Log.Level],
		Format:    cfg.Log.Format,
		Output:    os.Stdout,
		Component: "jarvisd",
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("jarvisd.failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *logging.JarvisLogger) error {
	logger.Info("jarvisd.booting", "assistant", cfg.Assistant.Name, "provider", cfg.Model.Provider)

	sessionStore, closeSessions, err := buildSessionStore(cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	memoryStore, err := buildMemoryStore(cfg)
	if err != nil {
		return err
	}

	artifactStore, err := buildArtifactStore(cfg)
	if err != nil {
		return err
	}

	llm, err := buildModel(cfg)
	if err != nil {
		return err
	}

	assistant, err := buildAssistant(cfg, llm)
	if err != nil {
		return err
	}

	e := engine.New(func(o *engine.Options) {
		o.Config.WakeWord = cfg.Assistant.WakeWord
		o.Config.AwakeTurns = cfg.Assistant.AwakeTurns
		o.Config.MaxModelCalls = cfg.Model.MaxCalls
		o.SessionStore = sessionStore
		o.MemoryStore = memoryStore
		o.ArtifactStore = artifactStore
		o.Logger = logger
	})
	e.Register(assistant)

	if cfg.Gateway.Addr != "" {
		gw := gateway.NewServer(e, func(o *gateway.Options) {
			o.AgentName = cfg.Assistant.Name
			o.Logger = logger
		})
		if err := gw.Start(cfg.Gateway.Addr); err != nil {
			return fmt.Errorf("start gateway: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			gw.Shutdown(ctx)
		}()
	}

	shutdownCh := make(chan struct{}, 1)
	if cfg.IPC.Socket != "" {
		ctl := ipc.NewServer(cfg.IPC.Socket)
		if err := ctl.Start(controlHandler(e, cfg.Assistant.Name, logger, shutdownCh)); err != nil {
			return fmt.Errorf("start control socket: %w", err)
		}
		defer ctl.Close()
		logger.Info("jarvisd.control.listening", "socket", cfg.IPC.Socket)
	}

	logger.Info("jarvisd.ready")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("jarvisd.signal.received")
	case <-shutdownCh:
		logger.Info("jarvisd.shutdown.requested")
	}

	return nil
}

// controlHandler serves the local control socket commands.
func controlHandler(e *engine.Engine, agentName string, logger *logging.JarvisLogger, shutdownCh chan struct{}) ipc.Handler {
	start := time.Now()

	return func(msg ipc.ControlMessage) ipc.Response {
		switch msg.Cmd {
		case ipc.CmdSay:
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			_, events, err := e.DispatchSync(ctx, "control", agentName, core.NewUserText(msg.Arg))
			if err != nil {
				return ipc.Response{Error: err.Error()}
			}
			return ipc.Response{OK: true, Result: replyText(events)}

		case ipc.CmdStatus:
			return ipc.Response{OK: true, Result: fmt.Sprintf(
				"agent=%s exchanges=%d uptime=%s",
				agentName, e.ShortTerm().Len(), time.Since(start).Round(time.Second),
			)}

		case ipc.CmdShutdown:
			select {
			case shutdownCh <- struct{}{}:
			default:
			}
			return ipc.Response{OK: true, Result: "shutting down"}

		default:
			logger.Warn("jarvisd.control.unknown_command", "cmd", msg.Cmd)
			return ipc.Response{Error: fmt.Sprintf("unknown command %q", msg.Cmd)}
		}
	}
}

func buildSessionStore(cfg *config.Config) (core.SessionStore, func(), error) {
	if cfg.Stores.SessionDSN == "" {
		return session.NewInMemoryStore(), func() {}, nil
	}
	store, err := session.NewSQLiteStore(cfg.Stores.SessionDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open session store: %w", err)
	}
	return store, func() { store.Close() }, nil
}

func buildMemoryStore(cfg *config.Config) (core.MemoryStore, error) {
	if cfg.Stores.MemoryFile == "" {
		return memory.NewInMemoryStore(), nil
	}
	store, err := memory.NewFileStore(cfg.Stores.MemoryFile)
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}
	return store, nil
}

func buildArtifactStore(cfg *config.Config) (core.ArtifactStore, error) {
	if cfg.Stores.ArtifactDir == "" {
		return artifact.NewInMemoryStore(), nil
	}
	store, err := artifact.NewFSStore(cfg.Stores.ArtifactDir)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}
	return store, nil
}

func buildModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Model.Provider {
	case "openai":
		client := openaisdk.NewClient(option.WithAPIKey(cfg.Model.APIKey))
		return openaimodel.NewModelFromClient(&client, func(o *openaimodel.Options) {
			if cfg.Model.Name != "" {
				o.Model = cfg.Model.Name
			}
		}), nil

	case "anthropic":
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.APIKey = cfg.Model.APIKey
			if cfg.Model.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Model.Name)
			}
		}), nil

	case "mock":
		return model.NewMockModel("mock", "mock"), nil

	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

func buildAssistant(cfg *config.Config, llm model.Model) (*agent.Assistant, error) {
	instruction := fmt.Sprintf(
		"You are %s, a concise voice assistant. Address the user as %s. Reply in short spoken sentences.",
		cfg.Assistant.Name, cfg.Assistant.UserName,
	)

	a := agent.NewAssistant(cfg.Assistant.Name, llm, func(o *agent.AssistantOptions) {
		o.Instruction = agent.NewInstructionFromText(instruction)
	})

	err := command.RegisterBuiltins(a.Registry(), func(o *command.BuiltinOptions) {
		if cfg.Assistant.MusicDir != "" {
			o.MusicDir = cfg.Assistant.MusicDir
		}
	})
	if err != nil {
		return nil, fmt.Errorf("register builtin commands: %w", err)
	}

	if err := a.RegisterCommand(command.NewStateManagerCommand()); err != nil {
		return nil, fmt.Errorf("register state manager: %w", err)
	}

	return a, nil
}

// replyText extracts the last complete assistant reply from a dispatch.
func replyText(events []core.Event) string {
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		if ev.Content != nil && ev.Content.Role == "assistant" && ev.IsFinalReply() {
			return ev.Content.Text()
		}
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
