package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AraikT/mcp-seo/internal/chat"
	"github.com/AraikT/mcp-seo/internal/config"
	"github.com/AraikT/mcp-seo/internal/history"
	"github.com/AraikT/mcp-seo/internal/registry"
)

func main() {
	settingsPath := flag.String("settings", "chat_settings.yaml", "path to chat settings file")
	serverConfigPath := flag.String("servers", "", "override server config path")
	flag.Parse()

	config.LoadEnv()

	cfg, err := config.LoadChat(*settingsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}
	if *serverConfigPath != "" {
		cfg.ServerConfigPath = *serverConfigPath
	}

	serverCfg, err := config.LoadServerConfig(cfg.ServerConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load server config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := registry.New(func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	reg.ConnectAll(ctx, serverCfg, nil)
	defer reg.Close()

	if len(reg.Tools()) == 0 {
		fmt.Fprintln(os.Stderr, "no tools available: all sub-service connections failed")
		os.Exit(1)
	}

	hist, err := history.Open(cfg.HistoryDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "call history disabled: %v\n", err)
		hist = nil
	} else {
		defer hist.Close()
	}

	llm, err := chat.NewLLM(cfg.Model, cfg.MaxTokens)
	if err != nil {
		fmt.Fprintf(os.Stderr, "LLM queries disabled: %v\n", err)
		llm = nil
	}

	session := chat.New(reg, hist, llm, os.Stdin, os.Stdout)
	if err := session.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "session error: %v\n", err)
		os.Exit(1)
	}
}
