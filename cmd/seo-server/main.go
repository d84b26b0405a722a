package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AraikT/mcp-seo/internal/config"
	"github.com/AraikT/mcp-seo/internal/papers"
	"github.com/AraikT/mcp-seo/internal/server"
)

func main() {
	transportFlag := flag.String("transport", "", "MCP transport: \"stdio\" or \"http\" (overrides MCP_SERVER_TRANSPORT)")
	listenAddr := flag.String("listen", "", "address to listen on when -transport=http (default 127.0.0.1:<MCP_SERVER_PORT>)")
	papersDir := flag.String("papers", "", "paper index directory (default \"papers\")")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	config.LoadEnv()

	env, err := config.ServerFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *transportFlag != "" {
		transport, err := config.NormalizeTransport(*transportFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
			os.Exit(1)
		}
		env.Transport = transport
	}
	if *papersDir != "" {
		env.PapersDir = *papersDir
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	// stdout carries the stdio transport, so logs go to stderr.
	lg := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(papers.NewStore(env.PapersDir), lg)

	switch env.Transport {
	case config.TransportHTTP:
		addr := *listenAddr
		if addr == "" {
			addr = fmt.Sprintf("127.0.0.1:%d", env.Port)
		}
		err = srv.ServeHTTP(ctx, addr)
	default:
		err = srv.ServeStdio(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
