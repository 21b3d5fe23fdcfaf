package main

import (
	"fmt"
	"os"

	"github.com/opsloop/queuectl/cmd"
	"github.com/opsloop/queuectl/internal/admin"
	"github.com/opsloop/queuectl/internal/config"
	"github.com/opsloop/queuectl/internal/logging"
	"github.com/opsloop/queuectl/internal/store"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "data dir:", err)
		os.Exit(2)
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "log dir:", err)
		os.Exit(2)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		fmt.Fprintln(os.Stderr, "store:", err)
		os.Exit(2)
	}
	defer st.Close()

	logger := logging.Init("cli")
	app := &cmd.App{
		Cfg:    cfg,
		Store:  st,
		Admin:  admin.New(st, cfg.LogDir, cfg.LivenessPath),
		Logger: logger,
	}
	cmd.Execute(app)
}
