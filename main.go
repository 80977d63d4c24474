package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"fyne.io/fyne/v2/app"

	"ImageRenUtil/internal/messages"
	"ImageRenUtil/internal/settings"
)

func main() {
	dir := flag.String("dir", "", "folder to open on launch")
	lang := flag.String("lang", "", "UI language (en, zh); defaults to the system locale")
	verbose := flag.Bool("v", false, "log every renamed file")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var langs []string
	if *lang != "" {
		langs = append(langs, *lang)
	}
	msgs, err := messages.New(langs...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load translations:", err)
		os.Exit(1)
	}

	store, err := settings.NewFileStore()
	if err != nil {
		logger.Warn("settings will not be saved", "err", err)
		store = nil
	}

	a := app.NewWithID("com.blackarck.imagerenamer")
	ui := newRenamerUI(a, msgs, store, logger)
	if *dir != "" {
		ui.loadFolder(*dir)
	}

	ui.window.ShowAndRun()
	ui.stopWatch()
}
