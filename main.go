package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/grahamseamans/miditui/config"
	"github.com/grahamseamans/miditui/daw"
	"github.com/grahamseamans/miditui/logging"
	"github.com/grahamseamans/miditui/theme"
	"github.com/grahamseamans/miditui/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	newFlag := flag.Bool("new", false, "skip autosave restoration and start a fresh project")
	soundfontFlag := flag.String("soundfont", "", "soundfont path to load, overriding any path embedded in the project")
	flag.Parse()

	path := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "miditui: loading config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	if logDir, err := config.Dir(); err == nil {
		if err := logging.Init(filepath.Join(logDir, "miditui.log")); err != nil {
			fmt.Fprintf(os.Stderr, "miditui: logging disabled: %v\n", err)
		}
	}
	defer logging.Sync()

	sf := *soundfontFlag
	if sf == "" {
		sf = cfg.LastSoundFontPath
	}

	th := theme.New(theme.LoadNamed(string(cfg.Theme)))

	app := daw.New(cfg)
	if err := app.LoadOrNew(path, *newFlag, sf); err != nil {
		fmt.Fprintf(os.Stderr, "miditui: %v\n", err)
		return 1
	}

	if sfPath := app.Project().SoundFontPath; sfPath != "" {
		cfg.LastSoundFontPath = sfPath
	}
	if err := cfg.Save(); err != nil {
		logging.For("main").Warnw("saving config failed", "error", err)
	}

	if err := app.StartAudio(); err != nil {
		logging.For("main").Warnw("starting audio stream failed", "error", err)
	}
	app.Start()
	defer app.Shutdown()

	m := tui.NewModel(app, th)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "miditui: %v\n", err)
		return 1
	}
	return 0
}
