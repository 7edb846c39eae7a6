package main

import (
	"fmt"
	"log"
	"log/slog"

	Md "github.com/maroda/ritornello/display"
	Mo "github.com/maroda/ritornello/obvy"
	"github.com/maroda/ritornello/plugin"
	Mr "github.com/maroda/ritornello/rhythm"
	Mt "github.com/maroda/ritornello/types"
)

const journalBatchSize = 64

func init() {
	User := Mr.FillEnvVar("USER")
	fmt.Printf("Ritornello initializing for ... %s\n", User)
}

func main() {
	// Config file is optional, defaults cover everything
	var cf *Mr.ConfigFile
	if path := Mr.FillEnvVar("RITORNELLO_CONFIG"); path != "ENOENT" {
		loaded, err := Mr.LoadConfigFileName(path)
		if err != nil {
			log.Fatal(err)
		}
		cf = loaded
	}

	set, err := Mr.NewRhythmSetFromConfig(cf)
	if err != nil {
		log.Fatal(err)
	}

	view := Md.NewView(set)

	// Replay the journal into the fresh set before serving,
	// then keep journaling everything new that arrives
	if cf != nil && cf.Journal != "" {
		journal, err := plugin.JournalLookup("badger", cf.Journal, journalBatchSize)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			if err := journal.Close(); err != nil {
				slog.Error("Journal close failed", slog.Any("Error", err))
			}
		}()

		err = journal.Replay(func(ev *Mt.Event) error {
			return set.Add(ev.Timestamp)
		})
		if err != nil {
			log.Fatal(err)
		}
		slog.Info("Journal replayed", slog.Int("timestamps", len(set.Timestamps)))

		view.Journal = journal
	}

	shutdown, err := Mo.InitOTelHNY()
	if err != nil {
		slog.Error("Tracing disabled", slog.Any("Error", err))
	} else {
		defer shutdown()
	}

	listen := ":8090"
	if cf != nil && cf.Listen != "" {
		listen = cf.Listen
	}

	// The terminal renderer is opt-in; the data server always runs
	if Mr.FillEnvVar("RITORNELLO_TTY") == "on" {
		go func() {
			if err := view.StartDataServ(listen); err != nil {
				slog.Error("Data server stopped", slog.Any("Error", err))
			}
		}()
		if err := Md.StartRhythmView(view); err != nil {
			slog.Error("Problem starting RhythmView", slog.Any("Error", err))
			panic("Failed to start rhythm view")
		}
		return
	}

	if err := view.StartDataServ(listen); err != nil {
		log.Fatal(err)
	}
}
