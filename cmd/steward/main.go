package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"steward/internal/api"
	"steward/internal/client"
	"steward/internal/config"
	"steward/internal/journal"
	"steward/internal/state"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	var err error
	switch os.Args[1] {
	case "sessions":
		err = runSessions(cfg)
	case "create":
		err = runCreate(cfg, os.Args[2:])
	case "watch":
		err = runWatch(cfg, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Printf("steward: %v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  steward sessions                 list sessions
  steward create --title <title>   create a session
  steward watch <session-id>       attach to a session and tail its events`)
}

func runSessions(cfg config.Config) error {
	c := api.New(cfg.ServerBaseURL, cfg.AuthToken, cfg.RequestTimeout)
	items, err := c.ListSessions(context.Background())
	if err != nil {
		return err
	}
	for _, s := range items {
		fmt.Printf("%s\t%s\t%s\n", s.ID, s.Status, s.Title)
	}
	return nil
}

func runCreate(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	title := fs.String("title", "", "session title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c := api.New(cfg.ServerBaseURL, cfg.AuthToken, cfg.RequestTimeout)
	sess, err := c.CreateSession(context.Background(), api.CreateSessionRequest{Title: *title})
	if err != nil {
		return err
	}
	fmt.Println(sess.ID)
	return nil
}

func runWatch(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	noJournal := fs.Bool("no-journal", false, "disable the local frame journal")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("watch expects exactly one session id")
	}
	sessionID := fs.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.NewStore(cfg.SnapshotCacheSize)

	apiClient := api.New(cfg.ServerBaseURL, cfg.AuthToken, cfg.RequestTimeout)
	if sess, err := apiClient.GetSession(ctx, sessionID); err == nil {
		store.SetCurrentSession(state.Session{
			ID:        sess.ID,
			Title:     sess.Title,
			Status:    sess.Status,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	} else {
		store.SetCurrentSession(state.Session{ID: sessionID})
	}

	var recorder client.Recorder
	if cfg.JournalEnabled && !*noJournal {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer j.Close()
		if err := j.Init(ctx); err != nil {
			return fmt.Errorf("init journal: %w", err)
		}
		recorder = j
	}

	c := client.New(client.Config{
		WSBase:      cfg.WSBaseURL,
		AuthToken:   cfg.AuthToken,
		DialTimeout: cfg.DialTimeout,
	}, store, recorder)
	if err := c.Connect(ctx, sessionID); err != nil {
		return err
	}
	defer c.Disconnect()

	changes, unsub := store.Watch()
	defer unsub()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var printedMessages, printedNotices int
	lastStatus := ""
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			// Manual reconnection contract: once the channel drops we report
			// it and exit instead of retrying silently.
			if !c.IsConnected() && !c.IsConnecting() {
				fmt.Println("-- connection closed --")
				return nil
			}
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			snap := store.Snapshot()
			for ; printedMessages < len(snap.Messages); printedMessages++ {
				m := snap.Messages[printedMessages]
				fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04:05"), m.Role, m.Content)
			}
			for ; printedNotices < len(snap.Notices); printedNotices++ {
				fmt.Printf("!! %s\n", snap.Notices[printedNotices].Message)
			}
			status := snap.AgentStatus
			if snap.Streaming {
				status += " (streaming)"
			}
			if status != lastStatus {
				fmt.Printf("-- agent %s --\n", status)
				lastStatus = status
			}
		}
	}
}
