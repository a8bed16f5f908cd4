package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	educhainChat "github.com/educhainChat"
	"github.com/educhainChat/chatBox"
	"github.com/educhainChat/chatStore"
	log "github.com/sirupsen/logrus"
)

func main() {
	room := flag.String("room", "", "chat room to open")
	user := flag.String("user", "", "sender id for outgoing messages")
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "-user is required")
		os.Exit(2)
	}

	cfg, err := educhainChat.LoadConfig()
	if err != nil {
		log.Fatalf("loading config: %s", err)
	}
	educhainChat.ConfigureLogging(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := educhainChat.NewApp(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer app.Close()

	box, err := app.ChatBox(chatBox.Options{
		OnMessage: func(m chatStore.Message) { printMessage(m) },
		OnUpdate: func(m chatStore.Message) {
			if !m.IsActive {
				fmt.Printf("* message %s was hidden\n", m.ID)
			}
		},
		OnError: func(err error) { fmt.Fprintf(os.Stderr, "! listener stopped: %s\n", err) },
	})
	if err != nil {
		log.Fatal(err)
	}
	defer box.Close()

	if *room != "" {
		openRoom(ctx, box, *room)
	}

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handle(ctx, box, *user, line); quit {
				return
			}
		}
	}
}

func handle(ctx context.Context, box *chatBox.Box, user, line string) bool {
	command, arg, _ := strings.Cut(strings.TrimSpace(line), " ")

	switch command {
	case "/quit":
		return true
	case "/room":
		openRoom(ctx, box, arg)
	case "/more":
		var older []chatStore.Message
		var err error
		if arg == "" {
			older, err = box.LoadMore(ctx)
		} else {
			older, err = box.LoadMoreFrom(ctx, arg)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "! %s\n", err)
			return false
		}
		if len(older) == 0 {
			fmt.Println("* no older messages")
			return false
		}
		for _, m := range older {
			if m.IsActive {
				printMessage(m)
			}
		}
	case "/cursor":
		cursor, err := box.Cursor()
		if err != nil {
			fmt.Fprintf(os.Stderr, "! %s\n", err)
			return false
		}
		fmt.Printf("* %s\n", cursor)
	case "/hide":
		if err := box.Deactivate(ctx, arg); err != nil {
			fmt.Fprintf(os.Stderr, "! %s\n", err)
		}
	case "/attach":
		name, text, _ := strings.Cut(arg, " ")
		send(ctx, box, user, text, name)
	default:
		send(ctx, box, user, line, "")
	}

	return false
}

func openRoom(ctx context.Context, box *chatBox.Box, room string) {
	if err := box.Open(ctx, room); err != nil {
		fmt.Fprintf(os.Stderr, "! %s\n", err)
		return
	}

	fmt.Printf("* %s\n", room)
	for _, m := range box.Visible() {
		printMessage(m)
	}
}

func send(ctx context.Context, box *chatBox.Box, user, text, attachment string) {
	var files []chatBox.Upload
	if attachment != "" {
		f, err := os.Open(attachment)
		if err != nil {
			fmt.Fprintf(os.Stderr, "! %s\n", err)
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			fmt.Fprintf(os.Stderr, "! %s\n", err)
			return
		}

		files = append(files, chatBox.Upload{
			Name:        filepath.Base(attachment),
			ContentType: mime.TypeByExtension(filepath.Ext(attachment)),
			Size:        info.Size(),
			Body:        f,
		})
	}

	_, err := box.Send(ctx, user, text, files)
	if errors.Is(err, chatBox.ErrEmptyMessage) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "! %s\n", err)
	}
}

func printMessage(m chatStore.Message) {
	fmt.Printf("[%s] %s: %s", m.Timestamp.Local().Format("15:04:05"), m.SenderID, m.Text)
	for _, f := range m.Files {
		fmt.Printf(" <%s %s>", f.Name, f.URL)
	}
	fmt.Println()
}
