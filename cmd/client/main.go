// Command client is a terminal notification watcher. It syncs the unread
// feed over HTTP, keeps a live WebSocket subscription, and lets the user mark
// notifications read by id from stdin.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/gamefrenza/AI-Legal-Agent/internal/client"
	"github.com/gamefrenza/AI-Legal-Agent/internal/engine"
	"github.com/gamefrenza/AI-Legal-Agent/internal/model"
	"github.com/gamefrenza/AI-Legal-Agent/internal/severity"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/config"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/logger"
	"github.com/gamefrenza/AI-Legal-Agent/pkg/util"
)

var (
	idStyle   = lipgloss.NewStyle().Faint(true)
	timeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	readStyle = lipgloss.NewStyle().Strikethrough(true).Faint(true)
)

func render(n model.Notification) string {
	route := severity.Classify(n)

	label := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(route.Color)).
		Render(fmt.Sprintf("[%s]", strings.ToUpper(string(n.Severity))))

	line := fmt.Sprintf("%s %s %s %s",
		timeStyle.Render(n.Timestamp.Format("15:04:05")),
		label,
		n.Message,
		idStyle.Render("("+n.ID+")"),
	)
	if n.Read {
		line = readStyle.Render(line)
	}
	if route.Target != "" {
		line += idStyle.Render(" -> " + route.Target)
	}
	return line
}

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	baseURL := config.GetEnv("SERVER_URL", "http://localhost:8086")
	wsURL := config.GetEnv("WS_URL", "ws://localhost:8086/ws/notifications")
	token := config.GetEnv("TOKEN", "")
	if token == "" {
		recipientID := config.GetEnv("RECIPIENT_ID", "")
		secret := config.GetEnv("JWT_SECRET", "")
		if recipientID == "" || secret == "" {
			fmt.Fprintln(os.Stderr, "set TOKEN, or RECIPIENT_ID and JWT_SECRET")
			os.Exit(1)
		}
		var err error
		token, err = util.GenerateJWT(recipientID, util.ScopeRecipient, secret)
		if err != nil {
			log.Fatal("Failed to generate token", zap.Error(err))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remote := client.NewHTTPStore(baseURL, token, log)
	eng := engine.New(remote, log, engine.Config{
		OnStale: func(err error) {
			fmt.Println(readStyle.Render("feed may be stale: " + err.Error()))
		},
		OnNotification: func(n model.Notification) {
			fmt.Println(render(n))
		},
	})
	defer eng.Close()

	if err := eng.Start(ctx); err != nil {
		log.Fatal("Initial sync failed", zap.Error(err))
	}

	fmt.Printf("%d unread. Type a notification id to mark it read.\n", eng.UnreadCount())

	listener := client.NewWSListener(wsURL, baseURL, token, eng, log)
	go listener.Run(ctx)

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			id := strings.TrimSpace(scanner.Text())
			if id == "" {
				continue
			}
			if err := eng.MarkAsRead(ctx, id); err != nil {
				fmt.Println(readStyle.Render("mark read failed: " + err.Error()))
				continue
			}
			fmt.Printf("read. %d unread remain.\n", eng.UnreadCount())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	fmt.Println("bye")
}
