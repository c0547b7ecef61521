/*
Package main is a terminal chat client for CampusConnect, wiring the full
client synchronization stack end to end: login over HTTP, conversation
resolution, the relay socket, the live store watcher, and the merged message
timeline.

Useful for exercising the chat path without a browser:

	chatcli -server http://localhost:8080 -username ada -password secret -peer <teacher-id>
*/
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"campusconnect/internal/app/chat"
	"campusconnect/internal/app/chatsync"
	"campusconnect/internal/app/db"
	"campusconnect/internal/app/user"
	"campusconnect/internal/pkg/logx"
)

type apiEnvelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type loginData struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Role string `json:"role"`
	} `json:"user"`
}

type resolveData struct {
	ConversationID string `json:"conversationId"`
	Peer           struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"peer"`
}

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "portal server base URL")
	dsn := flag.String("db", "", "database DSN for the live message watcher (defaults to DATABASE_URL)")
	username := flag.String("username", "", "account username")
	password := flag.String("password", "", "account password")
	peerID := flag.String("peer", "", "peer user id to chat with")
	flag.Parse()

	logx.InitGlobalLogger(true)

	if *username == "" || *password == "" || *peerID == "" {
		fmt.Fprintln(os.Stderr, "username, password and peer are required")
		flag.Usage()
		os.Exit(1)
	}

	databaseDSN := *dsn
	if databaseDSN == "" {
		databaseDSN = os.Getenv("DATABASE_URL")
	}
	if databaseDSN == "" {
		fmt.Fprintln(os.Stderr, "a database DSN is required (-db or DATABASE_URL)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *serverURL, databaseDSN, *username, *password, *peerID); err != nil {
		logx.Fatal(err, "chatcli failed")
	}
}

func run(ctx context.Context, serverURL, databaseDSN, username, password, peerID string) error {
	token, self, err := login(ctx, serverURL, username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("signed in as %s (%s)\n", self.Name, self.Role)

	conversationID, peerName, err := resolveConversation(ctx, serverURL, token, peerID)
	if err != nil {
		return fmt.Errorf("conversation resolution failed: %w", err)
	}

	fmt.Printf("conversation %s with %s\n", conversationID, peerName)

	pool, err := db.NewPool(databaseDSN)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	queries := db.New(pool)

	watcher := db.NewMessageWatcher(queries)
	go watcher.Run(ctx)

	sock := chatsync.NewWebSocket(relayURL(serverURL, token))

	connManager := chatsync.NewConnManager()

	thread := chatsync.NewThread(self, sock, queries, watcher)
	defer thread.Close()

	thread.OnChange = func(messages []chat.Message) {
		render(os.Stdout, self.ID, peerName, messages, thread.PeerTyping)
	}

	connManager.Establish(sock)
	defer connManager.Teardown(sock)

	// give the single connect attempt a moment; a failure is surfaced, not retried.
	time.Sleep(time.Second)
	if errMsg := connManager.Err(); errMsg != "" {
		fmt.Printf("! %s (messages will be written directly to the store)\n", errMsg)
	}

	if err := thread.Open(ctx, conversationID, peerID); err != nil {
		return fmt.Errorf("failed to open conversation: %w", err)
	}

	// typing events don't mutate the timeline, so poll the indicator and
	// repaint when it flips.
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		var last bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, typing := thread.PeerTyping(); typing != last {
					last = typing
					render(os.Stdout, self.ID, peerName, thread.Messages(), thread.PeerTyping)
				}
			}
		}
	}()

	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			thread.NotifyTyping()

			if err := thread.Send(ctx, line); err != nil {
				fmt.Printf("! send failed: %v\n", err)
			}
		}
	}()

	<-ctx.Done()
	fmt.Println("\nbye")
	return nil
}

// login authenticates against the portal and returns the token and identity.
func login(ctx context.Context, serverURL, username, password string) (string, user.User, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return "", user.User{}, err
	}

	var data loginData
	if err := postJSON(ctx, serverURL+"/api/auth/login", "", body, &data); err != nil {
		return "", user.User{}, err
	}

	return data.Token, user.User{
		ID:   data.User.ID,
		Name: data.User.Name,
		Role: data.User.Role,
	}, nil
}

// resolveConversation asks the portal for the durable conversation id with the peer.
func resolveConversation(ctx context.Context, serverURL, token, peerID string) (string, string, error) {
	body, err := json.Marshal(map[string]string{"peerId": peerID})
	if err != nil {
		return "", "", err
	}

	var data resolveData
	if err := postJSON(ctx, serverURL+"/api/chat/resolve", token, body, &data); err != nil {
		return "", "", err
	}

	return data.ConversationID, data.Peer.Name, nil
}

// postJSON posts a JSON body and decodes the portal's response envelope.
func postJSON(ctx context.Context, endpoint, token string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	var envelope apiEnvelope
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return err
	}

	if envelope.Code != 0 {
		return fmt.Errorf("server error %d: %s", envelope.Code, envelope.Message)
	}

	return json.Unmarshal(envelope.Data, out)
}

// relayURL converts the HTTP base URL into the relay's ws endpoint with the
// token query parameter.
func relayURL(serverURL, token string) string {
	wsBase := strings.Replace(serverURL, "https://", "wss://", 1)
	wsBase = strings.Replace(wsBase, "http://", "ws://", 1)
	return wsBase + "/ws?token=" + url.QueryEscape(token)
}

// render reprints the merged timeline plus the peer typing line.
func render(w io.Writer, selfID, peerName string, messages []chat.Message, peerTyping func() (string, bool)) {
	fmt.Fprint(w, "\033[2J\033[H")

	for _, m := range messages {
		who := peerName
		if m.SenderID == selfID {
			who = "me"
		}
		fmt.Fprintf(w, "[%s] %s: %s\n", m.SentAt.Format("15:04:05"), who, m.Body)
	}

	if name, typing := peerTyping(); typing {
		fmt.Fprintf(w, "%s is typing...\n", name)
	}

	fmt.Fprint(w, "> ")
}
