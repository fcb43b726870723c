package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/twocards/backoffice/internal/model/chat"
)

var (
	probeServer   string
	probeUsername string
	probePassword string
	probeToken    string
	probeVisitor  string
	probeMessage  string
	probeWait     time.Duration
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Live chat tools",
}

var chatProbeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Connect to the chat websocket and print incoming frames",
	Long: `Connect to a running server's chat websocket, optionally send one
message, and print every frame received until --wait elapses.

Examples:
  backoffice chat probe --username admin --password 'Admin@123' --message hello
  backoffice chat probe --visitor Ali --message "where is my code?"`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipApp: "true"},
	RunE:        runChatProbe,
}

func init() {
	f := chatProbeCmd.Flags()
	f.StringVar(&probeServer, "server", "http://localhost:8080", "server base URL")
	f.StringVar(&probeUsername, "username", "", "staff username to log in with")
	f.StringVar(&probePassword, "password", "", "staff password")
	f.StringVar(&probeToken, "token", "", "existing access token (skips login)")
	f.StringVar(&probeVisitor, "visitor", "", "connect as an anonymous visitor with this name")
	f.StringVar(&probeMessage, "message", "", "message to send after connecting")
	f.DurationVar(&probeWait, "wait", 5*time.Second, "how long to listen for frames")
	chatCmd.AddCommand(chatProbeCmd)
}

func runChatProbe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	base, err := url.Parse(strings.TrimRight(probeServer, "/"))
	if err != nil {
		return fmt.Errorf("parse --server: %w", err)
	}

	header := http.Header{}
	wsURL := *base
	switch base.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}

	if probeVisitor != "" {
		wsURL.Path += "/api/v1/chat/ws/public"
		wsURL.RawQuery = url.Values{"name": []string{probeVisitor}}.Encode()
	} else {
		token := probeToken
		if token == "" {
			if probeUsername == "" {
				return errors.New("either --visitor, --token or --username/--password is required")
			}
			token, err = login(ctx, base.String(), probeUsername, probePassword)
			if err != nil {
				return err
			}
		}
		header.Set("Authorization", "Bearer "+token)
		wsURL.Path += "/api/v1/chat/ws"
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (HTTP %d)", wsURL.String(), err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", wsURL.String(), err)
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "connected to %s\n", wsURL.String())

	if probeMessage != "" {
		if err := conn.WriteJSON(chat.Inbound{Message: probeMessage}); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}

	deadline := time.Now().Add(probeWait)
	for {
		if err := conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				fmt.Fprintln(out, "server closed the connection")
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		fmt.Fprintf(out, "%s %s\n", time.Now().Format(time.TimeOnly), raw)
	}
}

func login(ctx context.Context, base, username, password string) (string, error) {
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/api/v1/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login: HTTP %d", resp.StatusCode)
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("login: decode response: %w", err)
	}
	return tok.AccessToken, nil
}
