package cmd

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-auth/internal/auth"
)

var authenticateCmd = &cobra.Command{
	Use:   "authenticate",
	Short: "Authenticate an embedding against a running server",
	Long: `Connect to a running server's websocket endpoint, send one authenticate
event with the embedding from --embedding-file and print the authResult.

Exits with an error when authentication is unsuccessful.`,
	Example: `  face-auth authenticate --url ws://localhost:3000/socket --embedding-file probe.json`,
	Args:    cobra.NoArgs,
	RunE:    runAuthenticate,
}

func init() {
	rootCmd.AddCommand(authenticateCmd)

	authenticateCmd.Flags().String("url", "ws://localhost:3000/socket", "Websocket URL of the server")
	authenticateCmd.Flags().String("embedding-file", "", "JSON file with the probe embedding (required)")
	authenticateCmd.Flags().String("origin", "", "Origin header to send")
	authenticateCmd.Flags().Duration("timeout", 15*time.Second, "Time to wait for the result")
	authenticateCmd.MarkFlagRequired("embedding-file")
}

func runAuthenticate(cmd *cobra.Command, args []string) error {
	probe, err := readEmbeddingFile(mustGetString(cmd, "embedding-file"))
	if err != nil {
		return err
	}
	timeout := mustGetDuration(cmd, "timeout")

	header := http.Header{}
	if origin := mustGetString(cmd, "origin"); origin != "" {
		header.Set("Origin", origin)
	}

	dialer := websocket.Dialer{HandshakeTimeout: timeout}
	url := mustGetString(cmd, "url")
	conn, resp, err := dialer.DialContext(cmd.Context(), url, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("failed to connect to %s: %w (HTTP %d)", url, err, resp.StatusCode)
		}
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	defer conn.Close()

	env, err := auth.NewEnvelope(auth.EventAuthenticate, auth.AuthenticateRequest{FaceEmbedding: probe})
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("sending %s: %w", auth.EventAuthenticate, err)
	}

	result, err := awaitResult(conn, time.Now().Add(timeout))
	if err != nil {
		return err
	}

	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))

	if !result.Success {
		return fmt.Errorf("authentication failed")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Authenticated as %s\n", result.User)
	return nil
}

// awaitResult reads frames until an authResult arrives, skipping other events.
func awaitResult(conn *websocket.Conn, deadline time.Time) (auth.AuthResult, error) {
	conn.SetReadDeadline(deadline)
	for {
		var env auth.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			return auth.AuthResult{}, fmt.Errorf("waiting for %s: %w", auth.EventAuthResult, err)
		}
		if env.Event != auth.EventAuthResult {
			continue
		}
		var result auth.AuthResult
		if err := json.Unmarshal(env.Data, &result); err != nil {
			return auth.AuthResult{}, fmt.Errorf("decoding %s: %w", auth.EventAuthResult, err)
		}
		return result, nil
	}
}
