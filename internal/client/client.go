// Package client is an HTTP+WebSocket client for the ghostnet API,
// used by ghostnetctl and by end-to-end tests.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type   string         `json:"type"`
	GameID uint64         `json:"game_id"`
	Data   map[string]any `json:"data"`
}

// Client talks to a ghostnet server as a single authenticated player.
type Client struct {
	name     string
	baseURL  string
	token    string
	userID   string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool
}

// New creates a client targeting the given server URL.
func New(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan WSEvent, 64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the player name used at login.
func (c *Client) Name() string { return c.name }

// UserID returns the player's user ID after login.
func (c *Client) UserID() string { return c.userID }

// SetToken installs a pre-issued access token, skipping dev login.
func (c *Client) SetToken(token string) { c.token = token }

// Login authenticates via the dev login endpoint.
func (c *Client) Login() error {
	resp, err := c.httpC.Get(c.baseURL + "/auth/dev?name=" + url.QueryEscape(c.name))
	if err != nil {
		return fmt.Errorf("dev login request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dev login status %d: %s", resp.StatusCode, body)
	}

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return fmt.Errorf("decode tokens: %w", err)
	}
	c.token = tokens.AccessToken

	user, err := c.getJSON("/api/v1/users/me")
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if id, ok := user["id"].(string); ok {
		c.userID = id
	}
	log.Debug().Str("player", c.name).Str("userId", c.userID).Msg("Logged in")
	return nil
}

// CreateGame creates a game with the given ID and stake.
func (c *Client) CreateGame(gameID, stake uint64) (map[string]any, error) {
	body := map[string]uint64{
		"game_id":      gameID,
		"stake_amount": stake,
	}
	return c.postJSON("/api/v1/games", body)
}

// JoinGame joins an existing lobby.
func (c *Client) JoinGame(gameID uint64) (map[string]any, error) {
	return c.postJSON(gamePath(gameID, "join"), nil)
}

// StartGame starts a game (creator only).
func (c *Client) StartGame(gameID uint64) (map[string]any, error) {
	return c.postJSON(gamePath(gameID, "start"), nil)
}

// MoveUnits moves units between adjacent tiles.
func (c *Client) MoveUnits(gameID uint64, fromX, fromY, toX, toY, count int) (map[string]any, error) {
	body := map[string]int{
		"from_x": fromX,
		"from_y": fromY,
		"to_x":   toX,
		"to_y":   toY,
		"count":  count,
	}
	return c.postJSON(gamePath(gameID, "move"), body)
}

// BuildDefense builds a defense structure on an owned tile.
func (c *Client) BuildDefense(gameID uint64, x, y int) (map[string]any, error) {
	return c.postJSON(gamePath(gameID, "defense"), map[string]int{"x": x, "y": y})
}

// TrainUnits trains units on an owned tile.
func (c *Client) TrainUnits(gameID uint64, x, y, count int) (map[string]any, error) {
	return c.postJSON(gamePath(gameID, "train"), map[string]int{"x": x, "y": y, "count": count})
}

// CollectResources collects income from all owned tiles.
func (c *Client) CollectResources(gameID uint64) (map[string]any, error) {
	return c.postJSON(gamePath(gameID, "collect"), nil)
}

// SetStrategy changes the player's declared strategy.
func (c *Client) SetStrategy(gameID uint64, mode string) (map[string]any, error) {
	return c.postJSON(gamePath(gameID, "strategy"), map[string]string{"mode": mode})
}

// EndGame finishes a game and settles the winner (creator only).
func (c *Client) EndGame(gameID uint64) (map[string]any, error) {
	return c.postJSON(gamePath(gameID, "end"), nil)
}

// GetGame fetches game details.
func (c *Client) GetGame(gameID uint64) (map[string]any, error) {
	return c.getJSON("/api/v1/games/" + formatID(gameID))
}

// ListGames lists games, optionally filtered by status.
func (c *Client) ListGames(filter string) ([]any, error) {
	path := "/api/v1/games"
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpC.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}

	var result []any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

// GetPlayer fetches a player's ledger within a game.
func (c *Client) GetPlayer(gameID uint64, player string) (map[string]any, error) {
	return c.getJSON(gamePath(gameID, "players/"+url.PathEscape(player)))
}

// GetSnapshot fetches the frozen snapshot of a game.
func (c *Client) GetSnapshot(gameID uint64) (map[string]any, error) {
	return c.getJSON(gamePath(gameID, "snapshot"))
}

// ConnectWS opens a WebSocket connection and starts listening for events.
func (c *Client) ConnectWS() error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// SubscribeGame sends a subscribe message for the given game.
func (c *Client) SubscribeGame(gameID uint64) error {
	msg := map[string]any{"action": "subscribe", "game_id": gameID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Events returns the channel of incoming WebSocket events.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			if !c.closedWS {
				log.Debug().Err(err).Str("player", c.name).Msg("WS read error")
			}
			return
		}
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}
		c.events <- event
	}
}

func gamePath(gameID uint64, suffix string) string {
	return "/api/v1/games/" + formatID(gameID) + "/" + suffix
}

func formatID(gameID uint64) string {
	return strconv.FormatUint(gameID, 10)
}

func (c *Client) getJSON(path string) (map[string]any, error) {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpC.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, body)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}

func (c *Client) postJSON(path string, payload any) (map[string]any, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader([]byte("{}"))
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpC.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("POST %s: status %d: %s", path, resp.StatusCode, body)
	}

	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result, nil
}
