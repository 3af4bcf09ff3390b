package homeassistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{}

// fakeHomeAssistant serves the WebSocket handshake and a fixed set of
// registry responses.
func fakeHomeAssistant(t *testing.T, expectToken string, results map[string]any) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		require.NoError(t, conn.WriteJSON(map[string]any{"type": "auth_required"}))

		var auth struct {
			Type        string `json:"type"`
			AccessToken string `json:"access_token"`
		}
		require.NoError(t, conn.ReadJSON(&auth))
		if auth.AccessToken != expectToken {
			_ = conn.WriteJSON(map[string]any{"type": "auth_invalid", "message": "Invalid access token"})
			return
		}
		require.NoError(t, conn.WriteJSON(map[string]any{"type": "auth_ok", "ha_version": "2024.6.0"}))

		for {
			var cmd struct {
				ID   int    `json:"id"`
				Type string `json:"type"`
			}
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			result, ok := results[cmd.Type]
			if !ok {
				_ = conn.WriteJSON(map[string]any{
					"id": cmd.ID, "type": "result", "success": false,
					"error": map[string]string{"code": "unknown_command", "message": "Unknown command."},
				})
				continue
			}
			_ = conn.WriteJSON(map[string]any{
				"id": cmd.ID, "type": "result", "success": true, "result": result,
			})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Connect(t *testing.T) {
	t.Run("successful handshake", func(t *testing.T) {
		server := fakeHomeAssistant(t, "valid-token", nil)
		client := NewClient(server.URL, "valid-token")

		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		// Connecting again is a no-op.
		require.NoError(t, client.Connect(context.Background()))
	})

	t.Run("invalid token", func(t *testing.T) {
		server := fakeHomeAssistant(t, "valid-token", nil)
		client := NewClient(server.URL, "wrong-token")

		err := client.Connect(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrAuthFailed)
	})

	t.Run("unreachable host", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "token")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		err := client.Connect(ctx)
		require.Error(t, err)
	})
}

func TestClient_ListAreas(t *testing.T) {
	server := fakeHomeAssistant(t, "token", map[string]any{
		"config/area_registry/list": []map[string]any{
			{"area_id": "kitchen", "name": "Kitchen", "normalized_name": "kitchen", "aliases": []string{"Cooking"}},
			{"area_id": "garden", "name": "Garden", "normalized_name": "garden"},
		},
	})
	client := NewClient(server.URL, "token")
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	areas, err := client.ListAreas(context.Background())
	require.NoError(t, err)
	require.Len(t, areas, 2)
	assert.Equal(t, "kitchen", areas[0].ID)
	assert.Equal(t, "Kitchen", areas[0].Name)
	assert.Equal(t, []string{"Cooking"}, areas[0].Aliases)
}

func TestClient_ListDevices(t *testing.T) {
	server := fakeHomeAssistant(t, "token", map[string]any{
		"config/device_registry/list": []map[string]any{
			{
				"id": "dev1", "name": "Hue Bridge", "name_by_user": "Kitchen Bridge",
				"manufacturer": "Signify", "model": "BSB002", "area_id": "kitchen",
				"identifiers": [][]string{{"hue", "001788"}},
			},
		},
	})
	client := NewClient(server.URL, "token")
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	devices, err := client.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "Kitchen Bridge", devices[0].DisplayName())
	assert.Equal(t, "Signify", devices[0].Manufacturer)
	assert.Equal(t, [][]string{{"hue", "001788"}}, devices[0].Identifiers)
}

func TestClient_ListStates(t *testing.T) {
	server := fakeHomeAssistant(t, "token", map[string]any{
		"get_states": []map[string]any{
			{
				"entity_id": "sensor.kitchen_temp",
				"state":     "21.4",
				"attributes": map[string]any{
					"friendly_name":       "Kitchen Temperature",
					"device_class":        "temperature",
					"unit_of_measurement": "°C",
					"area_id":             "kitchen",
				},
			},
			{
				"entity_id":  "light.hallway",
				"state":      "off",
				"attributes": map[string]any{},
			},
		},
	})
	client := NewClient(server.URL, "token")
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	states, err := client.ListStates(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "Kitchen Temperature", states[0].FriendlyName())
	assert.Equal(t, "kitchen", states[0].Attributes.AreaID)
	assert.Equal(t, "light.hallway", states[1].FriendlyName())
}

func TestClient_CallWithoutConnect(t *testing.T) {
	client := NewClient("http://localhost:8123", "token")
	_, err := client.ListAreas(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestClient_UnknownCommandError(t *testing.T) {
	server := fakeHomeAssistant(t, "token", map[string]any{})
	client := NewClient(server.URL, "token")
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()

	_, err := client.ListStates(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown_command")
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://hass.local:8123", "ws://hass.local:8123/api/websocket"},
		{"https://hass.example.com", "wss://hass.example.com/api/websocket"},
		{"https://hass.example.com/", "wss://hass.example.com/api/websocket"},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			client := NewClient(tt.base, "token")
			assert.Equal(t, tt.want, client.websocketURL())
		})
	}
}

func TestEntityState_DecodesAttributeBag(t *testing.T) {
	raw := `{
		"entity_id": "sensor.x",
		"state": "1",
		"attributes": {"friendly_name": "X", "custom_field": true}
	}`

	var state EntityState
	require.NoError(t, json.Unmarshal([]byte(raw), &state))
	assert.Equal(t, "X", state.Attributes.FriendlyName)
	assert.True(t, strings.HasPrefix(state.EntityID, "sensor."))
}
