//go:build e2e

package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"
)

func TestRemoteAPI_MainEndpoints(t *testing.T) {
	baseURL := strings.TrimRight(envOr("E2E_BASE_URL", "http://localhost:8080"), "/")
	client := &http.Client{Timeout: 20 * time.Second}

	t.Run("step rejects unknown direction", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodPost, baseURL+"/api/player/step", map[string]any{"direction": "up"})
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d body=%s", status, string(body))
		}
	})

	t.Run("unknown cache is not found", func(t *testing.T) {
		status, body := mustJSON(t, client, http.MethodGet, baseURL+"/api/world/caches/999999,999999", nil)
		if status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d body=%s", status, string(body))
		}
	})

	t.Run("collect deposit save kpi", func(t *testing.T) {
		status, viewBody := mustJSON(t, client, http.MethodGet, baseURL+"/api/world/view", nil)
		if status != http.StatusOK {
			t.Fatalf("view status=%d body=%s", status, string(viewBody))
		}
		var view map[string]any
		if err := json.Unmarshal(viewBody, &view); err != nil {
			t.Fatalf("unmarshal view: %v body=%s", err, string(viewBody))
		}

		var cellKey, token string
		for _, raw := range asSlice(view["caches"]) {
			c := asMap(raw)
			tokens := asSlice(c["tokens"])
			if c["in_reach"] == true && len(tokens) > 0 {
				cellKey, _ = c["key"].(string)
				token, _ = tokens[0].(string)
				break
			}
		}
		if cellKey == "" {
			t.Skip("no reachable cache with tokens near the current position")
		}

		status, collectBody := mustJSON(t, client, http.MethodPost, baseURL+"/api/caches/collect", map[string]any{"cell": cellKey, "token": token})
		if status != http.StatusOK {
			t.Fatalf("collect status=%d body=%s", status, string(collectBody))
		}
		status, dupBody := mustJSON(t, client, http.MethodPost, baseURL+"/api/caches/collect", map[string]any{"cell": cellKey, "token": token})
		if status != http.StatusNotFound {
			t.Fatalf("expected duplicate collect 404, got %d body=%s", status, string(dupBody))
		}
		status, depositBody := mustJSON(t, client, http.MethodPost, baseURL+"/api/caches/deposit", map[string]any{"cell": cellKey, "token": token})
		if status != http.StatusOK {
			t.Fatalf("deposit status=%d body=%s", status, string(depositBody))
		}

		status, saveBody := mustJSON(t, client, http.MethodPost, baseURL+"/api/world/save", nil)
		if status != http.StatusOK {
			t.Fatalf("save status=%d body=%s", status, string(saveBody))
		}

		status, kpiBody := mustJSON(t, client, http.MethodGet, baseURL+"/ops/kpi", nil)
		if status != http.StatusOK {
			t.Fatalf("kpi status=%d body=%s", status, string(kpiBody))
		}
		var kpi map[string]any
		if err := json.Unmarshal(kpiBody, &kpi); err != nil {
			t.Fatalf("unmarshal kpi: %v", err)
		}
		if n, _ := kpi["collect_total"].(float64); n < 1 {
			t.Fatalf("expected collect_total >= 1, got %v", kpi["collect_total"])
		}
	})
}

func mustJSON(t *testing.T, client *http.Client, method, url string, body map[string]any) (int, []byte) {
	t.Helper()
	status, respBody, err := doRequest(client, method, url, body)
	if err != nil {
		t.Fatalf("%s %s request failed: %v", method, url, err)
	}
	return status, respBody
}

func doRequest(client *http.Client, method, url string, body map[string]any) (int, []byte, error) {
	var payloadBytes []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		payloadBytes = b
	}

	var lastStatus int
	var lastBody []byte
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		var payload io.Reader
		if len(payloadBytes) > 0 {
			payload = bytes.NewReader(payloadBytes)
		}
		req, err := http.NewRequest(method, url, payload)
		if err != nil {
			return 0, nil, err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		lastStatus, lastBody, lastErr = resp.StatusCode, respBody, nil
		if resp.StatusCode >= 500 {
			time.Sleep(time.Duration(attempt+1) * 200 * time.Millisecond)
			continue
		}
		return resp.StatusCode, respBody, nil
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return lastStatus, lastBody, nil
}

func envOr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func asMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}
