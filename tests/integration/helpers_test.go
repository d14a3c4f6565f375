package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"testing"
	"time"
)

// catalogPort is the port the catalog service listens on in the compose setup.
const catalogPort = 8004

// baseURL returns the base URL for a service running on the given port.
func baseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

// uniqueName generates a unique product name to avoid slug collisions between
// test runs against the same database.
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %d-%d", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

// adminHeaders returns the identity headers the API gateway injects for a
// back-office user.
func adminHeaders() map[string]string {
	return map[string]string{
		"X-User-ID":   "integration-admin",
		"X-User-Role": "admin",
	}
}

// skipIfNotRunning performs a quick health check against a service.
// If the service is unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T, port int) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL(port) + "/health/live")
	if err != nil {
		t.Skipf("service on port %d not reachable (Docker not running?): %v", port, err)
	}
	resp.Body.Close()
}

// httpGet performs an HTTP GET request and returns the status code and decoded JSON body.
func httpGet(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodGet, url, nil, nil)
}

// httpPost performs an HTTP POST request with a JSON body.
func httpPost(t *testing.T, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodPost, url, body, nil)
}

// httpPostWithHeaders performs an HTTP POST request with a JSON body and custom headers.
func httpPostWithHeaders(t *testing.T, url string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodPost, url, body, headers)
}

// httpPutWithHeaders performs an HTTP PUT request with a JSON body and custom headers.
func httpPutWithHeaders(t *testing.T, url string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodPut, url, body, headers)
}

// httpDeleteWithHeaders performs an HTTP DELETE request with custom headers.
func httpDeleteWithHeaders(t *testing.T, url string, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodDelete, url, nil, headers)
}

// doJSONRequest is the internal helper for JSON HTTP requests.
func doJSONRequest(t *testing.T, method, url string, body interface{}, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	status, data, err := rawJSONRequest(method, url, body, headers)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	return status, data
}

// rawJSONRequest performs a JSON HTTP request without touching testing.T, so
// it is safe to call from spawned goroutines.
func rawJSONRequest(method, url string, body interface{}, headers map[string]string) (int, map[string]interface{}, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshalling request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	data := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			// Not JSON; keep the raw payload around for debugging.
			data = map[string]interface{}{"raw": string(raw)}
		}
	}
	return resp.StatusCode, data, nil
}

// requireStatus asserts that the HTTP status code matches the expected value.
func requireStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("expected status %d, got %d", want, got)
	}
}

// extractField extracts a value from a nested map using a dot-separated path.
// For example, extractField(data, "product.variants") navigates data["product"]["variants"].
func extractField(data map[string]interface{}, path string) interface{} {
	parts := strings.Split(path, ".")
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// extractString is a convenience wrapper around extractField that returns a string.
func extractString(t *testing.T, data map[string]interface{}, path string) string {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected string at path %q, got nil", path)
	}
	s, ok := val.(string)
	if !ok {
		t.Fatalf("expected string at path %q, got %T: %v", path, val, val)
	}
	return s
}

// extractFloat is a convenience wrapper that returns a float64.
func extractFloat(t *testing.T, data map[string]interface{}, path string) float64 {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected number at path %q, got nil", path)
	}
	f, ok := val.(float64)
	if !ok {
		t.Fatalf("expected float64 at path %q, got %T: %v", path, val, val)
	}
	return f
}

// createTestProduct creates a product with the given variants and returns the
// decoded product payload.
func createTestProduct(t *testing.T, name string, basePrice int, variants []map[string]interface{}) map[string]interface{} {
	t.Helper()
	body := map[string]interface{}{
		"name":       name,
		"base_price": basePrice,
		"sku_prefix": "ITG",
		"variants":   variants,
	}
	status, data := httpPostWithHeaders(t, baseURL(catalogPort)+"/api/v1/products", body, adminHeaders())
	requireStatus(t, status, 201)

	product, ok := extractField(data, "product").(map[string]interface{})
	if !ok {
		t.Fatalf("expected product object in create response, got %v", data)
	}
	return product
}

// firstVariantID returns the id of the first variant in a created product.
func firstVariantID(t *testing.T, product map[string]interface{}) string {
	t.Helper()
	variants, ok := product["variants"].([]interface{})
	if !ok || len(variants) == 0 {
		t.Fatalf("expected at least one variant in product, got %v", product["variants"])
	}
	v, ok := variants[0].(map[string]interface{})
	if !ok {
		t.Fatalf("expected variant object, got %T", variants[0])
	}
	id, ok := v["id"].(string)
	if !ok || id == "" {
		t.Fatalf("expected variant id, got %v", v["id"])
	}
	return id
}
