package logging

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"normal secret", "a1b2c3d4e5f6ab3f", "****ab3f"},
		{"exactly 4 chars", "ab3f", "****ab3f"},
		{"short value", "ab", "****"},
		{"empty", "", "****"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskSecret(tt.input))
		})
	}
}

func TestMaskHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		value    string
		expected string
	}{
		{"authorization", "Authorization", "Bearer deadbeefab3f", "****ab3f"},
		{"x-auth-token", "X-Auth-Token", "deadbeefab3f", "****ab3f"},
		{"password header", "X-User-Password", "hunter2", "[REDACTED]"},
		{"secret header", "X-Api-Secret", "deadbeef", "[REDACTED]"},
		{"plain header", "Content-Type", "application/json", "application/json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskHeader(tt.header, tt.value))
		})
	}
}

func TestMaskQuery(t *testing.T) {
	masked := MaskQuery("token=deadbeefab3f&asset=asset-1")

	values, err := url.ParseQuery(masked)
	require.NoError(t, err)
	assert.Equal(t, "****ab3f", values.Get("token"))
	assert.Equal(t, "asset-1", values.Get("asset"))
}

func TestMaskQueryEmpty(t *testing.T) {
	assert.Empty(t, MaskQuery(""))
}

func TestMaskQueryUnparseable(t *testing.T) {
	assert.Equal(t, "[REDACTED]", MaskQuery("%zz=broken"))
}

func TestMaskPath(t *testing.T) {
	secret := strings.Repeat("ab", 32)

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"confirm link", "/user/confirm/" + secret, "/user/confirm/****abab"},
		{"uuid untouched", "/api/media/3f2a6c1e-0b4d-4e9a-8f6d-1c2b3a4d5e6f", "/api/media/3f2a6c1e-0b4d-4e9a-8f6d-1c2b3a4d5e6f"},
		{"plain path", "/user/login", "/user/login"},
		{"root", "/", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaskPath(tt.path))
		})
	}
}

func TestMaskJSONBody(t *testing.T) {
	body := []byte(`{"email":"user@example.com","password":"hunter2","token":"deadbeefab3f"}`)

	masked := MaskJSONBody(body)

	var data map[string]any
	require.NoError(t, json.Unmarshal(masked, &data))
	assert.Equal(t, "user@example.com", data["email"])
	assert.Equal(t, "[REDACTED]", data["password"])
	assert.Equal(t, "****ab3f", data["token"])
}

func TestMaskJSONBodyNested(t *testing.T) {
	body := []byte(`{"auth":{"token":"deadbeefab3f"},"items":[{"password":"x"}]}`)

	masked := MaskJSONBody(body)

	var data map[string]any
	require.NoError(t, json.Unmarshal(masked, &data))

	auth := data["auth"].(map[string]any)
	assert.Equal(t, "****ab3f", auth["token"])

	item := data["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "[REDACTED]", item["password"])
}

func TestMaskJSONBodyInvalid(t *testing.T) {
	body := []byte("not json")
	assert.Equal(t, body, MaskJSONBody(body))
}

func TestFormatBinaryData(t *testing.T) {
	assert.Equal(t, "[BINARY: 4 bytes]", FormatBinaryData([]byte{1, 2, 3, 4}))
}
