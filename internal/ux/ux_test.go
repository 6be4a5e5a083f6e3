package ux

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cjl-github/chiwen/internal/assets"
	"github.com/cjl-github/chiwen/internal/errors"
	"github.com/cjl-github/chiwen/internal/health"
	"github.com/cjl-github/chiwen/internal/platform"
)

type testData struct {
	Name  string `json:"name" yaml:"name"`
	Value int    `json:"value" yaml:"value"`
}

func sampleAssets() []assets.Asset {
	return []assets.Asset{
		{
			ID: "1", Hostname: "web-01", Status: platform.StatusOnline,
			StaticInfo:  &platform.StaticInfo{IP: "10.0.0.11", OS: "Ubuntu Linux", CPU: "4", Memory: "8G"},
			DynamicInfo: &platform.DynamicInfo{CPUUsage: 12.4, MemoryUsage: 50, DiskUsage: 71.6, LastCheckIn: "2024-05-01T10:00:00Z"},
			Labels:      map[string]string{"group": "web", "env": "prod"},
		},
		{ID: "2", Hostname: "win-01", Status: platform.StatusOffline},
	}
}

func TestNewFormatter(t *testing.T) {
	for _, format := range []string{"json", "yaml", "text", ""} {
		_, err := NewFormatter(format, nil)
		assert.NoError(t, err, format)
	}
	_, err := NewFormatter("xml", nil)
	assert.Error(t, err)
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(testData{Name: "test", Value: 42}))
	assert.Contains(t, buf.String(), `"name": "test"`)

	buf.Reset()
	f, _ = NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	require.NoError(t, f.Format(testData{Name: "test", Value: 42}))
	assert.Equal(t, `{"name":"test","value":42}`+"\n", buf.String())
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(testData{Name: "test", Value: 42}))
	assert.Contains(t, buf.String(), "name: test")
	assert.Contains(t, buf.String(), "value: 42")
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("text", &FormatterOptions{Writer: &buf, NoColor: true})
	require.NoError(t, err)

	require.NoError(t, f.Format("hello"))
	assert.Equal(t, "hello\n", buf.String())

	err = f.Format(testData{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output json")
}

func TestAssetList_Text(t *testing.T) {
	out := AssetList{Items: sampleAssets()}.RenderText(PlainStyles())

	for _, want := range []string{"HOSTNAME", "web-01", "10.0.0.11", "Ubuntu Linux", "online", "12%/50%/72%", "env=prod,group=web", "win-01", "offline", "2 asset(s)"} {
		assert.Contains(t, out, want)
	}

	assert.Equal(t, "No assets found.", AssetList{}.RenderText(PlainStyles()))
}

func TestAssetList_Marshal(t *testing.T) {
	data, err := json.Marshal(AssetList{Items: sampleAssets()})
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "web-01", decoded[0]["hostname"])

	data, err = json.Marshal(AssetList{})
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	out, err := yaml.Marshal(AssetList{Items: sampleAssets()[:1]})
	require.NoError(t, err)
	assert.Contains(t, string(out), "hostname: web-01")
}

func TestAssetDetail_Text(t *testing.T) {
	out := AssetDetail{Asset: sampleAssets()[0]}.RenderText(PlainStyles())
	assert.Contains(t, out, "Hostname")
	assert.Contains(t, out, "Last check-in")
	assert.Contains(t, out, "2024-05-01T10:00:00Z")
	assert.Contains(t, out, "env=prod,group=web")

	sparse := AssetDetail{Asset: sampleAssets()[1]}.RenderText(PlainStyles())
	assert.NotContains(t, sparse, "Usage")
	assert.Contains(t, sparse, "Labels")
}

func TestTreeView_Text(t *testing.T) {
	out := TreeView{Root: assets.Tree(sampleAssets())}.RenderText(PlainStyles())
	lines := strings.Split(out, "\n")
	assert.Equal(t, "All devices", lines[0])
	assert.Contains(t, out, "├── Linux (1)")
	assert.Contains(t, out, "│   └── web-01 #1")
	assert.Contains(t, out, "Windows (0)")
	assert.Contains(t, out, "└── Other (1)")
	assert.Contains(t, out, "    └── win-01 #2")
}

func TestSessionStatus_Text(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	out := SessionStatus{
		Authenticated:    true,
		Server:           "http://console",
		Username:         "admin",
		Role:             "admin",
		Capabilities:     []string{"dashboard", "assets"},
		TokenFingerprint: "abc123",
		ExpiresAt:        &exp,
	}.RenderText(PlainStyles())

	assert.Contains(t, out, "logged in")
	assert.Contains(t, out, "admin")
	assert.Contains(t, out, "dashboard, assets")
	assert.Contains(t, out, "Expires")

	anon := SessionStatus{Server: "http://console", Capabilities: []string{"dashboard"}, Error: "token expired"}.RenderText(PlainStyles())
	assert.Contains(t, anon, "not logged in")
	assert.NotContains(t, anon, "Role")
	assert.Contains(t, anon, "token expired")
}

func TestSettings_Text(t *testing.T) {
	out := Settings{Values: map[string]string{"log.level": "warn", "api.base_url": "http://x"}}.RenderText(PlainStyles())
	assert.Contains(t, out, "Configuration (defaults)")
	assert.Less(t, strings.Index(out, "api.base_url"), strings.Index(out, "log.level"))

	out = Settings{Path: "/etc/chiwen.yaml", Values: map[string]string{"storage.passphrase": ""}}.RenderText(PlainStyles())
	assert.Contains(t, out, "Configuration from /etc/chiwen.yaml")
	assert.Contains(t, out, "-")
}

func TestHealthReport(t *testing.T) {
	report := HealthReport{Report: health.Report{
		Status: health.StatusDegraded,
		Checks: []health.Entry{
			{Name: "config", Result: *health.Healthy("loaded /tmp/c.yaml")},
			{Name: "server", Result: *health.Healthy("reachable").WithLatency(12 * time.Millisecond)},
			{Name: "session", Result: *health.Degraded("not logged in")},
		},
	}}

	out := report.RenderText(PlainStyles())
	assert.Contains(t, out, "✓ config   loaded /tmp/c.yaml")
	assert.Contains(t, out, "reachable (12ms)")
	assert.Contains(t, out, "! session  not logged in")
	assert.True(t, strings.HasSuffix(out, "! Overall: degraded"))

	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"degraded"`)
	assert.Contains(t, string(data), `"name":"session"`)

	y, err := yaml.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(y), "status: degraded")
	assert.Contains(t, string(y), "- name: config")
}

func TestFormatError(t *testing.T) {
	err := errors.NewTransportError(stderrors.New("dial tcp: connection refused"))
	out := FormatError(err, PlainStyles())

	assert.Contains(t, out, "Error [NET-001]: console server unreachable")
	assert.Contains(t, out, "connection refused")
	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "• Check the network connection")

	out = FormatError(errors.NewRemoteRejectedError(500, "db down"), PlainStyles())
	assert.Contains(t, out, "db down (HTTP 500)")

	assert.Equal(t, "Error: boom", FormatError(stderrors.New("boom"), PlainStyles()))
	assert.Empty(t, FormatError(nil, PlainStyles()))

	var buf bytes.Buffer
	PrintError(&buf, stderrors.New("boom"), PlainStyles())
	assert.Equal(t, "Error: boom\n", buf.String())
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input      string
		defaultYes bool
		want       bool
	}{
		{"y\n", false, true},
		{"YES\n", false, true},
		{"n\n", true, false},
		{"\n", true, true},
		{"\n", false, false},
		{"", true, true},
		{"maybe\n", true, false},
		{"y", false, true},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		got := Confirm(strings.NewReader(tt.input), &out, "Delete?", tt.defaultYes)
		assert.Equal(t, tt.want, got, "input %q default %v", tt.input, tt.defaultYes)
		assert.True(t, strings.HasPrefix(out.String(), "Delete? ("))
	}
}
