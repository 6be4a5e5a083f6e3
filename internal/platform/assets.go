package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// AssetStatus is the reported state of a managed host.
type AssetStatus string

// Asset statuses reported by the console.
const (
	StatusOnline      AssetStatus = "online"
	StatusOffline     AssetStatus = "offline"
	StatusMaintenance AssetStatus = "maintenance"
)

// IsValid reports whether s is a status the console recognizes.
func (s AssetStatus) IsValid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusMaintenance:
		return true
	}
	return false
}

// AssetID identifies an asset. The server may encode it as a JSON number or
// string; it is always handled as a string.
type AssetID string

// UnmarshalJSON accepts a number or a string.
func (id *AssetID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = AssetID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("asset id: %w", err)
	}
	*id = AssetID(n.String())
	return nil
}

// StaticInfo is hardware and OS data collected at registration.
type StaticInfo struct {
	IP     string `json:"ip,omitempty" yaml:"ip,omitempty"`
	CPU    string `json:"cpu,omitempty" yaml:"cpu,omitempty"`
	Memory string `json:"memory,omitempty" yaml:"memory,omitempty"`
	OS     string `json:"os,omitempty" yaml:"os,omitempty"`
}

// DynamicInfo is usage data refreshed by agent heartbeats.
type DynamicInfo struct {
	CPUUsage    float64 `json:"cpu_usage" yaml:"cpu_usage"`
	MemoryUsage float64 `json:"memory_usage" yaml:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage" yaml:"disk_usage"`
	LastCheckIn string  `json:"last_check_in,omitempty" yaml:"last_check_in,omitempty"`
}

// Asset is a managed host as listed by the console.
type Asset struct {
	ID          AssetID           `json:"id" yaml:"id"`
	Hostname    string            `json:"hostname" yaml:"hostname"`
	Status      AssetStatus       `json:"status" yaml:"status"`
	StaticInfo  *StaticInfo       `json:"static_info,omitempty" yaml:"static_info,omitempty"`
	DynamicInfo *DynamicInfo      `json:"dynamic_info,omitempty" yaml:"dynamic_info,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
}

// UnmarshalJSON tolerates labels that arrive as a JSON-encoded string,
// which the console stores verbatim.
func (a *Asset) UnmarshalJSON(data []byte) error {
	type plain Asset
	var raw struct {
		plain
		Labels json.RawMessage `json:"labels"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = Asset(raw.plain)
	a.Labels = nil

	labels, err := decodeLabels(raw.Labels)
	if err != nil {
		return fmt.Errorf("asset %s labels: %w", a.ID, err)
	}
	a.Labels = labels
	return nil
}

func decodeLabels(data json.RawMessage) (map[string]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return nil, nil
		}
		data = []byte(s)
	}

	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(generic))
	for k, v := range generic {
		switch val := v.(type) {
		case string:
			labels[k] = val
		case nil:
			labels[k] = ""
		case float64:
			labels[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			labels[k] = fmt.Sprint(val)
		}
	}
	return labels, nil
}

// OS returns the reported operating system, or "".
func (a Asset) OS() string {
	if a.StaticInfo == nil {
		return ""
	}
	return a.StaticInfo.OS
}

// IP returns the reported address, or "".
func (a Asset) IP() string {
	if a.StaticInfo == nil {
		return ""
	}
	return a.StaticInfo.IP
}

// LabelsRequest is the body of a label update.
type LabelsRequest struct {
	Labels map[string]string `json:"labels"`
}

// ListAssets retrieves every asset visible to token
func (c *Client) ListAssets(ctx context.Context, token string) ([]Asset, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/v1/assets/list", token, nil)
	if err != nil {
		return nil, err
	}

	var assets []Asset
	if err := parseResponse(resp, &assets); err != nil {
		return nil, err
	}
	if assets == nil {
		assets = []Asset{}
	}
	return assets, nil
}

// DeleteAsset deletes an asset
func (c *Client) DeleteAsset(ctx context.Context, token string, id AssetID) error {
	resp, err := c.doRequest(ctx, http.MethodDelete, assetPath(id), token, nil)
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}

// UpdateAssetLabels replaces an asset's labels
func (c *Client) UpdateAssetLabels(ctx context.Context, token string, id AssetID, labels map[string]string) error {
	if labels == nil {
		labels = map[string]string{}
	}
	resp, err := c.doRequest(ctx, http.MethodPut, assetPath(id)+"/labels", token, LabelsRequest{Labels: labels})
	if err != nil {
		return err
	}
	return parseResponse(resp, nil)
}

func assetPath(id AssetID) string {
	return "/api/v1/assets/" + url.PathEscape(string(id))
}
