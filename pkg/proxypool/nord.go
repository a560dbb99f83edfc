package proxypool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	nordRecommendationsURL = "https://api.nordvpn.com/v1/servers/recommendations"
	nordCandidateLimit     = 25
)

// NordSource lists SOCKS5-capable server hostnames from the NordVPN
// public recommendations API.
type NordSource struct {
	client  *http.Client
	baseURL string
}

// NewNordSource creates a listing source backed by the NordVPN API
func NewNordSource() *NordSource {
	return &NordSource{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: nordRecommendationsURL,
	}
}

// NewNordSourceWithURL creates a source against a custom endpoint.
// Intended for tests.
func NewNordSourceWithURL(baseURL string) *NordSource {
	s := NewNordSource()
	s.baseURL = baseURL
	return s
}

// ListCandidates fetches the current SOCKS5 server recommendations
func (s *NordSource) ListCandidates(ctx context.Context) ([]string, error) {
	url := fmt.Sprintf("%s?filters[supported_protocols][0]=socks&limit=%d", s.baseURL, nordCandidateLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create listing request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("listing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing source returned status %d", resp.StatusCode)
	}

	var servers []struct {
		Hostname string `json:"hostname"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return nil, fmt.Errorf("failed to decode listing response: %w", err)
	}

	hosts := make([]string, 0, len(servers))
	for _, server := range servers {
		if server.Hostname != "" {
			hosts = append(hosts, server.Hostname)
		}
	}
	return hosts, nil
}
