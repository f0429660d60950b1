package resolver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/optimode/emailfinder/types"
)

const (
	typeA  = 1
	typeMX = 15

	rcodeNameError = 3
)

// DoH queries a JSON DNS-over-HTTPS endpoint such as https://dns.google/resolve.
type DoH struct {
	endpoint string
	client   *http.Client
}

type dohResponse struct {
	Status int `json:"Status"`
	Answer []struct {
		Name string `json:"name"`
		Type int    `json:"type"`
		TTL  int    `json:"TTL"`
		Data string `json:"data"`
	} `json:"Answer"`
}

func NewDoH(endpoint string, client *http.Client) *DoH {
	if client == nil {
		client = http.DefaultClient
	}
	return &DoH{endpoint: endpoint, client: client}
}

func (d *DoH) LookupHost(ctx context.Context, host string) ([]string, error) {
	resp, err := d.query(ctx, host, "A")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, a := range resp.Answer {
		if a.Type == typeA {
			out = append(out, a.Data)
		}
	}
	if len(out) == 0 {
		return nil, notFound(host)
	}
	return out, nil
}

func (d *DoH) LookupMX(ctx context.Context, name string) ([]*net.MX, error) {
	resp, err := d.query(ctx, name, "MX")
	if err != nil {
		return nil, err
	}
	var out []*net.MX
	for _, a := range resp.Answer {
		if a.Type != typeMX {
			continue
		}
		// "10 mx.example.com."
		prefStr, host, ok := strings.Cut(strings.TrimSpace(a.Data), " ")
		if !ok {
			continue
		}
		pref, err := strconv.ParseUint(prefStr, 10, 16)
		if err != nil {
			continue
		}
		out = append(out, &net.MX{Host: strings.TrimSpace(host), Pref: uint16(pref)})
	}
	if len(out) == 0 {
		return nil, notFound(name)
	}
	return out, nil
}

func (d *DoH) query(ctx context.Context, name, rrType string) (*dohResponse, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "resolver: parse doh endpoint")
	}
	q := u.Query()
	q.Set("name", name)
	q.Set("type", rrType)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "resolver: build doh request")
	}
	req.Header.Set("Accept", "application/dns-json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Op: "doh " + rrType, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &types.TransportError{Op: "doh " + rrType, Err: errors.Errorf("status %d", resp.StatusCode)}
	}

	var out dohResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrap(err, "resolver: decode doh response")
	}
	if out.Status == rcodeNameError {
		return nil, notFound(name)
	}
	return &out, nil
}
