package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/core"
	"github.com/alcosi/alcosi-blockchain-api-gateway/internal/gateway/presenter"
)

// Identity headers set for the upstream. Inbound values are always
// stripped so a caller can never spoof them.
const (
	HeaderClientID      = "X-Client-Id"
	HeaderClientWallet  = "X-Client-Wallet"
	HeaderClientWallets = "X-Client-Wallets"
)

// Proxy forwards allowed requests upstream, rewriting the identity headers
// from the verdict's authenticated client.
type Proxy struct {
	upstream *url.URL
	basePath string
	inner    *httputil.ReverseProxy
}

func NewProxy(upstream, basePath string) (*Proxy, error) {
	target, err := url.Parse(upstream)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream url: %w", err)
	}

	p := &Proxy{
		upstream: target,
		basePath: strings.TrimSuffix(basePath, "/"),
	}
	p.inner = &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if p.basePath != "" {
				pr.Out.URL.Path = strings.TrimPrefix(pr.Out.URL.Path, p.basePath)
				if pr.Out.URL.Path == "" {
					pr.Out.URL.Path = "/"
				}
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Ctx(r.Context()).Error().Err(err).Msg("upstream request failed")
			presenter.Error(w, r, "upstream unavailable", http.StatusBadGateway)
		},
	}
	return p, nil
}

// Forward rewrites the identity headers and hands the request upstream.
func (p *Proxy) Forward(w http.ResponseWriter, r *http.Request, client *core.Client) {
	r.Header.Del(HeaderClientID)
	r.Header.Del(HeaderClientWallet)
	r.Header.Del(HeaderClientWallets)

	if client != nil {
		r.Header.Set(HeaderClientID, client.ID)
		r.Header.Set(HeaderClientWallet, client.CurrentWallet)
		r.Header.Set(HeaderClientWallets, strings.Join(client.Wallets, ","))
	}
	p.inner.ServeHTTP(w, r)
}
