package price

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	xerrors "CryptoChat-Agent/internal/errors"
)

func TestCoinGeckoQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/simple/price" {
			t.Fatalf("unexpected path: %s", got)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Fatalf("unexpected ids: %s", got)
		}
		if got := r.URL.Query().Get("vs_currencies"); got != "usd" {
			t.Fatalf("unexpected vs_currencies: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":64000.5}}`))
	}))
	defer srv.Close()

	quoter := NewCoinGeckoQuoter(srv.URL)
	raw, err := quoter.Quote(context.Background(), AssetBTC, CurrencyUSD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "64000.5" {
		t.Fatalf("unexpected price text: %q", raw)
	}
}

func TestCoinGeckoUnsupportedCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{}}`))
	}))
	defer srv.Close()

	quoter := NewCoinGeckoQuoter(srv.URL)
	_, err := quoter.Quote(context.Background(), AssetBTC, CurrencyUSDT)
	if err == nil {
		t.Fatalf("expected error for unsupported currency")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceData) {
		t.Fatalf("expected data failure, got %v", err)
	}
}

func TestCoinbaseQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/v2/prices/ETH-EUR/spot" {
			t.Fatalf("unexpected path: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"amount":"2998.12","currency":"EUR"}}`))
	}))
	defer srv.Close()

	quoter := NewCoinbaseQuoter(srv.URL)
	raw, err := quoter.Quote(context.Background(), AssetETH, CurrencyEUR)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "2998.12" {
		t.Fatalf("unexpected price text: %q", raw)
	}
}

func TestCoinbaseMissingAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer srv.Close()

	quoter := NewCoinbaseQuoter(srv.URL)
	_, err := quoter.Quote(context.Background(), AssetETH, CurrencyUSDT)
	if err == nil {
		t.Fatalf("expected error when amount is missing")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceData) {
		t.Fatalf("expected data failure, got %v", err)
	}
}

func TestBinanceQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/api/v3/ticker/price" {
			t.Fatalf("unexpected path: %s", got)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Fatalf("unexpected symbol: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"symbol":"BTCUSDT","price":"64201.33000000"}`))
	}))
	defer srv.Close()

	quoter := NewBinanceQuoter(srv.URL)
	raw, err := quoter.Quote(context.Background(), AssetBTC, CurrencyUSDT)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if raw != "64201.33000000" {
		t.Fatalf("unexpected price text: %q", raw)
	}
}

func TestBinanceHTTPErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	quoter := NewBinanceQuoter(srv.URL)
	_, err := quoter.Quote(context.Background(), AssetBTC, CurrencyEUR)
	if err == nil {
		t.Fatalf("expected error on http failure")
	}
	if !xerrors.HasCode(err, xerrors.CodePriceTransport) {
		t.Fatalf("expected transport failure, got %v", err)
	}
}
