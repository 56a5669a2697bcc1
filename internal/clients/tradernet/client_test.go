package tradernet

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPortfolioParsesPositions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/portfolio/positions", r.URL.Path)
		w.Write([]byte(`{"success":true,"data":{"positions":[
			{"symbol":"AAPL","quantity":10,"avg_price":150,"current_price":170,"currency":"USD"}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	positions, err := c.GetPortfolio()
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, 170.0, positions[0].CurrentPrice)
}

func TestFindSymbolParsesResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/securities/find", r.URL.Path)
		require.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"success":true,"data":{"found":[
			{"symbol":"AAPL","name":"Apple Inc","isin":"US0378331005","currency":"USD","exchange_code":"NASDAQ"}
		]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	found, err := c.FindSymbol("AAPL", nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.NotNil(t, found[0].ISIN)
	assert.Equal(t, "US0378331005", *found[0].ISIN)
}

func TestErrorEnvelopeSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"account locked"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, zerolog.Nop())
	_, err := c.GetPortfolio()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account locked")
}
