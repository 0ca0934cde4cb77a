package moysklad

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(zerolog.Nop(), Config{BaseURL: "https://example.com"})
	require.ErrorIs(t, err, ErrNoCredentials)

	_, err = New(zerolog.Nop(), Config{BaseURL: "https://example.com", Login: "user"})
	require.ErrorIs(t, err, ErrNoCredentials)

	_, err = New(zerolog.Nop(), Config{BaseURL: "https://example.com", Token: "t"})
	require.NoError(t, err)

	_, err = New(zerolog.Nop(), Config{BaseURL: "https://example.com", Login: "user", Password: "pass"})
	require.NoError(t, err)
}

func TestTokenTakesPrecedenceOverBasicAuth(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"meta":{"size":0},"rows":[]}`))
	}))
	defer srv.Close()

	c, err := New(zerolog.Nop(), Config{BaseURL: srv.URL, Token: "sekret", Login: "user", Password: "pass"})
	require.NoError(t, err)

	_, err = c.Products(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sekret", gotAuth)
}

func TestBasicAuthWhenNoToken(t *testing.T) {
	var gotUser, gotPass string
	var gotOK bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotOK = r.BasicAuth()
		w.Write([]byte(`{"meta":{"size":0},"rows":[]}`))
	}))
	defer srv.Close()

	c, err := New(zerolog.Nop(), Config{BaseURL: srv.URL, Login: "user", Password: "pass"})
	require.NoError(t, err)

	_, err = c.Products(context.Background(), 10, 0)
	require.NoError(t, err)
	require.True(t, gotOK)
	assert.Equal(t, "user", gotUser)
	assert.Equal(t, "pass", gotPass)
}

func TestListEndpointsAndPaging(t *testing.T) {
	var gotPath, gotLimit, gotOffset string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotLimit = r.URL.Query().Get("limit")
		gotOffset = r.URL.Query().Get("offset")
		w.Write([]byte(`{"meta":{"size":42},"rows":[{"id":"abc","name":"Widget"}]}`))
	}))
	defer srv.Close()

	c, err := New(zerolog.Nop(), Config{BaseURL: srv.URL, Token: "t"})
	require.NoError(t, err)

	resp, err := c.Products(context.Background(), 25, 50)
	require.NoError(t, err)
	assert.Equal(t, "/entity/product", gotPath)
	assert.Equal(t, "25", gotLimit)
	assert.Equal(t, "50", gotOffset)
	assert.Equal(t, 42, resp.Meta.Size)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "abc", resp.Rows[0].ID())
	assert.Equal(t, "Widget", resp.Rows[0].Name())

	_, err = c.Stock(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "/report/stock/all", gotPath)

	_, err = c.Orders(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "/entity/customerorder", gotPath)

	_, err = c.Categories(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "/entity/productfolder", gotPath)

	_, err = c.Counterparties(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, "/entity/counterparty", gotPath)
}

func TestNon2xxBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"error":"boom"}]}`, http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(zerolog.Nop(), Config{BaseURL: srv.URL, Token: "t"})
	require.NoError(t, err)

	_, err = c.Products(context.Background(), 10, 0)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Body, "boom")
}

func TestTransportErrorBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c, err := New(zerolog.Nop(), Config{BaseURL: srv.URL, Token: "t"})
	require.NoError(t, err)

	_, err = c.Products(context.Background(), 10, 0)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Zero(t, apiErr.Status)
	assert.Error(t, apiErr.Unwrap())
}

func TestSingleRecordOps(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.Write([]byte(`{"id":"p1","name":"Widget"}`))
	}))
	defer srv.Close()

	c, err := New(zerolog.Nop(), Config{BaseURL: srv.URL, Token: "t"})
	require.NoError(t, err)

	rec, err := c.Product(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", rec.ID())
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/entity/product/p1", gotPath)

	_, err = c.CreateProduct(context.Background(), Record{"name": "New"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/entity/product", gotPath)

	_, err = c.UpdateProduct(context.Background(), "p1", Record{"name": "Renamed"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/entity/product/p1", gotPath)

	_, err = c.CreateOrder(context.Background(), Record{"name": "00001"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/entity/customerorder", gotPath)
}
