package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3.1:8b-instruct-q4_0"},{"name":"nomic-embed-text"}]}`))
	}))
	defer srv.Close()

	models, err := ListModels(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b-instruct-q4_0", "nomic-embed-text"}, models)
}

func TestListModelsServerDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := ListModels(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestListModelsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := ListModels(context.Background(), srv.URL)
	assert.Error(t, err)
}
