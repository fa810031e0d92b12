package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jask/modelhub/internal/archive"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/", 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestListApprovedDecodesModels(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/approved-models", r.URL.Path)
		require.NotEmpty(t, r.Header.Get("X-Request-ID"))
		_, _ = io.WriteString(w, `[{"model_id":"a1","model_name":"Alpha","task":"text-generation","status":"approved","created_at":"2024-11-02T10:00:00","nft_id":"0xabc"}]`)
	}))

	models, err := c.ListApproved(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 1)
	require.Equal(t, "a1", models[0].ID)
	require.Equal(t, "Alpha", models[0].Name)
	require.Equal(t, StatusApproved, models[0].Status)
	require.Equal(t, 2024, models[0].CreatedAt.Year())
	require.Equal(t, "0xabc", models[0].NFTID)
}

func TestListPendingNullBodyIsEmpty(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/pending-models", r.URL.Path)
		_, _ = io.WriteString(w, `null`)
	}))
	models, err := c.ListPending(context.Background())
	require.NoError(t, err)
	require.NotNil(t, models)
	require.Empty(t, models)
}

func TestListDecodeFailureIsTransportError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>`)
	}))
	_, err := c.ListApproved(context.Background())
	require.True(t, IsTransport(err))
}

func TestListNon2xxIsServerError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":"ledger offline"}`)
	}))
	_, err := c.ListApproved(context.Background())
	var serr *ServerError
	require.ErrorAs(t, err, &serr)
	require.Equal(t, http.StatusServiceUnavailable, serr.StatusCode)
	require.Equal(t, "ledger offline", serr.Message)
}

func TestAddModelSendsMultipartForm(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/add_model", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "tiny-bert", r.FormValue(FieldModelName))
		require.Equal(t, "classification", r.FormValue(FieldTask))

		f, hdr, err := r.FormFile(FieldModelArchive)
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		require.Equal(t, "weights.zip", hdr.Filename)
		require.Equal(t, "WEIGHTS", string(data))

		f, hdr, err = r.FormFile(FieldTokenizerFile)
		require.NoError(t, err)
		data, _ = io.ReadAll(f)
		require.Equal(t, "tok.zip", hdr.Filename)
		require.Equal(t, "TOKENS", string(data))
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.AddModel(context.Background(), UploadRequest{
		ModelName: " tiny-bert ",
		Task:      "classification",
		Model:     archive.FromBytes("weights.zip", []byte("WEIGHTS")),
		Tokenizer: archive.FromBytes("tok.zip", []byte("TOKENS")),
	})
	require.NoError(t, err)
}

func TestAddModelServerErrorMessage(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"model name already exists"}`)
	}))
	err := c.AddModel(context.Background(), UploadRequest{
		ModelName: "dup",
		Task:      "qa",
		Model:     archive.FromBytes("m.zip", nil),
		Tokenizer: archive.FromBytes("t.zip", nil),
	})
	require.Error(t, err)
	require.Equal(t, "model name already exists", UserMessage(err, "Upload failed"))
}

func TestAddModelValidationSkipsNetwork(t *testing.T) {
	t.Parallel()
	calls := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	err := c.AddModel(context.Background(), UploadRequest{ModelName: "x", Task: "y"})
	require.True(t, IsValidation(err))
	require.Zero(t, calls)
}

func TestAggregateModelsBody(t *testing.T) {
	t.Parallel()
	var got map[string]any
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/aggregate_models", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	err := c.AggregateModels(context.Background(), AggregationRequest{
		ModelName:         "Combo",
		BaseModel:         "Alpha",
		ModelsToAggregate: []string{"Beta"},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"model_name":          "Combo",
		"base_model":          "Alpha",
		"models_to_aggregate": []any{"Beta"},
	}, got)
}

func TestFetchArtifactUsesContentDisposition(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fetch_model", r.URL.Path)
		require.Equal(t, "0x01 02", r.URL.Query().Get("nft_id"))
		w.Header().Set("Content-Disposition", `attachment; filename="alpha.zip"`)
		_, _ = io.WriteString(w, "ZIPDATA")
	}))
	var buf bytes.Buffer
	name, n, err := c.FetchArtifact(context.Background(), "0x01 02", &buf)
	require.NoError(t, err)
	require.Equal(t, "alpha.zip", name)
	require.EqualValues(t, 7, n)
	require.Equal(t, "ZIPDATA", buf.String())
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	t.Parallel()
	_, err := NewClient("localhost:5000", time.Second)
	require.Error(t, err)
}

func TestExplorerBlockURL(t *testing.T) {
	t.Parallel()
	e := Explorer{BaseURL: "https://explorer.shimmer.network/", Network: "shimmer-testnet"}
	require.Equal(t, "https://explorer.shimmer.network/shimmer-testnet/block/0xabc", e.BlockURL("0xabc"))
	require.Empty(t, e.BlockURL(""))
}
