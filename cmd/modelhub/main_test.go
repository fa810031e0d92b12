package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jask/modelhub/internal/config"
	"github.com/jask/modelhub/internal/registry"
	"github.com/jask/modelhub/internal/session"
)

func testEnv(t *testing.T, url string) *env {
	t.Helper()
	client, err := registry.NewClient(url, time.Second)
	require.NoError(t, err)
	return &env{
		cfg: config.Config{
			UI:       config.UIConfig{DateFormat: "2006-01-02", Timezone: "UTC"},
			Explorer: config.ExplorerConfig{BaseURL: "https://explorer.example", Network: "testnet"},
			Journal:  config.JournalConfig{Path: filepath.Join(t.TempDir(), "journal.db")},
		},
		log:    zaptest.NewLogger(t).Sugar(),
		client: client,
	}
}

func TestResolveSuggestsClosest(t *testing.T) {
	t.Parallel()
	approved := []registry.Model{{ID: "a1", Name: "Alpha"}, {ID: "b1", Name: "Beta"}}

	m, err := resolve(approved, "alpha", nil)
	require.NoError(t, err)
	require.Equal(t, "a1", m.ID)

	m, err = resolve(approved, "b1", nil)
	require.NoError(t, err)
	require.Equal(t, "Beta", m.Name)

	_, err = resolve(approved, "Betta", nil)
	require.ErrorContains(t, err, `did you mean "Beta"`)
}

func TestPrintModels(t *testing.T) {
	t.Parallel()
	e := testEnv(t, "http://localhost:5000")
	models := []registry.Model{{
		ID:        "a1",
		Name:      "Alpha",
		NFTID:     "blk-a",
		CreatedAt: registry.Timestamp{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}}

	var buf bytes.Buffer
	require.NoError(t, printModels(&buf, e, session.Approved, models))
	out := buf.String()
	require.Contains(t, out, "EXPLORER")
	require.Contains(t, out, "2024-03-01")
	require.Contains(t, out, "https://explorer.example/testnet/block/blk-a")

	buf.Reset()
	require.NoError(t, printModels(&buf, e, session.Pending, nil))
	require.Equal(t, "No pending models\n", buf.String())
}

func TestAggregateCommandSendsRequest(t *testing.T) {
	var (
		mu   sync.Mutex
		sent []registry.AggregationRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/approved-models":
			_ = json.NewEncoder(w).Encode([]registry.Model{{ID: "a1", Name: "Alpha"}, {ID: "b1", Name: "Beta"}})
		case "/aggregate_models":
			var req registry.AggregationRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			mu.Lock()
			sent = append(sent, req)
			mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	e := testEnv(t, srv.URL)
	cmd := aggregateCmd(func() *env { return e })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--name", "Combo", "--base", "alpha", "--member", "Beta"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []registry.AggregationRequest{{
		ModelName:         "Combo",
		BaseModel:         "Alpha",
		ModelsToAggregate: []string{"Beta"},
	}}, sent)
	require.Contains(t, out.String(), `"model_name": "Combo"`)
	require.Contains(t, out.String(), session.MsgAggregating)
}

func TestUploadCommandRejectsNonZip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	dir := t.TempDir()
	txt := filepath.Join(dir, "model.txt")
	require.NoError(t, writeFile(txt))

	e := testEnv(t, srv.URL)
	cmd := uploadCmd(func() *env { return e })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--name", "tiny", "--task", "qa", "--model", txt})
	err := cmd.ExecuteContext(context.Background())
	require.ErrorContains(t, err, session.MsgZipOnly)
}

func TestConfigCommandSaves(t *testing.T) {
	e := testEnv(t, "http://localhost:5000")
	e.cfgPath = filepath.Join(t.TempDir(), "modelhub.toml")
	e.cfg.API.URL = "http://localhost:5000"
	e.cfg.Download.Dir = "/tmp/artifacts"

	cmd := configCmd(func() *env { return e })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--save"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	require.Contains(t, out.String(), "http://localhost:5000")
	require.Contains(t, out.String(), "Saved "+e.cfgPath)

	loaded, err := config.Read(config.New(), e.cfgPath)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:5000", loaded.API.URL)
	require.Equal(t, "/tmp/artifacts", loaded.Download.Dir)
}

func writeFile(path string) error {
	return os.WriteFile(path, []byte("x"), 0o600)
}
