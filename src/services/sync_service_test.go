package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
)

// blobStore is a minimal in-memory stand-in for the remote blob endpoint.
type blobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newBlobServer(t *testing.T) (*httptest.Server, *blobStore) {
	t.Helper()
	store := &blobStore{blobs: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/blobs/", func(w http.ResponseWriter, r *http.Request) {
		store.mu.Lock()
		defer store.mu.Unlock()
		key := r.URL.Path
		switch r.Method {
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			store.blobs[key] = body
			w.WriteHeader(http.StatusNoContent)
		case http.MethodGet:
			blob, ok := store.blobs[key]
			if !ok {
				http.NotFound(w, r)
				return
			}
			w.Write(blob)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, store
}

func syncTestConfig(baseURL string) {
	config.Cfg = &config.AppConfig{
		SyncBaseURL:        baseURL,
		SyncTimeout:        5 * time.Second,
		AutoSyncPush:       true,
		MaxImportSizeBytes: 10 * 1024 * 1024,
	}
}

func TestEnableSyncMintsIDAndSeedsRemote(t *testing.T) {
	srv, store := newBlobServer(t)
	syncTestConfig(srv.URL)

	db := newTestDB(t)
	snapshot := NewSnapshotService(db, NewLedgerService(db))
	svc := NewSyncService(db, snapshot)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")
	seedAccount(t, db, "acc1", "1000")

	syncID, err := svc.EnableSync(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, syncID)

	// The remote end now holds the seeded snapshot.
	store.mu.Lock()
	raw, ok := store.blobs["/blobs/"+syncID]
	store.mu.Unlock()
	require.True(t, ok)

	var blob struct {
		Payload   models.AppData `json:"payload"`
		UpdatedAt string         `json:"updatedAt"`
	}
	require.NoError(t, json.Unmarshal(raw, &blob))
	assert.Equal(t, "owner", blob.Payload.Auth.UserID)
	require.Len(t, blob.Payload.Accounts, 1)
	assert.NotEmpty(t, blob.UpdatedAt)

	// A successful push stamps LastSynced.
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, syncID, status.SyncID)
	assert.NotEmpty(t, status.LastSynced)
}

func TestPullReplacesLocalData(t *testing.T) {
	srv, store := newBlobServer(t)
	syncTestConfig(srv.URL)

	db := newTestDB(t)
	snapshot := NewSnapshotService(db, NewLedgerService(db))
	svc := NewSyncService(db, snapshot)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")
	seedAccount(t, db, "local-acc", "1")

	owner, err := model.GetOwner(db)
	require.NoError(t, err)
	require.NoError(t, model.UpdateSyncInfo(db, owner.ID, "remote-1", true, ""))

	remote := models.AppData{
		Auth: models.AuthInfo{UserID: "owner", Password: "hash"},
		Accounts: []models.Account{
			{ID: "acc1", Name: "Remote Bank", Type: models.AccountBank, OpeningBalance: dec("700")},
		},
		Transactions: []models.Transaction{
			{ID: "t1", Type: models.TypeIncome, Date: "2024-03-01", Description: "Fees", Account: "acc1", Amount: dec("100")},
		},
	}
	raw, err := json.Marshal(map[string]any{"payload": remote, "updatedAt": "2024-03-02T10:00:00Z"})
	require.NoError(t, err)
	store.mu.Lock()
	store.blobs["/blobs/remote-1"] = raw
	store.mu.Unlock()

	require.NoError(t, svc.Pull(ctx))

	// Remote state replaced local wholesale, balances rebuilt from the log.
	_, err = model.GetAccountByID(db, "local-acc")
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.True(t, dec("800").Equal(accountBalance(t, db, "acc1")))

	// The local sync binding survives; LastSynced takes the remote stamp.
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", status.SyncID)
	assert.Equal(t, "2024-03-02T10:00:00Z", status.LastSynced)
}

func TestPullWithoutRemoteBlobFails(t *testing.T) {
	srv, _ := newBlobServer(t)
	syncTestConfig(srv.URL)

	db := newTestDB(t)
	svc := NewSyncService(db, NewSnapshotService(db, NewLedgerService(db)))
	ctx := context.Background()

	seedOwner(t, db, "login-pw")
	owner, err := model.GetOwner(db)
	require.NoError(t, err)
	require.NoError(t, model.UpdateSyncInfo(db, owner.ID, "missing", true, ""))

	err = svc.Pull(ctx)
	assert.ErrorContains(t, err, "no remote snapshot")
}

func TestSyncDisabledWithoutBaseURL(t *testing.T) {
	syncTestConfig("")

	db := newTestDB(t)
	svc := NewSyncService(db, NewSnapshotService(db, NewLedgerService(db)))
	ctx := context.Background()

	seedOwner(t, db, "login-pw")

	_, err := svc.EnableSync(ctx, "")
	assert.ErrorIs(t, err, ErrSyncDisabled)
	assert.ErrorIs(t, svc.Pull(ctx), ErrSyncDisabled)
}

func TestSetAutoSyncTogglesFlag(t *testing.T) {
	syncTestConfig("")

	db := newTestDB(t)
	svc := NewSyncService(db, NewSnapshotService(db, NewLedgerService(db)))
	ctx := context.Background()

	seedOwner(t, db, "login-pw")

	require.NoError(t, svc.SetAutoSync(ctx, false))
	status, err := svc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, status.AutoSync)

	require.NoError(t, svc.SetAutoSync(ctx, true))
	status, err = svc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, status.AutoSync)
}
