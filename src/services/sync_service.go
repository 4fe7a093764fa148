package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/google/uuid"
)

// ErrSyncDisabled is returned when no remote blob store is configured.
var ErrSyncDisabled = errors.New("remote sync is not configured")

// syncBlob is the wire shape stored at the remote end. Conflict resolution
// is last-write-wins on UpdatedAt; there is no merging.
type syncBlob struct {
	Payload   models.AppData `json:"payload"`
	UpdatedAt string         `json:"updatedAt"`
}

// SyncService mirrors the full snapshot to a remote JSON blob store keyed by
// an opaque sync id. Push is fire-and-forget: failures are logged and the
// local write has already committed. Pull blocks and replaces local data.
type SyncService struct {
	DB       *sql.DB
	Snapshot *SnapshotService
	Client   *http.Client
}

func NewSyncService(db *sql.DB, snapshot *SnapshotService) *SyncService {
	return &SyncService{
		DB:       db,
		Snapshot: snapshot,
		Client:   &http.Client{Timeout: config.Cfg.SyncTimeout},
	}
}

func (s *SyncService) Enabled() bool {
	return config.Cfg.SyncBaseURL != ""
}

func (s *SyncService) blobURL(syncID string) string {
	return fmt.Sprintf("%s/blobs/%s", config.Cfg.SyncBaseURL, syncID)
}

// EnableSync binds the owner to a sync id, minting a fresh one when none is
// supplied, and seeds the remote blob with the current snapshot.
func (s *SyncService) EnableSync(ctx context.Context, syncID string) (string, error) {
	if !s.Enabled() {
		return "", ErrSyncDisabled
	}
	owner, err := model.GetOwner(s.DB)
	if err != nil {
		return "", err
	}
	if syncID == "" {
		syncID = uuid.NewString()
	}
	if err := model.UpdateSyncInfo(s.DB, owner.ID, syncID, owner.AutoSync, owner.LastSynced); err != nil {
		return "", err
	}
	if err := s.pushNow(ctx); err != nil {
		return "", err
	}
	return syncID, nil
}

// Push uploads the snapshot in the background when auto-sync is on. The
// caller's request finishes regardless of the upload outcome; failures only
// surface in the log.
func (s *SyncService) Push(ctx context.Context) {
	if !s.Enabled() || !config.Cfg.AutoSyncPush {
		return
	}
	owner, err := model.GetOwner(s.DB)
	if err != nil || owner.SyncID == "" || !owner.AutoSync {
		return
	}
	log := logger.FromContext(ctx)
	go func() {
		pushCtx, cancel := context.WithTimeout(context.Background(), config.Cfg.SyncTimeout)
		defer cancel()
		if err := s.push(pushCtx); err != nil {
			log.Warn("background sync push failed", "error", err)
		}
	}()
}

// PushNow uploads the snapshot and waits for the result.
func (s *SyncService) pushNow(ctx context.Context) error {
	if !s.Enabled() {
		return ErrSyncDisabled
	}
	return s.push(ctx)
}

func (s *SyncService) push(ctx context.Context) error {
	owner, err := model.GetOwner(s.DB)
	if err != nil {
		return err
	}
	if owner.SyncID == "" {
		return ErrSyncDisabled
	}

	data, err := s.Snapshot.Assemble(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(syncBlob{Payload: *data, UpdatedAt: now})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.blobURL(owner.SyncID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if config.Cfg.SyncAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+config.Cfg.SyncAPIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("blob store returned %s", resp.Status)
	}

	if err := model.UpdateSyncInfo(s.DB, owner.ID, owner.SyncID, owner.AutoSync, now); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("sync push completed", "syncId", owner.SyncID)
	return nil
}

// Pull downloads the remote blob and replaces local data with it. This is
// the blocking half of last-write-wins: whatever is remote becomes local.
func (s *SyncService) Pull(ctx context.Context) error {
	if !s.Enabled() {
		return ErrSyncDisabled
	}
	owner, err := model.GetOwner(s.DB)
	if err != nil {
		return err
	}
	if owner.SyncID == "" {
		return ErrSyncDisabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.blobURL(owner.SyncID), nil)
	if err != nil {
		return err
	}
	if config.Cfg.SyncAPIKey != "" {
		req.Header.Set("Authorization", "Bearer "+config.Cfg.SyncAPIKey)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("no remote snapshot exists for this sync id")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("blob store returned %s", resp.Status)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, config.Cfg.MaxImportSizeBytes))
	if err != nil {
		return err
	}
	var blob syncBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return fmt.Errorf("remote blob is not valid JSON: %w", err)
	}
	if blob.Payload.Auth.UserID == "" {
		return fmt.Errorf("remote blob has no owner identity")
	}

	// Keep the local sync binding; the remote payload may carry stale info.
	blob.Payload.Sync.SyncID = owner.SyncID
	blob.Payload.Sync.AutoSync = owner.AutoSync
	blob.Payload.Sync.LastSynced = blob.UpdatedAt

	if err := s.Snapshot.Restore(ctx, &blob.Payload); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("sync pull completed", "syncId", owner.SyncID, "remoteUpdatedAt", blob.UpdatedAt)
	return nil
}

// SetAutoSync toggles automatic pushes after each mutation.
func (s *SyncService) SetAutoSync(ctx context.Context, enabled bool) error {
	owner, err := model.GetOwner(s.DB)
	if err != nil {
		return err
	}
	return model.UpdateSyncInfo(s.DB, owner.ID, owner.SyncID, enabled, owner.LastSynced)
}

// Status reports the owner's sync binding.
func (s *SyncService) Status(ctx context.Context) (*models.SyncInfo, error) {
	owner, err := model.GetOwner(s.DB)
	if err != nil {
		return nil, err
	}
	return &models.SyncInfo{SyncID: owner.SyncID, AutoSync: owner.AutoSync, LastSynced: owner.LastSynced}, nil
}
