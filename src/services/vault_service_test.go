package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
)

// Low KDF cost so the argon2 derivation does not dominate the test run.
func vaultTestConfig() {
	config.Cfg = &config.AppConfig{
		VaultKDFMemoryKiB: 8 * 1024,
		VaultKDFTime:      1,
	}
}

func seedOwner(t *testing.T, db *sql.DB, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = model.CreateUser(db, "owner", string(hash))
	require.NoError(t, err)
}

func TestSealOpenRoundTrip(t *testing.T) {
	vaultTestConfig()

	sealed, err := seal("master-pw", "hunter2")
	require.NoError(t, err)
	assert.NotContains(t, sealed, "hunter2")

	plain, err := open("master-pw", sealed)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plain)
}

func TestOpenRejectsWrongMasterPassword(t *testing.T) {
	vaultTestConfig()

	sealed, err := seal("master-pw", "hunter2")
	require.NoError(t, err)

	_, err = open("wrong-pw", sealed)
	assert.ErrorIs(t, err, ErrVaultLocked)
}

func TestSealIsSaltedPerSecret(t *testing.T) {
	vaultTestConfig()

	first, err := seal("master-pw", "hunter2")
	require.NoError(t, err)
	second, err := seal("master-pw", "hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCredentialLifecycle(t *testing.T) {
	vaultTestConfig()
	db := newTestDB(t)
	svc := NewVaultService(db)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")

	cred := &models.Credential{
		ID:         "c1",
		ClientName: "Acme Portal",
		Items: []models.CredentialItem{
			{Label: "gst", User: "acme", Pass: "secret-one"},
			{Label: "bank", User: "acme-fin", Pass: "secret-two"},
		},
	}
	require.NoError(t, svc.CreateCredential(ctx, "login-pw", cred))

	// Listing never exposes plaintext.
	listed, err := svc.ListCredentials(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	for _, item := range listed[0].Items {
		assert.Contains(t, item.Pass, "v1:")
		assert.NotContains(t, item.Pass, "secret")
	}

	revealed, err := svc.Reveal(ctx, "c1", "login-pw", "")
	require.NoError(t, err)
	assert.Equal(t, "secret-one", revealed.Items[0].Pass)
	assert.Equal(t, "secret-two", revealed.Items[1].Pass)
}

func TestCreateCredentialRejectsWrongMaster(t *testing.T) {
	vaultTestConfig()
	db := newTestDB(t)
	svc := NewVaultService(db)

	seedOwner(t, db, "login-pw")

	cred := &models.Credential{ID: "c1", ClientName: "Acme", Items: []models.CredentialItem{{Pass: "x"}}}
	err := svc.CreateCredential(context.Background(), "nope", cred)
	assert.ErrorIs(t, err, ErrVaultLocked)
}

func TestUpdateCredentialKeepsSealedItems(t *testing.T) {
	vaultTestConfig()
	db := newTestDB(t)
	svc := NewVaultService(db)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")

	cred := &models.Credential{
		ID: "c1", ClientName: "Acme",
		Items: []models.CredentialItem{{Label: "gst", User: "acme", Pass: "old-secret"}},
	}
	require.NoError(t, svc.CreateCredential(ctx, "login-pw", cred))

	stored, err := model.GetCredentialByID(db, "c1")
	require.NoError(t, err)
	sealedPass := stored.Items[0].Pass

	// Echo the sealed item back unchanged and add a new plaintext one.
	stored.Items = append(stored.Items, models.CredentialItem{Label: "bank", User: "acme", Pass: "new-secret"})
	require.NoError(t, svc.UpdateCredential(ctx, "login-pw", stored))

	after, err := model.GetCredentialByID(db, "c1")
	require.NoError(t, err)
	require.Len(t, after.Items, 2)
	assert.Equal(t, sealedPass, after.Items[0].Pass)

	revealed, err := svc.Reveal(ctx, "c1", "login-pw", "")
	require.NoError(t, err)
	assert.Equal(t, "old-secret", revealed.Items[0].Pass)
	assert.Equal(t, "new-secret", revealed.Items[1].Pass)
}

func TestRekeySecretsCarriesCiphertextsOver(t *testing.T) {
	vaultTestConfig()
	db := newTestDB(t)
	svc := NewVaultService(db)
	ctx := context.Background()

	seedOwner(t, db, "old-pw")

	cred := &models.Credential{
		ID: "c1", ClientName: "Acme",
		Items: []models.CredentialItem{{Label: "gst", Pass: "hunter2"}},
	}
	require.NoError(t, svc.CreateCredential(ctx, "old-pw", cred))

	require.NoError(t, svc.RekeySecrets(ctx, "old-pw", "new-pw"))

	// Simulate the login password change that follows a rekey.
	owner, err := model.GetOwner(db)
	require.NoError(t, err)
	hash, err := bcrypt.GenerateFromPassword([]byte("new-pw"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, model.UpdatePassword(db, owner.ID, string(hash)))

	revealed, err := svc.Reveal(ctx, "c1", "new-pw", "")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", revealed.Items[0].Pass)
}

func TestRevealDemandsCodeWhenStepUpEnabled(t *testing.T) {
	vaultTestConfig()
	db := newTestDB(t)
	svc := NewVaultService(db)
	ctx := context.Background()

	seedOwner(t, db, "login-pw")

	owner, err := model.GetOwner(db)
	require.NoError(t, err)
	require.NoError(t, model.UpdateVaultTOTP(db, owner.ID, "JBSWY3DPEHPK3PXP", true))

	cred := &models.Credential{ID: "c1", ClientName: "Acme", Items: []models.CredentialItem{{Pass: "x"}}}
	require.NoError(t, svc.CreateCredential(ctx, "login-pw", cred))

	_, err = svc.Reveal(ctx, "c1", "login-pw", "")
	assert.ErrorIs(t, err, ErrTOTPRequired)

	_, err = svc.Reveal(ctx, "c1", "login-pw", "000000")
	assert.ErrorIs(t, err, ErrTOTPInvalid)
}
