package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/avinm/ledgerdesk/src/config"
	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/model"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	// ErrVaultLocked means the master password did not verify.
	ErrVaultLocked = errors.New("vault master password rejected")
	// ErrTOTPRequired means the vault demands a one-time code for reveal.
	ErrTOTPRequired = errors.New("one-time code required")
	// ErrTOTPInvalid means the supplied one-time code did not verify.
	ErrTOTPInvalid = errors.New("one-time code rejected")
)

const sealPrefix = "v1:"

// VaultService stores client credentials with passwords sealed at rest.
// Sealing key material is derived from the owner's master password with
// argon2id; ciphertext uses ChaCha20-Poly1305 with a random salt and nonce
// per secret. When the owner has enabled it, reveal additionally demands a
// TOTP code.
type VaultService struct {
	DB *sql.DB
}

func NewVaultService(db *sql.DB) *VaultService {
	return &VaultService{DB: db}
}

// unlock verifies the master password against the owner's login hash.
func (s *VaultService) unlock(masterPassword string) (*model.User, error) {
	owner, err := model.GetOwner(s.DB)
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(owner.Password), []byte(masterPassword)) != nil {
		return nil, ErrVaultLocked
	}
	return owner, nil
}

func seal(masterPassword, plaintext string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(masterPassword), salt,
		config.Cfg.VaultKDFTime, config.Cfg.VaultKDFMemoryKiB, 2, chacha20poly1305.KeySize)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := aead.Seal(nil, nonce, []byte(plaintext), nil)

	blob := append(append(salt, nonce...), sealed...)
	return sealPrefix + base64.StdEncoding.EncodeToString(blob), nil
}

func open(masterPassword, sealedStr string) (string, error) {
	if !strings.HasPrefix(sealedStr, sealPrefix) {
		return "", fmt.Errorf("unrecognized sealed secret format")
	}
	blob, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(sealedStr, sealPrefix))
	if err != nil {
		return "", err
	}
	if len(blob) < 16+chacha20poly1305.NonceSizeX {
		return "", fmt.Errorf("sealed secret too short")
	}
	salt, nonce, sealed := blob[:16], blob[16:16+chacha20poly1305.NonceSizeX], blob[16+chacha20poly1305.NonceSizeX:]

	key := argon2.IDKey([]byte(masterPassword), salt,
		config.Cfg.VaultKDFTime, config.Cfg.VaultKDFMemoryKiB, 2, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", ErrVaultLocked
	}
	return string(plaintext), nil
}

func (s *VaultService) validate(c *models.Credential) error {
	if err := validation.ValidateEntityID(c.ID, "credential id"); err != nil {
		return err
	}
	if err := validation.ValidateStringNotEmpty(c.ClientName, "client name"); err != nil {
		return err
	}
	return validation.ValidateStringMaxLength(c.ClientName, validation.MaxNameLength, "client name")
}

// CreateCredential seals every item password before it touches the database.
func (s *VaultService) CreateCredential(ctx context.Context, masterPassword string, c *models.Credential) error {
	if err := s.validate(c); err != nil {
		return err
	}
	if _, err := s.unlock(masterPassword); err != nil {
		return err
	}
	for i := range c.Items {
		sealed, err := seal(masterPassword, c.Items[i].Pass)
		if err != nil {
			return err
		}
		c.Items[i].Pass = sealed
	}
	if err := model.CreateCredential(s.DB, c); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("credential created", "id", c.ID)
	return nil
}

// UpdateCredential reseals items whose password was changed; items sent back
// still sealed keep their existing ciphertext.
func (s *VaultService) UpdateCredential(ctx context.Context, masterPassword string, c *models.Credential) error {
	if err := s.validate(c); err != nil {
		return err
	}
	if _, err := s.unlock(masterPassword); err != nil {
		return err
	}
	for i := range c.Items {
		if strings.HasPrefix(c.Items[i].Pass, sealPrefix) {
			continue
		}
		sealed, err := seal(masterPassword, c.Items[i].Pass)
		if err != nil {
			return err
		}
		c.Items[i].Pass = sealed
	}
	return model.UpdateCredential(s.DB, c)
}

// ListCredentials returns all vault records with passwords still sealed.
func (s *VaultService) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	return model.ListCredentials(s.DB)
}

func (s *VaultService) DeleteCredential(ctx context.Context, id string) error {
	if err := model.DeleteCredential(s.DB, id); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("credential deleted", "id", id)
	return nil
}

// RekeySecrets reseals every stored secret under a new master password. The
// vault key source is the owner's login password, so a password change must
// carry the ciphertexts over or they become unrecoverable.
func (s *VaultService) RekeySecrets(ctx context.Context, oldPassword, newPassword string) error {
	creds, err := model.ListCredentials(s.DB)
	if err != nil {
		return err
	}
	for i := range creds {
		changed := false
		for j := range creds[i].Items {
			if !strings.HasPrefix(creds[i].Items[j].Pass, sealPrefix) {
				continue
			}
			plaintext, err := open(oldPassword, creds[i].Items[j].Pass)
			if err != nil {
				return err
			}
			resealed, err := seal(newPassword, plaintext)
			if err != nil {
				return err
			}
			creds[i].Items[j].Pass = resealed
			changed = true
		}
		if !changed {
			continue
		}
		if err := model.UpdateCredential(s.DB, &creds[i]); err != nil {
			return err
		}
	}
	logger.FromContext(ctx).Info("vault secrets resealed", "credentials", len(creds))
	return nil
}

// Reveal opens one credential's passwords. Requires the master password and,
// when the owner has enabled it, a valid TOTP code.
func (s *VaultService) Reveal(ctx context.Context, id, masterPassword, totpCode string) (*models.Credential, error) {
	owner, err := s.unlock(masterPassword)
	if err != nil {
		return nil, err
	}
	if owner.VaultTOTPEnabled {
		if totpCode == "" {
			return nil, ErrTOTPRequired
		}
		if !totp.Validate(totpCode, owner.VaultTOTPSecret) {
			return nil, ErrTOTPInvalid
		}
	}

	c, err := model.GetCredentialByID(s.DB, id)
	if err != nil {
		return nil, err
	}
	for i := range c.Items {
		plaintext, err := open(masterPassword, c.Items[i].Pass)
		if err != nil {
			return nil, err
		}
		c.Items[i].Pass = plaintext
	}
	logger.FromContext(ctx).Info("credential revealed", "id", id)
	return c, nil
}

// SetupTOTP generates a new vault TOTP secret. It stays disabled until the
// owner confirms a code via EnableTOTP.
func (s *VaultService) SetupTOTP(ctx context.Context, masterPassword string) (secret, url string, err error) {
	owner, err := s.unlock(masterPassword)
	if err != nil {
		return "", "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "LedgerDesk",
		AccountName: owner.Username,
	})
	if err != nil {
		return "", "", err
	}
	if err := model.UpdateVaultTOTP(s.DB, owner.ID, key.Secret(), false); err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// EnableTOTP turns the reveal step-up on after the owner proves possession
// of the secret with one valid code.
func (s *VaultService) EnableTOTP(ctx context.Context, masterPassword, code string) error {
	owner, err := s.unlock(masterPassword)
	if err != nil {
		return err
	}
	if owner.VaultTOTPSecret == "" {
		return fmt.Errorf("no pending one-time code setup")
	}
	if !totp.Validate(code, owner.VaultTOTPSecret) {
		return ErrTOTPInvalid
	}
	if err := model.UpdateVaultTOTP(s.DB, owner.ID, owner.VaultTOTPSecret, true); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("vault one-time code step-up enabled")
	return nil
}

// DisableTOTP clears the step-up requirement.
func (s *VaultService) DisableTOTP(ctx context.Context, masterPassword string) error {
	owner, err := s.unlock(masterPassword)
	if err != nil {
		return err
	}
	return model.UpdateVaultTOTP(s.DB, owner.ID, "", false)
}
