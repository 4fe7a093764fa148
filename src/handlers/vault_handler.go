package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avinm/ledgerdesk/src/logger"
	"github.com/avinm/ledgerdesk/src/models"
	"github.com/avinm/ledgerdesk/src/security/validation"
	"github.com/avinm/ledgerdesk/src/services"
	"github.com/avinm/ledgerdesk/src/utils"
)

type VaultHandler struct {
	vault *services.VaultService
}

func NewVaultHandler(vaultService *services.VaultService) *VaultHandler {
	return &VaultHandler{vault: vaultService}
}

// credentialRequest carries the master password alongside the record, so
// the vault can seal item passwords before they are stored.
type credentialRequest struct {
	models.Credential
	MasterPassword string `json:"masterPassword"`
}

func sanitizeCredential(c *models.Credential) {
	c.ClientName = validation.SanitizeText(c.ClientName)
	c.Email = validation.SanitizeText(c.Email)
	for i := range c.Items {
		c.Items[i].Label = validation.SanitizeText(c.Items[i].Label)
		c.Items[i].User = validation.SanitizeText(c.Items[i].User)
		c.Items[i].Link = validation.SanitizeText(c.Items[i].Link)
	}
}

func (h *VaultHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	sanitizeCredential(&req.Credential)

	if err := h.vault.CreateCredential(r.Context(), req.MasterPassword, &req.Credential); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, req.Credential, http.StatusCreated)
}

func (h *VaultHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Credential.ID = chi.URLParam(r, "id")
	sanitizeCredential(&req.Credential)

	if err := h.vault.UpdateCredential(r.Context(), req.MasterPassword, &req.Credential); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, req.Credential, http.StatusOK)
}

func (h *VaultHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.vault.DeleteCredential(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Credential deleted"}, http.StatusOK)
}

// HandleList returns all vault records with passwords still sealed.
func (h *VaultHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	creds, err := h.vault.ListCredentials(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("Failed to list credentials", "error", err)
		utils.SendJSONError(w, "Failed to list credentials", http.StatusInternalServerError)
		return
	}
	utils.SendJSON(w, creds, http.StatusOK)
}

// HandleReveal opens one record's passwords after master password (and TOTP,
// when enabled) verification.
func (h *VaultHandler) HandleReveal(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		MasterPassword string `json:"masterPassword"`
		Code           string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cred, err := h.vault.Reveal(r.Context(), chi.URLParam(r, "id"), requestBody.MasterPassword, requestBody.Code)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, cred, http.StatusOK)
}

func (h *VaultHandler) HandleSetupTOTP(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		MasterPassword string `json:"masterPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	secret, url, err := h.vault.SetupTOTP(r.Context(), requestBody.MasterPassword)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"secret": secret, "url": url}, http.StatusOK)
}

func (h *VaultHandler) HandleEnableTOTP(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		MasterPassword string `json:"masterPassword"`
		Code           string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.vault.EnableTOTP(r.Context(), requestBody.MasterPassword, requestBody.Code); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Vault step-up enabled"}, http.StatusOK)
}

func (h *VaultHandler) HandleDisableTOTP(w http.ResponseWriter, r *http.Request) {
	var requestBody struct {
		MasterPassword string `json:"masterPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&requestBody); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.vault.DisableTOTP(r.Context(), requestBody.MasterPassword); err != nil {
		handleServiceError(w, r, err)
		return
	}
	utils.SendJSON(w, map[string]string{"message": "Vault step-up disabled"}, http.StatusOK)
}
