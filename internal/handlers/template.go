package handlers

import (
	"net/http"
	"strings"

	"github.com/billflow/billflow/internal/auth"
	"github.com/billflow/billflow/internal/httpx"
	"github.com/billflow/billflow/internal/models"
	"github.com/billflow/billflow/internal/validation"
	"gorm.io/gorm"
)

type TemplateHandler struct {
	db *gorm.DB
}

func NewTemplateHandler(db *gorm.DB) *TemplateHandler {
	return &TemplateHandler{db: db}
}

type templateReq struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (req *templateReq) validate() validation.Violations {
	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	validation.Required("subject", req.Subject, v)
	validation.Required("body", req.Body, v)
	return v
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var templates []models.EmailTemplate
	if err := h.db.Where("user_id = ?", userID).Order("name").Find(&templates).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_templates", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": templates})
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req templateReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	tmpl := models.EmailTemplate{
		UserID:  userID,
		Name:    strings.TrimSpace(req.Name),
		Subject: req.Subject,
		Body:    req.Body,
	}
	// Reject malformed placeholders at write time, not at send time.
	if err := tmpl.Validate(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"body": "invalid_template"})
		return
	}
	if err := h.db.Create(&tmpl).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_template", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, tmpl)
}

func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var tmpl models.EmailTemplate
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&tmpl).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, tmpl)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var tmpl models.EmailTemplate
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&tmpl).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	var req templateReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := req.validate(); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	tmpl.Name = strings.TrimSpace(req.Name)
	tmpl.Subject = req.Subject
	tmpl.Body = req.Body
	if err := tmpl.Validate(); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"body": "invalid_template"})
		return
	}
	if err := h.db.Save(&tmpl).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_template", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, tmpl)
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var tmpl models.EmailTemplate
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&tmpl).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	// Automations referencing this template keep running but skip sends;
	// detach them instead so the skip reason is visible in their config.
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Automation{}).
			Where("email_template_id = ?", tmpl.ID).
			Update("email_template_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&tmpl).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_template", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
