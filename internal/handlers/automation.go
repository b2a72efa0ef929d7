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

type AutomationHandler struct {
	db *gorm.DB
}

func NewAutomationHandler(db *gorm.DB) *AutomationHandler {
	return &AutomationHandler{db: db}
}

type automationReq struct {
	Name            string                   `json:"name"`
	Trigger         models.AutomationTrigger `json:"trigger"`
	TriggerData     models.TriggerData       `json:"trigger_data,omitempty"`
	EmailTemplateID *uint                    `json:"email_template_id,omitempty"`
	Active          *bool                    `json:"active,omitempty"`
}

// apply copies the request onto the automation and returns violations.
// Template ownership is checked against the session user.
func (h *AutomationHandler) apply(userID uint, req *automationReq, a *models.Automation) validation.Violations {
	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	if !req.Trigger.Valid() {
		v["trigger"] = "unknown_trigger"
	}

	a.Name = strings.TrimSpace(req.Name)
	a.Trigger = req.Trigger
	a.TriggerData = req.TriggerData
	a.EmailTemplateID = req.EmailTemplateID
	if req.Active != nil {
		a.Active = *req.Active
	}

	if v.Empty() {
		if err := a.ValidateTriggerData(); err != nil {
			v["trigger_data"] = "invalid_trigger_data"
		}
	}
	if req.EmailTemplateID != nil {
		var count int64
		h.db.Model(&models.EmailTemplate{}).
			Where("id = ? AND user_id = ?", *req.EmailTemplateID, userID).
			Count(&count)
		if count == 0 {
			v["email_template_id"] = "unknown_template"
		}
	}
	return v
}

func (h *AutomationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var automations []models.Automation
	err := h.db.Where("user_id = ?", userID).
		Preload("EmailTemplate").
		Order("created_at DESC").
		Find(&automations).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_automations", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": automations})
}

func (h *AutomationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req automationReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	a := models.Automation{UserID: userID, Active: true}
	if v := h.apply(userID, &req, &a); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if err := h.db.Create(&a).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_automation", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, a)
}

func (h *AutomationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var a models.Automation
	err := h.db.Where("id = ? AND user_id = ?", id, userID).
		Preload("EmailTemplate").
		First(&a).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

func (h *AutomationHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var a models.Automation
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	var req automationReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if v := h.apply(userID, &req, &a); !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	if err := h.db.Save(&a).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_automation", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, a)
}

type toggleReq struct {
	Active bool `json:"active"`
}

// Toggle: PATCH /api/automations/{id} — flips only the active flag.
// Toggling twice restores the original value.
func (h *AutomationHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var a models.Automation
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	var req toggleReq
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	if err := h.db.Model(&a).Update("active", req.Active).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_automation", nil)
		return
	}
	a.Active = req.Active
	httpx.JSON(w, http.StatusOK, a)
}

func (h *AutomationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var a models.Automation
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("automation_id = ?", a.ID).Delete(&models.AutomationRun{}).Error; err != nil {
			return err
		}
		return tx.Delete(&a).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_automation", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Runs: GET /api/automations/{id}/runs — the delivery log.
func (h *AutomationHandler) Runs(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id := r.PathValue("id")

	var a models.Automation
	if err := h.db.Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}

	var runs []models.AutomationRun
	err := h.db.Where("automation_id = ?", a.ID).
		Order("ran_at DESC").Limit(100).
		Find(&runs).Error
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_runs", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": runs})
}
