package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/my-mailer/internal/common"
	"github.com/noah-isme/my-mailer/internal/submission"
)

const thankYouMessage = "Thank you for your message! We will get back to you soon."

// Handler exposes the contact form endpoint.
type Handler struct {
	Service *Service
}

// Request documents the accepted JSON body.
type Request struct {
	Name    string `json:"name" example:"John Doe"`
	Email   string `json:"email" example:"john.doe@example.com"`
	Subject string `json:"subject" example:"Inquiry"`
	Message string `json:"message" example:"Hello"`
}

// Response is returned for an accepted submission.
type Response struct {
	Success      bool   `json:"success" example:"true"`
	Message      string `json:"message" example:"Thank you for your message! We will get back to you soon."`
	SubmissionID string `json:"submission_id" example:"20250305_141502_123456"`
	EmailSent    bool   `json:"email_sent" example:"true"`
}

// Routes mounts the handler on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/contact", h.Submit)
}

// Submit godoc
// @Summary Submit a contact form message
// @Description Validates the message, stores it and notifies the site owner by email.
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body Request true "Contact form"
// @Success 201 {object} Response
// @Failure 400 {object} common.ErrorBody
// @Failure 413 {object} common.ErrorBody
// @Failure 500 {object} common.ErrorBody
// @Router /api/contact [post]
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "contact service not configured")
		return
	}

	var raw map[string]any
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil || len(raw) == 0 {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			common.JSONError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		common.JSONError(w, http.StatusBadRequest, "No data provided")
		return
	}

	out, err := h.Service.Process(r.Context(), raw, common.ClientIP(r, submission.UnknownOrigin))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, Response{
		Success:      true,
		Message:      thankYouMessage,
		SubmissionID: out.SubmissionID,
		EmailSent:    out.EmailSent,
	})
}
