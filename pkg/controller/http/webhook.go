package http

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/breakwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/breakwatch/pkg/domain/model"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// maxPayloadSize is the upper bound of webhook payloads GitHub delivers
const maxPayloadSize = 25 << 20

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	secret    string
	webhookUC interfaces.WebhookUseCase
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(secret string, webhookUC interfaces.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		webhookUC: webhookUC,
	}
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadSize))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, r, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if err := h.verifySignature(body, r.Header.Get(github.SHA256SignatureHeader)); err != nil {
		logger.Warn("Invalid webhook signature", "error", err)
		writeError(w, r, goerr.New("invalid signature"), http.StatusUnauthorized)
		return
	}

	eventType := github.WebHookType(r)
	event := &model.WebhookEvent{
		ID:         github.DeliveryID(r),
		Type:       model.WebhookEventType(eventType),
		ReceivedAt: time.Now(),
		RawPayload: body,
	}

	// Event types go-github does not know are passed on as unknown and ignored
	var payload any
	if github.EventForType(eventType) != nil {
		payload, err = github.ParseWebHook(eventType, body)
		if err != nil {
			logger.Error("Failed to parse webhook payload", "error", err, "event_type", eventType)
			writeError(w, r, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
			return
		}
	}

	switch e := payload.(type) {
	case *github.PullRequestEvent:
		event.Action = e.GetAction()
		event.Repository = e.GetRepo().GetFullName()
		event.Sender = e.GetSender().GetLogin()
	case *github.PingEvent:
		logger.Info("Received ping", "zen", e.GetZen(), "hook_id", e.GetHookID())
	default:
		event.Type = model.EventTypeUnknown
	}

	if err := h.webhookUC.ProcessEvent(ctx, event); err != nil {
		logger.Error("Failed to process webhook event", "error", err)
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status": "success",
	}); err != nil {
		logger.Error("Failed to encode success response", "error", err)
	}
}

// verifySignature checks the X-Hub-Signature-256 HMAC of payload. A server
// without secret accepts nothing.
func (h *WebhookHandler) verifySignature(payload []byte, signature string) error {
	if h.secret == "" {
		return goerr.New("webhook secret is not configured")
	}
	if err := github.ValidateSignature(signature, payload, []byte(h.secret)); err != nil {
		return goerr.Wrap(err, "signature validation failed")
	}
	return nil
}
