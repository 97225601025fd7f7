package sevexport

import (
	"sync"

	"github.com/agentstation/sevexport/internal/attachments"
	"github.com/agentstation/sevexport/pkg/entities"
)

// Hook function types for export events
type (
	// ModelFetchedHook is called after a model is fetched and written
	ModelFetchedHook func(set *entities.Set)

	// AttachmentSavedHook is called after an attachment is written
	AttachmentSavedHook func(attachment *attachments.Attachment)

	// AttachmentSkippedHook is called when an attachment could not be downloaded
	AttachmentSkippedHook func(req attachments.Request, err error)
)

// hooks manages event callbacks of an export run
type hooks struct {
	mu                  sync.RWMutex
	onModelFetched      []ModelFetchedHook
	onAttachmentSaved   []AttachmentSavedHook
	onAttachmentSkipped []AttachmentSkippedHook
}

// newHooks creates a new hooks instance
func newHooks() *hooks {
	return &hooks{}
}

// OnModelFetched registers a callback for fetched models
func (h *hooks) OnModelFetched(fn ModelFetchedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onModelFetched = append(h.onModelFetched, fn)
}

// OnAttachmentSaved registers a callback for written attachments
func (h *hooks) OnAttachmentSaved(fn AttachmentSavedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAttachmentSaved = append(h.onAttachmentSaved, fn)
}

// OnAttachmentSkipped registers a callback for attachments that failed to download
func (h *hooks) OnAttachmentSkipped(fn AttachmentSkippedHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAttachmentSkipped = append(h.onAttachmentSkipped, fn)
}

func (h *hooks) modelFetched(set *entities.Set) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onModelFetched {
		hook(set)
	}
}

func (h *hooks) attachmentSaved(a *attachments.Attachment) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onAttachmentSaved {
		hook(a)
	}
}

func (h *hooks) attachmentSkipped(req attachments.Request, err error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, hook := range h.onAttachmentSkipped {
		hook(req, err)
	}
}
