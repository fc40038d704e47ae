package dashboard

import (
	"context"
	"fmt"

	"github.com/02loveslollipop/sensor-dashboard/services/dashboard/upload"
)

// UploadPhase is where the upload dialog is in its lifecycle.
type UploadPhase string

const (
	UploadIdle    UploadPhase = "idle"
	UploadLoading UploadPhase = "loading"
	UploadError   UploadPhase = "error"
	UploadSuccess UploadPhase = "success"
)

// UploadState is the upload dialog state shown to the user.
type UploadState struct {
	Phase   UploadPhase `json:"phase"`
	Message string      `json:"message,omitempty"`
	Count   int         `json:"count,omitempty"`
}

// OpenUpload resets the dialog for a fresh upload.
func (c *Controller) OpenUpload() { c.resetUpload() }

// CloseUpload resets the dialog. An upload still in flight no longer reports into it.
func (c *Controller) CloseUpload() { c.resetUpload() }

func (c *Controller) resetUpload() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadGen++
	c.upload = UploadState{Phase: UploadIdle}
}

// Upload sends f to the backend and records the outcome. A missing file fails
// without any network call. Success refreshes the device list, since the
// upload may have introduced new devices.
func (c *Controller) Upload(ctx context.Context, f *upload.File) UploadState {
	c.mu.Lock()
	c.uploadGen++
	if err := upload.Validate(f); err != nil {
		c.upload = UploadState{Phase: UploadError, Message: err.Error()}
		state := c.upload
		c.mu.Unlock()
		return state
	}
	gen := c.uploadGen
	c.upload = UploadState{Phase: UploadLoading}
	c.mu.Unlock()

	ack, err := c.up.Upload(ctx, f)

	state := UploadState{Phase: UploadSuccess, Message: successMessage(ack), Count: ack.Count}
	if err != nil {
		state = UploadState{Phase: UploadError, Message: err.Error()}
	}

	// A dialog closed or reopened meanwhile keeps its own state.
	c.mu.Lock()
	if gen == c.uploadGen {
		c.upload = state
	}
	c.mu.Unlock()

	if err == nil {
		c.LoadDevices(ctx)
	}
	return state
}

func successMessage(ack upload.Ack) string {
	if ack.Message != "" {
		return ack.Message
	}
	if ack.Count > 0 {
		return fmt.Sprintf("Uploaded %d records", ack.Count)
	}
	return "File uploaded successfully"
}
