package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/Notifuse/designer/pkg/blocks"
	"github.com/Notifuse/designer/pkg/document"
	"github.com/Notifuse/designer/pkg/editor"
)

//go:generate mockgen -destination mocks/mock_editor_service.go -package mocks github.com/Notifuse/designer/internal/domain EditorService

type EditorOperationType string

const (
	EditorOperationAdd            EditorOperationType = "add"
	EditorOperationUpdate         EditorOperationType = "update"
	EditorOperationDelete         EditorOperationType = "delete"
	EditorOperationDuplicate      EditorOperationType = "duplicate"
	EditorOperationMove           EditorOperationType = "move"
	EditorOperationReorder        EditorOperationType = "reorder"
	EditorOperationSelect         EditorOperationType = "select"
	EditorOperationUndo           EditorOperationType = "undo"
	EditorOperationRedo           EditorOperationType = "redo"
	EditorOperationSetPreviewMode EditorOperationType = "set_preview_mode"
)

// EditorOperation is one user action applied to an editor session
type EditorOperation struct {
	Type        EditorOperationType `json:"type"`
	BlockID     string              `json:"block_id,omitempty"`
	BlockType   blocks.BlockType    `json:"block_type,omitempty"`
	Content     json.RawMessage     `json:"content,omitempty"`
	Styles      json.RawMessage     `json:"styles,omitempty"`
	Responsive  json.RawMessage     `json:"responsive,omitempty"`
	Position    *blocks.Position    `json:"position,omitempty"`
	Direction   document.Direction  `json:"direction,omitempty"`
	ToIndex     *int                `json:"to_index,omitempty"`
	PreviewMode blocks.PreviewMode  `json:"preview_mode,omitempty"`
}

func (op *EditorOperation) Validate() error {
	switch op.Type {
	case EditorOperationAdd:
		if op.BlockType == "" {
			return fmt.Errorf("invalid operation: block_type is required")
		}
	case EditorOperationUpdate:
		if op.BlockID == "" {
			return fmt.Errorf("invalid operation: block_id is required")
		}
		if len(op.Content) == 0 && len(op.Styles) == 0 && len(op.Responsive) == 0 && op.Position == nil {
			return fmt.Errorf("invalid operation: update changes nothing")
		}
	case EditorOperationDelete, EditorOperationDuplicate:
		if op.BlockID == "" {
			return fmt.Errorf("invalid operation: block_id is required")
		}
	case EditorOperationMove:
		if op.BlockID == "" {
			return fmt.Errorf("invalid operation: block_id is required")
		}
		if err := op.Direction.Validate(); err != nil {
			return fmt.Errorf("invalid operation: %w", err)
		}
	case EditorOperationReorder:
		if op.BlockID == "" {
			return fmt.Errorf("invalid operation: block_id is required")
		}
		if op.ToIndex == nil || *op.ToIndex < 0 {
			return fmt.Errorf("invalid operation: to_index must be zero or positive")
		}
	case EditorOperationSetPreviewMode:
		if err := op.PreviewMode.Validate(); err != nil {
			return fmt.Errorf("invalid operation: %w", err)
		}
	case EditorOperationSelect, EditorOperationUndo, EditorOperationRedo:
	default:
		return fmt.Errorf("invalid operation: unknown type %q", op.Type)
	}
	return nil
}

// Patch decodes the update fields of the operation for a block of blockType.
// Decoding is lenient: malformed style fields are dropped and content that does
// not fit the type becomes the default payload.
func (op *EditorOperation) Patch(blockType blocks.BlockType) (document.Patch, error) {
	var patch document.Patch

	raw := map[string]json.RawMessage{}
	typeJSON, err := json.Marshal(blockType)
	if err != nil {
		return patch, err
	}
	raw["type"] = typeJSON
	if len(op.Content) > 0 {
		raw["content"] = op.Content
	}
	if len(op.Styles) > 0 {
		raw["styles"] = op.Styles
	}
	if len(op.Responsive) > 0 {
		raw["responsive"] = op.Responsive
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return patch, fmt.Errorf("invalid operation payload: %w", err)
	}
	var decoded blocks.Block
	if err := json.Unmarshal(data, &decoded); err != nil {
		return patch, fmt.Errorf("invalid operation payload: %w", err)
	}

	if len(op.Content) > 0 {
		patch.Content = decoded.Content
	}
	if len(op.Styles) > 0 {
		styles := decoded.Styles
		patch.Styles = &styles
	}
	if len(op.Responsive) > 0 {
		responsive := decoded.Responsive
		if responsive == nil {
			responsive = &blocks.Responsive{}
		}
		patch.Responsive = responsive
	}
	if op.Position != nil {
		position := *op.Position
		patch.Position = &position
	}
	return patch, nil
}

type OpenSessionRequest struct {
	TemplateID  string             `json:"template_id,omitempty"`
	Version     int64              `json:"version,omitempty"`
	PreviewMode blocks.PreviewMode `json:"preview_mode,omitempty"`
}

func (r *OpenSessionRequest) Validate() error {
	if r.TemplateID != "" {
		if err := validateTemplateID(r.TemplateID); err != nil {
			return fmt.Errorf("invalid open session request: %w", err)
		}
	}
	if r.Version < 0 {
		return fmt.Errorf("invalid open session request: version must be zero or positive")
	}
	if r.PreviewMode != "" {
		if err := r.PreviewMode.Validate(); err != nil {
			return fmt.Errorf("invalid open session request: %w", err)
		}
	}
	return nil
}

type ApplyOperationRequest struct {
	SessionID string          `json:"session_id"`
	Operation EditorOperation `json:"operation"`
}

func (r *ApplyOperationRequest) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("invalid apply request: session_id is required")
	}
	return r.Operation.Validate()
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

func (r *SessionRequest) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

func (r *SessionRequest) FromURLParams(queryParams url.Values) error {
	r.SessionID = queryParams.Get("session_id")
	return r.Validate()
}

type PreviewRequest struct {
	SessionID string             `json:"session_id"`
	Mode      blocks.PreviewMode `json:"mode,omitempty"`
}

func (r *PreviewRequest) FromURLParams(queryParams url.Values) error {
	r.SessionID = queryParams.Get("session_id")
	r.Mode = blocks.PreviewMode(queryParams.Get("mode"))
	if r.SessionID == "" {
		return fmt.Errorf("invalid preview request: session_id is required")
	}
	if r.Mode != "" {
		if err := r.Mode.Validate(); err != nil {
			return fmt.Errorf("invalid preview request: %w", err)
		}
	}
	return nil
}

// SessionState is the editor state plus the session bookkeeping
type SessionState struct {
	SessionID       string     `json:"session_id"`
	TemplateID      string     `json:"template_id,omitempty"`
	TemplateVersion int64      `json:"template_version,omitempty"`
	LastSavedAt     *time.Time `json:"last_saved_at,omitempty"`
	LastSaveError   string     `json:"last_save_error,omitempty"`
	Closed          bool       `json:"closed,omitempty"`
	editor.State
}

// EditorService manages server-side editing sessions
type EditorService interface {
	OpenSession(ctx context.Context, req OpenSessionRequest) (*SessionState, error)
	GetState(ctx context.Context, sessionID string) (*SessionState, error)
	Apply(ctx context.Context, sessionID string, op EditorOperation) (*SessionState, error)
	Preview(ctx context.Context, sessionID string, mode blocks.PreviewMode) (string, error)
	Save(ctx context.Context, sessionID string) (*SessionState, error)
	CloseSession(ctx context.Context, sessionID string) error
	Document(ctx context.Context, sessionID string) (document.Document, *Template, error)
	Subscribe(sessionID string) (<-chan SessionState, func(), error)
}
