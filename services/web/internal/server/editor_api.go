package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"dailyreport/pkg/editor"
	"dailyreport/services/web/internal/app"
	"dailyreport/services/web/internal/upload"
)

const maxCommandBytes = 1 << 20

// editorRequest is one toolbar action against the posted document. HTML is
// the editing markup of the previous response, so image data-node-id values
// resolve to the same nodes.
type editorRequest struct {
	HTML      string            `json:"html"`
	Selection *editor.Selection `json:"selection,omitempty"`
	Command   string            `json:"command"`
	Href      string            `json:"href,omitempty"`
	Markdown  string            `json:"markdown,omitempty"`
	Text      string            `json:"text,omitempty"`
	Node      editor.NodeID     `json:"node,omitempty"`
}

// editorResponse is the document after the action. HTML is the canonical
// form submitted with the report; Editing is the surface markup.
type editorResponse struct {
	HTML        string              `json:"html"`
	Editing     string              `json:"editing"`
	Value       string              `json:"value"`
	State       editor.State        `json:"state"`
	Selection   editor.Selection    `json:"selection"`
	Active      map[string]bool     `json:"active"`
	Affordances []editor.Affordance `json:"affordances"`
	Applied     bool                `json:"applied"`
	Message     string              `json:"message,omitempty"`
	Node        editor.NodeID       `json:"node,omitempty"`
}

func (s *Server) handleEditorCommand(w http.ResponseWriter, r *http.Request, _ *app.Visitor) {
	var req editorRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ed := editor.New(req.HTML)
	if req.Selection != nil {
		ed.Select(*req.Selection)
	}
	applied := false
	switch req.Command {
	case "state":
	case "bold":
		applied = ed.ToggleBold()
	case "italic":
		applied = ed.ToggleItalic()
	case "bulletList":
		applied = ed.ToggleBulletList()
	case "orderedList":
		applied = ed.ToggleOrderedList()
	case "setLink":
		applied = ed.SetLink(req.Href)
	case "unsetLink":
		applied = ed.UnsetLink()
	case "insertText":
		applied = ed.InsertText(req.Text)
	case "insertMarkdown":
		if err := ed.InsertMarkdown(req.Markdown); err != nil {
			writeError(w, http.StatusBadRequest, "could not read markdown")
			return
		}
		applied = strings.TrimSpace(req.Markdown) != ""
	case "deleteImage":
		if err := ed.View().Activate(req.Node); err != nil {
			writeEditorError(w, err)
			return
		}
		applied = true
	default:
		writeError(w, http.StatusBadRequest, "unknown command")
		return
	}
	writeJSON(w, http.StatusOK, editorState(ed, applied))
}

// handleEditorImage uploads the chosen file and inserts it at the posted
// selection. The form carries the document in "html", the selection as JSON
// in "selection" and the file in "image".
func (s *Server) handleEditorImage(w http.ResponseWriter, r *http.Request, v *app.Visitor) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+maxCommandBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	ed := editor.New(r.FormValue("html"))
	if raw := r.FormValue("selection"); raw != "" {
		var sel editor.Selection
		if err := json.Unmarshal([]byte(raw), &sel); err != nil {
			writeError(w, http.StatusBadRequest, "invalid selection")
			return
		}
		ed.Select(sel)
	}

	var selection *upload.Selection
	if file, header, err := r.FormFile("image"); err == nil {
		selection = upload.NewSelection(&upload.File{Name: header.Filename, Size: header.Size, Body: file}, file)
	}
	toasts := &toastRecorder{}
	id, err := v.Uploads(toasts).Upload(r.Context(), selection, ed)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, toasts.last(err.Error()))
		return
	}
	resp := editorState(ed, true)
	resp.Node = id
	resp.Message = toasts.last("")
	writeJSON(w, http.StatusOK, resp)
}

func editorState(ed *editor.Editor, applied bool) editorResponse {
	view := ed.View()
	return editorResponse{
		HTML:        ed.HTML(),
		Editing:     view.RenderEditing(),
		Value:       ed.FieldValue(),
		State:       ed.State(),
		Selection:   ed.Selection(),
		Active:      ed.ActiveStates(),
		Affordances: view.Affordances(),
		Applied:     applied,
	}
}

func writeEditorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, editor.ErrNodeNotFound):
		writeError(w, http.StatusNotFound, "image not found")
	case errors.Is(err, editor.ErrNotDeletable):
		writeError(w, http.StatusBadRequest, "only images can be deleted")
	default:
		writeError(w, http.StatusInternalServerError, "editor error")
	}
}

// toastRecorder collects upload notifications for the JSON response.
type toastRecorder struct {
	messages []string
}

func (t *toastRecorder) Success(msg string) { t.messages = append(t.messages, msg) }
func (t *toastRecorder) Error(msg string)   { t.messages = append(t.messages, msg) }

func (t *toastRecorder) last(fallback string) string {
	if len(t.messages) == 0 {
		return fallback
	}
	return t.messages[len(t.messages)-1]
}
