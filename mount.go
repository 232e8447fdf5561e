package citationlab

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// MountConfig configures the mount handler.
type MountConfig struct {
	Workbench   *Workbench
	Renderer    Renderer
	InitialText string
	Upgrader    *websocket.Upgrader
}

// MountOption is a functional option for configuring Mount.
type MountOption func(*MountConfig)

// WithRenderer attaches the external formatter used by preview actions.
func WithRenderer(r Renderer) MountOption {
	return func(c *MountConfig) { c.Renderer = r }
}

// WithInitialText seeds new sessions with buffer text.
func WithInitialText(text string) MountOption {
	return func(c *MountConfig) { c.InitialText = text }
}

// WithUpgrader overrides the websocket upgrader.
func WithUpgrader(u *websocket.Upgrader) MountOption {
	return func(c *MountConfig) { c.Upgrader = u }
}

// Mount creates an http.Handler that drives workbench sessions from an
// editing surface. WebSocket upgrades get a dedicated session and a
// message loop. Over plain HTTP, GET opens a persistent session and
// returns its ID; POSTs resume it via the session header, and a POST
// without one runs against a one-shot session released after the
// response.
func Mount(wb *Workbench, opts ...MountOption) http.Handler {
	config := MountConfig{
		Workbench: wb,
		Upgrader: &websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(&config)
	}

	return &sessionHandler{config: config}
}

// sessionHandler handles both WebSocket and HTTP requests.
type sessionHandler struct {
	config MountConfig
}

// ResponseMetadata carries action outcome alongside session state.
type ResponseMetadata struct {
	Success bool              `json:"success"`
	Errors  map[string]string `json:"errors,omitempty"`
	Action  string            `json:"action,omitempty"`
}

// SessionResponse is the state snapshot sent after every action.
type SessionResponse struct {
	SessionID string            `json:"sessionId"`
	Text      string            `json:"text"`
	Segments  []Segment         `json:"segments"`
	Marks     [][2]int          `json:"marks"`
	Arguments []string          `json:"arguments"`
	Compiled  string            `json:"compiled"`
	Piece     *string           `json:"piece,omitempty"`
	Preview   []PreviewRow      `json:"preview,omitempty"`
	Meta      *ResponseMetadata `json:"meta"`
}

// actionResult holds per-action extras merged into the next response.
type actionResult struct {
	piece   *string
	preview []PreviewRow
}

func (h *sessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		h.handleWebSocket(w, r)
		return
	}
	h.handleHTTP(w, r)
}

func (h *sessionHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.config.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("Client connected from %s", conn.RemoteAddr())

	sess, created, err := h.resumeOrCreate(r)
	if err != nil {
		log.Printf("Failed to open session: %v", err)
		return
	}
	// A session resumed from elsewhere outlives this socket; only a
	// session opened for it dies with it.
	if created {
		defer h.config.Workbench.CloseSession(sess.ID())
	}

	// Initial snapshot so the surface can render before the first action.
	if err := h.writeResponse(conn, sess, "", nil, actionResult{}); err != nil {
		log.Printf("Failed to send initial state: %v", err)
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		msg, err := parseActionFromWebSocket(data)
		if err != nil {
			log.Printf("Failed to parse message: %v", err)
			continue
		}

		errs := make(map[string]string)
		result := h.handleAction(sess, msg, errs)

		if err := h.writeResponse(conn, sess, msg.Action, errs, result); err != nil {
			log.Printf("WebSocket write failed: %v", err)
			break
		}
	}

	log.Printf("Client disconnected")
}

func (h *sessionHandler) handleHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		return
	case http.MethodGet:
		// GET is how a plain HTTP client opens a persistent session: the
		// snapshot carries the ID for the session header on later POSTs.
		sess, _, err := h.resumeOrCreate(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		h.sendJSON(w, h.snapshot(sess, "", nil, actionResult{}))
		return
	case http.MethodPost:
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, fmt.Sprintf("failed to parse action: %v", err), http.StatusBadRequest)
		return
	}
	if msg.Data == nil {
		msg.Data = make(map[string]interface{})
	}

	sess, created, err := h.resumeOrCreate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	errs := make(map[string]string)
	result := h.handleAction(sess, msg, errs)
	h.sendJSON(w, h.snapshot(sess, msg.Action, errs, result))

	// A header-less POST is one-shot; without this the workbench would
	// accrete a session per request until TTL cleanup.
	if created {
		h.config.Workbench.CloseSession(sess.ID())
	}
}

// resumeOrCreate looks a session up by the request's session header and
// falls back to opening a fresh one, reporting whether it did. Callers
// own the lifetime of sessions they caused to be created.
func (h *sessionHandler) resumeOrCreate(r *http.Request) (*EditSession, bool, error) {
	if id := r.Header.Get("X-Citelab-Session"); id != "" {
		if sess, ok := h.config.Workbench.GetSession(id); ok {
			return sess, false, nil
		}
	}
	sess, err := h.config.Workbench.NewSession(h.config.InitialText)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, true, nil
}

// handleAction applies one action to the session. Action failures land in
// errs; the session state is unchanged when they do.
func (h *sessionHandler) handleAction(sess *EditSession, msg message, errs map[string]string) actionResult {
	data := newActionData(msg.Data)
	var result actionResult

	err := func() error {
		switch msg.Action {
		case "setText":
			sess.SetText(data.GetString("text"))
			return nil

		case "replaceRange":
			start, end, err := spanArgs(data)
			if err != nil {
				return err
			}
			return sess.ReplaceRange(start, end, data.GetString("text"))

		case "mark":
			start, end, err := spanArgs(data)
			if err != nil {
				return err
			}
			return sess.MarkExpression(start, end)

		case "clearMarks":
			sess.ClearMarks()
			return nil

		case "fold":
			start, end, err := spanArgs(data)
			if err != nil {
				return err
			}
			return sess.Fold(start, end)

		case "unfold":
			sess.UnfoldAll()
			return nil

		case "piece":
			n, err := data.GetIndex("ordinal")
			if err != nil {
				return err
			}
			text, ok := sess.PieceAt(n)
			if !ok {
				return FieldError{Field: "ordinal", Message: fmt.Sprintf("no folded piece %d", n)}
			}
			result.piece = &text
			return nil

		case "preview":
			if h.config.Renderer == nil {
				return fmt.Errorf("no renderer mounted for preview")
			}
			result.preview = sess.Preview(h.config.Renderer, nil, nil)
			if len(result.preview) == 1 && result.preview[0].Advisory {
				return ErrPreviewCapExceeded
			}
			return nil

		case "commit":
			sess.Commit()
			return nil

		case "wrap":
			start, end, err := spanArgs(data)
			if err != nil {
				return err
			}
			return sess.Wrap(start, end)

		case "undo":
			if !sess.Undo() {
				return fmt.Errorf("nothing to undo")
			}
			return nil

		case "compile":
			// Compiled output is part of every snapshot; the explicit
			// action exists for surfaces that only want the counter bump.
			sess.Compile()
			return nil

		default:
			return fmt.Errorf("unknown action: %q", msg.Action)
		}
	}()

	if err != nil {
		switch e := err.(type) {
		case FieldError:
			errs[e.Field] = e.Message
		case MultiError:
			for _, fieldErr := range e {
				errs[fieldErr.Field] = fieldErr.Message
			}
		default:
			errs["_general"] = err.Error()
		}
	}

	return result
}

// spanArgs extracts the start/end pair common to range actions.
func spanArgs(data *ActionData) (int, int, error) {
	start, err := data.GetIndex("start")
	if err != nil {
		return 0, 0, err
	}
	end, err := data.GetIndex("end")
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (h *sessionHandler) snapshot(sess *EditSession, action string, errs map[string]string, result actionResult) SessionResponse {
	return SessionResponse{
		SessionID: sess.ID(),
		Text:      sess.Text(),
		Segments:  sess.Segments(),
		Marks:     sess.Marks(),
		Arguments: sess.Arguments(),
		// Read the compiled form directly so routine snapshots do not
		// count as compile operations.
		Compiled:  sess.fold.Compile(sess.marks),
		Piece:     result.piece,
		Preview:   result.preview,
		Meta: &ResponseMetadata{
			Success: len(errs) == 0,
			Errors:  errs,
			Action:  action,
		},
	}
}

func (h *sessionHandler) writeResponse(conn *websocket.Conn, sess *EditSession, action string, errs map[string]string, result actionResult) error {
	payload, err := json.Marshal(h.snapshot(sess, action, errs, result))
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (h *sessionHandler) sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
