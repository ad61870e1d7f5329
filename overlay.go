package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const (
	overlayWriteWait    = 5 * time.Second
	overlayShutdownWait = 3 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // overlay is served on localhost by default
	},
}

// OverlayControls receives pointer and control-panel events from browsers.
type OverlayControls interface {
	Pointer(target string, inside bool)
	Control(action string)
	EditSettings(patch SettingsPatch)
}

// OverlayView is everything a browser needs to draw the overlay.
type OverlayView struct {
	Original        string          `json:"original"`
	Translation     string          `json:"translation"`
	Status          string          `json:"status"`
	Opacity         float64         `json:"opacity"`
	ShowOriginal    bool            `json:"showOriginal"`
	ShowTranslation bool            `json:"showTranslation"`
	ControlsVisible bool            `json:"controlsVisible"`
	Settings        DisplaySettings `json:"settings"`
}

// OverlayMessage is the WebSocket envelope. The server sends "state"; the
// browser sends "pointer", "control" and "settings".
type OverlayMessage struct {
	Type     string         `json:"type"`
	State    *OverlayView   `json:"state,omitempty"`
	Target   string         `json:"target,omitempty"`
	Inside   bool           `json:"inside,omitempty"`
	Action   string         `json:"action,omitempty"`
	Settings *SettingsPatch `json:"settings,omitempty"`
}

type overlayClient struct {
	id   string
	conn *websocket.Conn
	send chan OverlayView
}

// OverlayServer is the browser overlay. It implements RenderSurface: every
// call updates the shared view and offers it to each connected browser
// without waiting on the network.
type OverlayServer struct {
	addr         string
	passwordHash []byte
	log          *logrus.Entry

	mu       sync.Mutex
	view     OverlayView
	controls OverlayControls
	clients  map[string]*overlayClient
}

// NewOverlayServer creates an overlay listening on addr. An empty
// passwordHash disables authentication.
func NewOverlayServer(addr, passwordHash string, log *logrus.Logger) *OverlayServer {
	if log == nil {
		log = discardLogger()
	}
	return &OverlayServer{
		addr:         addr,
		passwordHash: []byte(passwordHash),
		log:          log.WithField("component", "overlay"),
		view:         OverlayView{Status: waitingStatus, Settings: DefaultSettings()},
		clients:      make(map[string]*overlayClient),
	}
}

// SetControls routes browser events to c.
func (s *OverlayServer) SetControls(c OverlayControls) {
	s.mu.Lock()
	s.controls = c
	s.mu.Unlock()
}

// View returns a copy of the current overlay view.
func (s *OverlayServer) View() OverlayView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

func (s *OverlayServer) update(fn func(v *OverlayView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.view)
	for _, c := range s.clients {
		offerLatest(c.send, s.view)
	}
}

func (s *OverlayServer) SetOriginalText(text string) {
	s.update(func(v *OverlayView) { v.Original = text })
}

func (s *OverlayServer) SetTranslatedText(text string) {
	s.update(func(v *OverlayView) { v.Translation = text })
}

func (s *OverlayServer) SetOpacity(f float64) {
	s.update(func(v *OverlayView) { v.Opacity = f })
}

func (s *OverlayServer) SetVisible(original, translation bool) {
	s.update(func(v *OverlayView) { v.ShowOriginal, v.ShowTranslation = original, translation })
}

func (s *OverlayServer) SetStatus(message string) {
	s.update(func(v *OverlayView) { v.Status = message })
}

func (s *OverlayServer) SetControlsVisible(visible bool) {
	s.update(func(v *OverlayView) { v.ControlsVisible = visible })
}

func (s *OverlayServer) ApplySettings(ds DisplaySettings) {
	s.update(func(v *OverlayView) { v.Settings = ds })
}

// Handler returns the overlay routes: the page on / and the socket on /ws.
func (s *OverlayServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/", serveOverlayHTML)
	return s.requireAuth(mux)
}

// requireAuth checks HTTP basic auth against the stored bcrypt hash. The
// user name is ignored.
func (s *OverlayServer) requireAuth(next http.Handler) http.Handler {
	if len(s.passwordHash) == 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, password, ok := r.BasicAuth()
		if !ok || bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="livesub"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *OverlayServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade error")
		return
	}

	c := &overlayClient{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan OverlayView, 1),
	}
	log := s.log.WithField("client", c.id)

	s.mu.Lock()
	s.clients[c.id] = c
	c.send <- s.view
	s.mu.Unlock()
	log.Info("overlay client connected")

	go s.writeLoop(c, log)

	for {
		var msg OverlayMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Debug("websocket read error")
			}
			break
		}
		s.dispatch(msg, log)
	}

	s.mu.Lock()
	delete(s.clients, c.id)
	close(c.send)
	s.mu.Unlock()
	log.Info("overlay client disconnected")
}

func (s *OverlayServer) writeLoop(c *overlayClient, log *logrus.Entry) {
	defer c.conn.Close()
	for view := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(overlayWriteWait))
		if err := c.conn.WriteJSON(OverlayMessage{Type: "state", State: &view}); err != nil {
			log.WithError(err).Warn("websocket write error")
			return
		}
	}
}

func (s *OverlayServer) dispatch(msg OverlayMessage, log *logrus.Entry) {
	s.mu.Lock()
	controls := s.controls
	s.mu.Unlock()
	if controls == nil {
		return
	}

	switch msg.Type {
	case "pointer":
		controls.Pointer(msg.Target, msg.Inside)
	case "control":
		controls.Control(msg.Action)
	case "settings":
		if msg.Settings == nil {
			log.Debug("settings message without settings")
			return
		}
		controls.EditSettings(*msg.Settings)
	default:
		log.Debugf("ignoring overlay message type %q", msg.Type)
	}
}

// Serve listens until ctx is done, then shuts the server down.
func (s *OverlayServer) Serve(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("🌐 overlay started: http://%s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("overlay server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), overlayShutdownWait)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.WithError(err).Warn("overlay shutdown error")
	}
	s.closeClients()
	return nil
}

// closeClients drops live sockets; Shutdown does not track hijacked
// connections.
func (s *OverlayServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.clients {
		c.conn.Close()
	}
}

func serveOverlayHTML(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, overlayHTML)
}

const overlayHTML = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>livesub overlay</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: 'Segoe UI', 'Helvetica Neue', sans-serif;
            background: transparent;
            height: 100vh;
            display: flex;
            flex-direction: column;
            justify-content: flex-end;
            overflow: hidden;
        }
        #overlay {
            margin: 0 auto 20px;
            padding: 12px 20px;
            border-radius: 8px;
            max-width: 90vw;
            text-align: center;
            transition: opacity 0.8s linear;
        }
        #status { font-size: 0.8em; opacity: 0.8; }
        #original, #translation { white-space: pre-wrap; }
        #translation { font-weight: 600; margin-top: 4px; }
        #controls {
            position: fixed;
            top: 10px;
            right: 10px;
            display: none;
            gap: 4px;
            background: #222;
            padding: 6px;
            border-radius: 6px;
        }
        #controls.visible { display: flex; }
        #controls button {
            background: #444;
            color: #fff;
            border: 0;
            border-radius: 4px;
            padding: 4px 8px;
            cursor: pointer;
        }
        #controls select {
            background: #444;
            color: #fff;
            border: 0;
            border-radius: 4px;
        }
        .hidden { display: none; }
    </style>
</head>
<body>
    <div id="controls">
        <button data-action="font_down">A-</button>
        <button data-action="font_up">A+</button>
        <button data-action="color">Color</button>
        <button data-action="background">Bg</button>
        <button data-action="opacity_down">◐-</button>
        <button data-action="opacity_up">◐+</button>
        <button data-action="mode">Mode</button>
        <button data-action="reset">Reset</button>
        <button data-action="close">✕</button>
        <select id="language" title="Target language">
            <option value="ru">Русский</option>
            <option value="en">English</option>
            <option value="de">Deutsch</option>
            <option value="fr">Français</option>
            <option value="es">Español</option>
            <option value="it">Italiano</option>
            <option value="pt">Português</option>
            <option value="uk">Українська</option>
            <option value="tr">Türkçe</option>
            <option value="ja">日本語</option>
            <option value="ko">한국어</option>
            <option value="zh-CN">中文</option>
        </select>
        <select id="mode" title="Display mode">
            <option value="0">Both</option>
            <option value="1">Translation</option>
            <option value="2">Original</option>
        </select>
        <button id="apply">Apply</button>
    </div>
    <div id="overlay">
        <div id="status"></div>
        <div id="original"></div>
        <div id="translation"></div>
    </div>

    <script>
        const palette = ['#ffffff', '#ffff00', '#00ffff', '#00ff00', '#ffa500',
                         '#ff69b4', '#ff0000', '#000000', '#1e3a8a', '#808080'];
        const el = (id) => document.getElementById(id);
        let ws = null;
        let editing = false;

        function send(msg) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify(msg));
            }
        }

        function render(s) {
            const o = el('overlay');
            o.style.opacity = s.opacity;
            o.style.fontSize = s.settings.fontSize + 'px';
            o.style.color = palette[(s.settings.colorIndex - 1) % palette.length];
            o.style.background = palette[(s.settings.backgroundColorIndex - 1) % palette.length];
            el('status').textContent = s.status;
            el('status').classList.toggle('hidden', !s.status);
            el('original').textContent = s.original;
            el('original').classList.toggle('hidden', !s.showOriginal || !s.original);
            el('translation').textContent = s.translation;
            el('translation').classList.toggle('hidden', !s.showTranslation || !s.translation);
            el('controls').classList.toggle('visible', s.controlsVisible);
            if (!editing) {
                selectValue('language', s.settings.targetLanguage);
                selectValue('mode', String(s.settings.displayMode));
            }
        }

        function selectValue(id, value) {
            const sel = el(id);
            if (![...sel.options].some((o) => o.value === value)) {
                sel.add(new Option(value, value));
            }
            sel.value = value;
        }

        function track(id, target) {
            el(id).addEventListener('mouseenter', () => send({type: 'pointer', target: target, inside: true}));
            el(id).addEventListener('mouseleave', () => send({type: 'pointer', target: target, inside: false}));
        }

        track('overlay', 'overlay');
        track('controls', 'controls');
        document.querySelectorAll('#controls button[data-action]').forEach((b) => {
            b.addEventListener('click', () => send({type: 'control', action: b.dataset.action}));
        });
        ['language', 'mode'].forEach((id) => {
            el(id).addEventListener('focus', () => { editing = true; });
            el(id).addEventListener('blur', () => { editing = false; });
        });
        el('apply').addEventListener('click', () => {
            editing = false;
            send({type: 'settings', settings: {
                targetLanguage: el('language').value,
                displayMode: Number(el('mode').value),
            }});
        });

        function connect() {
            ws = new WebSocket('ws://' + window.location.host + '/ws');
            ws.onmessage = (event) => {
                const msg = JSON.parse(event.data);
                if (msg.type === 'state') {
                    render(msg.state);
                }
            };
            ws.onclose = () => {
                el('status').textContent = '❌ Disconnected, retrying...';
                el('status').classList.remove('hidden');
                setTimeout(connect, 2000);
            };
        }

        connect();
    </script>
</body>
</html>
`
