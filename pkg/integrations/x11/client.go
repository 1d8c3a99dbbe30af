package x11

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/xproto"

	"github.com/actionsum/lastapp/pkg/shell"
)

// sourceIndicationPager marks activation requests as coming from a pager or
// taskbar, which window managers honour without focus-stealing checks.
const sourceIndicationPager = 2

var atomNames = []string{
	"_NET_ACTIVE_WINDOW",
	"_NET_CLIENT_LIST",
	"WM_CLASS",
}

var errNoActiveWindow = errors.New("no active window found")

// Client talks EWMH to the X server over a direct connection
type Client struct {
	conn      *xgb.Conn
	root      xproto.Window
	atoms     map[string]xproto.Atom
	closeOnce sync.Once
}

// NewClient connects to $DISPLAY and interns the atoms it needs
func NewClient() (*Client, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	client := &Client{
		conn:  conn,
		root:  setup.DefaultScreen(conn).Root,
		atoms: make(map[string]xproto.Atom),
	}

	for _, name := range atomNames {
		reply, err := xproto.InternAtom(conn, false, uint16(len(name)), name).Reply()
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern atom %s: %w", name, err)
		}
		client.atoms[name] = reply.Atom
	}

	return client, nil
}

// Name identifies this foreground source in logs
func (c *Client) Name() string {
	return "x11-ewmh"
}

func (c *Client) Close() error {
	c.closeOnce.Do(c.conn.Close)
	return nil
}

func (c *Client) getProperty(window xproto.Window, atom xproto.Atom, atomType xproto.Atom, length uint32) ([]byte, error) {
	reply, err := xproto.GetProperty(c.conn, false, window, atom, atomType, 0, length).Reply()
	if err != nil {
		return nil, err
	}
	return reply.Value, nil
}

func (c *Client) getActiveWindowFromProperty() xproto.Window {
	data, err := c.getProperty(c.root, c.atoms["_NET_ACTIVE_WINDOW"], xproto.AtomWindow, 1)
	if err != nil || len(data) < 4 {
		return 0
	}
	return xproto.Window(binary.LittleEndian.Uint32(data))
}

func (c *Client) getActiveWindowFromInputFocus() xproto.Window {
	reply, err := xproto.GetInputFocus(c.conn).Reply()
	if err != nil {
		return 0
	}
	return reply.Focus
}

func (c *Client) getTopLevelParent(window xproto.Window) xproto.Window {
	for {
		reply, err := xproto.QueryTree(c.conn, window).Reply()
		if err != nil || reply.Parent == c.root || reply.Parent == 0 {
			return window
		}
		window = reply.Parent
	}
}

func (c *Client) getActiveWindow() (xproto.Window, error) {
	if window := c.getActiveWindowFromProperty(); window != 0 {
		return window, nil
	}

	window := c.getActiveWindowFromInputFocus()
	// PointerRoot and None are reported as 1 and 0
	if window > 1 && window != c.root {
		return c.getTopLevelParent(window), nil
	}

	return 0, errNoActiveWindow
}

func (c *Client) getWindowClass(window xproto.Window) (instance, class string) {
	data, err := c.getProperty(window, c.atoms["WM_CLASS"], xproto.AtomString, 256)
	if err != nil || len(data) == 0 {
		return "", ""
	}
	return splitWMClass(data)
}

// splitWMClass decodes the NUL separated "instance\0class\0" property value
func splitWMClass(data []byte) (instance, class string) {
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	if len(parts) >= 1 {
		instance = parts[0]
	}
	if len(parts) >= 2 {
		class = parts[1]
	}
	return instance, class
}

// appIDFromClass prefers the class over the instance name
func appIDFromClass(instance, class string) shell.AppID {
	if id := shell.NormalizeAppID(class); !id.IsZero() {
		return id
	}
	return shell.NormalizeAppID(instance)
}

// ForegroundApp returns the class of the window holding focus
func (c *Client) ForegroundApp() (shell.AppID, error) {
	window, err := c.getActiveWindow()
	if err != nil {
		return "", err
	}

	id := appIDFromClass(c.getWindowClass(window))
	if id.IsZero() {
		return "", fmt.Errorf("window 0x%x has no WM_CLASS", uint32(window))
	}
	return id, nil
}

func (c *Client) clientList() ([]xproto.Window, error) {
	data, err := c.getProperty(c.root, c.atoms["_NET_CLIENT_LIST"], xproto.AtomWindow, 4096)
	if err != nil {
		return nil, err
	}

	windows := make([]xproto.Window, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		windows = append(windows, xproto.Window(binary.LittleEndian.Uint32(data[i:])))
	}
	return windows, nil
}

// findWindow returns the most recently mapped client whose class or instance
// matches id. _NET_CLIENT_LIST is in mapping order, so the search runs backwards.
func (c *Client) findWindow(id shell.AppID) (xproto.Window, bool, error) {
	windows, err := c.clientList()
	if err != nil {
		return 0, false, err
	}

	for i := len(windows) - 1; i >= 0; i-- {
		instance, class := c.getWindowClass(windows[i])
		if shell.NormalizeAppID(class) == id || shell.NormalizeAppID(instance) == id {
			return windows[i], true, nil
		}
	}
	return 0, false, nil
}

// ActivateClass sends a _NET_ACTIVE_WINDOW request for the window matching id.
// The window manager performs the switch asynchronously.
func (c *Client) ActivateClass(id shell.AppID) (bool, error) {
	window, found, err := c.findWindow(id)
	if err != nil || !found {
		return found, err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: window,
		Type:   c.atoms["_NET_ACTIVE_WINDOW"],
		Data: xproto.ClientMessageDataUnionData32New([]uint32{
			sourceIndicationPager, uint32(xproto.TimeCurrentTime), 0, 0, 0,
		}),
	}

	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	if err := xproto.SendEventChecked(c.conn, false, c.root, mask, string(ev.Bytes())).Check(); err != nil {
		return true, fmt.Errorf("failed to send activation request: %w", err)
	}
	return true, nil
}
