package obsws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type fakeOBS struct {
	password string

	mu       sync.Mutex
	current  string
	scenes   map[string][]SceneItem
	requests []string
	conns    []*websocket.Conn
}

func newFakeOBS(password string) *fakeOBS {
	return &fakeOBS{
		password: password,
		current:  "Rust",
		scenes: map[string][]SceneItem{
			"Rust":  {{ID: 1, Source: "Game Capture", Enabled: true}, {ID: 7, Source: "MapCover", Enabled: true}},
			"Lobby": {{ID: 3, Source: "Webcam", Enabled: true}},
		},
	}
}

func (f *fakeOBS) enabled(scene string, id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.scenes[scene] {
		if it.ID == id {
			return it.Enabled
		}
	}
	return false
}

func (f *fakeOBS) dropAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		c.Close()
	}
	f.conns = nil
}

func (f *fakeOBS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{Subprotocols: []string{Subprotocol}}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	f.mu.Lock()
	f.conns = append(f.conns, conn)
	f.mu.Unlock()

	auth := &Authenticator{Challenge: "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY=", Salt: "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI="}
	hello := Hello{OBSWebSocketVersion: "5.4.2", RPCVersion: 1}
	if f.password != "" {
		hello.Authentication = auth
	}
	msg, _ := encode(OpHello, hello)
	conn.WriteJSON(msg)

	var in Message
	if err := conn.ReadJSON(&in); err != nil || in.Op != OpIdentify {
		return
	}
	var identify Identify
	json.Unmarshal(in.D, &identify)
	if f.password != "" && identify.Authentication != AuthResponse(f.password, auth) {
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(CloseAuthenticationFailed, "Authentication failed."))
		return
	}
	msg, _ = encode(OpIdentified, Identified{NegotiatedRPCVersion: 1})
	conn.WriteJSON(msg)

	for {
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		var req struct {
			RequestType string          `json:"requestType"`
			RequestID   string          `json:"requestId"`
			RequestData json.RawMessage `json:"requestData"`
		}
		json.Unmarshal(in.D, &req)
		resp := f.handle(req.RequestType, req.RequestData)
		resp.RequestType = req.RequestType
		resp.RequestID = req.RequestID
		msg, _ := encode(OpRequestResponse, resp)
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (f *fakeOBS) handle(requestType string, data json.RawMessage) RequestResponse {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, requestType)

	var args struct {
		SceneName        string `json:"sceneName"`
		SourceName       string `json:"sourceName"`
		SceneItemID      int64  `json:"sceneItemId"`
		SceneItemEnabled bool   `json:"sceneItemEnabled"`
	}
	json.Unmarshal(data, &args)

	ok := func(v any) RequestResponse {
		var raw json.RawMessage
		if v != nil {
			raw, _ = json.Marshal(v)
		}
		return RequestResponse{RequestStatus: RequestStatus{Result: true, Code: StatusSuccess}, ResponseData: raw}
	}
	notFound := RequestResponse{RequestStatus: RequestStatus{Code: StatusResourceNotFound, Comment: "No scene items were found"}}

	switch requestType {
	case "GetCurrentProgramScene":
		return ok(map[string]string{"sceneName": f.current, "currentProgramSceneName": f.current})
	case "GetSceneList":
		return ok(map[string]any{"scenes": []map[string]any{
			{"sceneName": "Lobby", "sceneIndex": 0},
			{"sceneName": "Rust", "sceneIndex": 1},
		}})
	case "GetSceneItemList":
		items, found := f.scenes[args.SceneName]
		if !found {
			return notFound
		}
		return ok(map[string]any{"sceneItems": items})
	case "GetSceneItemId":
		for _, it := range f.scenes[args.SceneName] {
			if it.Source == args.SourceName {
				return ok(map[string]int64{"sceneItemId": it.ID})
			}
		}
		return notFound
	case "GetSceneItemEnabled", "SetSceneItemEnabled":
		for i, it := range f.scenes[args.SceneName] {
			if it.ID == args.SceneItemID {
				if requestType == "SetSceneItemEnabled" {
					f.scenes[args.SceneName][i].Enabled = args.SceneItemEnabled
					return ok(nil)
				}
				return ok(map[string]bool{"sceneItemEnabled": it.Enabled})
			}
		}
		return notFound
	}
	return RequestResponse{RequestStatus: RequestStatus{Code: 204, Comment: "Unknown request type"}}
}

func startFakeOBS(t *testing.T, password string) (*fakeOBS, string) {
	t.Helper()
	obs := newFakeOBS(password)
	srv := httptest.NewServer(obs)
	t.Cleanup(srv.Close)
	return obs, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestAuthResponse(t *testing.T) {
	// Example values from the obs-websocket protocol documentation
	auth := &Authenticator{
		Challenge: "+IxH4CnCiqpX1rM9scsNynZzbOe4KhDeYcTNS3PDaeY=",
		Salt:      "lM1GncleQOaCu9lT1yeUZhFYnqhsLLP1G5lAGo3ixaI=",
	}
	got := AuthResponse("supersecretpassword", auth)
	if got != "1Ct943GAT+6YQUUX47Ia/ncufilbe6+oD6lY+5kaCu4=" {
		t.Errorf("AuthResponse = %q", got)
	}
}

func TestConnectAndToggle(t *testing.T) {
	obs, url := startFakeOBS(t, "hunter2")
	c := NewClient(url, "hunter2", time.Second)
	defer c.Close()
	ctx := context.Background()

	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	scene, err := c.CurrentScene(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if scene != "Rust" {
		t.Errorf("CurrentScene = %q", scene)
	}

	item, found, err := c.FindItem(ctx, scene, "MapCover")
	if err != nil || !found {
		t.Fatalf("FindItem = %v, %v", found, err)
	}
	if item.ID != 7 || item.Scene != "Rust" {
		t.Errorf("unexpected item: %+v", item)
	}

	visible, err := c.Visible(ctx, item)
	if err != nil || !visible {
		t.Fatalf("Visible = %v, %v", visible, err)
	}
	if err := c.SetVisible(ctx, item, false); err != nil {
		t.Fatal(err)
	}
	if obs.enabled("Rust", 7) {
		t.Error("SetVisible did not reach the server")
	}
}

func TestFindItemMissingIsNotAnError(t *testing.T) {
	_, url := startFakeOBS(t, "")
	c := NewClient(url, "", time.Second)
	defer c.Close()

	_, found, err := c.FindItem(context.Background(), "Lobby", "MapCover")
	if err != nil {
		t.Fatalf("FindItem error = %v", err)
	}
	if found {
		t.Error("FindItem found an absent source")
	}
}

func TestRequestErrorSurfaced(t *testing.T) {
	_, url := startFakeOBS(t, "")
	c := NewClient(url, "", time.Second)
	defer c.Close()

	err := c.Call(context.Background(), "NoSuchRequest", nil, nil)
	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if reqErr.Code != 204 {
		t.Errorf("code = %d", reqErr.Code)
	}
}

func TestWrongPassword(t *testing.T) {
	_, url := startFakeOBS(t, "hunter2")
	c := NewClient(url, "wrong", time.Second)
	defer c.Close()

	if err := c.Connect(context.Background()); !errors.Is(err, ErrAuthenticationFailed) {
		t.Errorf("Connect error = %v, want ErrAuthenticationFailed", err)
	}
	if c.Connected() {
		t.Error("client reports connected after auth failure")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	obs, url := startFakeOBS(t, "")
	c := NewClient(url, "", time.Second)
	defer c.Close()
	ctx := context.Background()

	if err := c.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	obs.dropAll()

	deadline := time.Now().Add(2 * time.Second)
	for c.Connected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Connected() {
		t.Fatal("drop not noticed")
	}

	scene, err := c.CurrentScene(ctx)
	if err != nil {
		t.Fatalf("request after drop: %v", err)
	}
	if scene != "Rust" {
		t.Errorf("CurrentScene = %q", scene)
	}
}

func TestClosedClientRejectsRequests(t *testing.T) {
	_, url := startFakeOBS(t, "")
	c := NewClient(url, "", time.Second)
	if err := c.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.Close()

	if _, err := c.CurrentScene(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("error = %v, want ErrNotConnected", err)
	}
}

func TestSceneListing(t *testing.T) {
	_, url := startFakeOBS(t, "")
	c := NewClient(url, "", time.Second)
	defer c.Close()
	ctx := context.Background()

	names, err := c.SceneNames(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "Rust" || names[1] != "Lobby" {
		t.Errorf("SceneNames = %v", names)
	}

	items, err := c.SceneItems(ctx, "Rust")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[1].Source != "MapCover" {
		t.Errorf("SceneItems = %+v", items)
	}
}

func TestDropFailsOnlyRequestsOnThatConnection(t *testing.T) {
	c := NewClient("ws://localhost:4455", "", time.Second)
	old, current := new(websocket.Conn), new(websocket.Conn)

	oldCh := make(chan *RequestResponse, 1)
	currentCh := make(chan *RequestResponse, 1)
	c.pending["a"] = &pendingCall{conn: old, ch: oldCh}
	c.pending["b"] = &pendingCall{conn: current, ch: currentCh}

	c.failPending(old)

	if _, ok := <-oldCh; ok {
		t.Error("request on the dropped connection was not failed")
	}
	select {
	case <-currentCh:
		t.Error("request on the newer connection was failed")
	default:
	}
	if _, ok := c.pending["b"]; !ok || len(c.pending) != 1 {
		t.Errorf("pending = %v, want only b", c.pending)
	}
}
