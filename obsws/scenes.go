package obsws

import (
	"context"
	"errors"

	"markestedt/maphider/host"
)

// SceneItem is an entry of GetSceneItemList
type SceneItem struct {
	ID      int64  `json:"sceneItemId"`
	Source  string `json:"sourceName"`
	Enabled bool   `json:"sceneItemEnabled"`
}

var _ host.SceneGraph = (*Client)(nil)

// CurrentScene returns the name of the current program scene
func (c *Client) CurrentScene(ctx context.Context) (string, error) {
	var resp struct {
		SceneName               string `json:"sceneName"`
		CurrentProgramSceneName string `json:"currentProgramSceneName"`
	}
	if err := c.Call(ctx, "GetCurrentProgramScene", nil, &resp); err != nil {
		return "", err
	}
	if resp.SceneName != "" {
		return resp.SceneName, nil
	}
	return resp.CurrentProgramSceneName, nil
}

// FindItem looks up a source by name in scene. A missing source is not an error.
func (c *Client) FindItem(ctx context.Context, scene, name string) (host.Item, bool, error) {
	req := struct {
		SceneName  string `json:"sceneName"`
		SourceName string `json:"sourceName"`
	}{scene, name}

	var resp struct {
		SceneItemID int64 `json:"sceneItemId"`
	}
	if err := c.Call(ctx, "GetSceneItemId", req, &resp); err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.Code == StatusResourceNotFound {
			return host.Item{}, false, nil
		}
		return host.Item{}, false, err
	}

	return host.Item{Scene: scene, ID: resp.SceneItemID, Name: name}, true, nil
}

// Visible reports whether the scene item is enabled
func (c *Client) Visible(ctx context.Context, item host.Item) (bool, error) {
	req := struct {
		SceneName   string `json:"sceneName"`
		SceneItemID int64  `json:"sceneItemId"`
	}{item.Scene, item.ID}

	var resp struct {
		SceneItemEnabled bool `json:"sceneItemEnabled"`
	}
	if err := c.Call(ctx, "GetSceneItemEnabled", req, &resp); err != nil {
		return false, err
	}
	return resp.SceneItemEnabled, nil
}

// SetVisible enables or disables the scene item
func (c *Client) SetVisible(ctx context.Context, item host.Item, visible bool) error {
	req := struct {
		SceneName        string `json:"sceneName"`
		SceneItemID      int64  `json:"sceneItemId"`
		SceneItemEnabled bool   `json:"sceneItemEnabled"`
	}{item.Scene, item.ID, visible}

	return c.Call(ctx, "SetSceneItemEnabled", req, nil)
}

// SceneNames lists all scenes in the order OBS shows them
func (c *Client) SceneNames(ctx context.Context) ([]string, error) {
	var resp struct {
		Scenes []struct {
			SceneName  string `json:"sceneName"`
			SceneIndex int    `json:"sceneIndex"`
		} `json:"scenes"`
	}
	if err := c.Call(ctx, "GetSceneList", nil, &resp); err != nil {
		return nil, err
	}

	// OBS returns scenes bottom-up
	names := make([]string, 0, len(resp.Scenes))
	for i := len(resp.Scenes) - 1; i >= 0; i-- {
		names = append(names, resp.Scenes[i].SceneName)
	}
	return names, nil
}

// SceneItems lists the items of a scene
func (c *Client) SceneItems(ctx context.Context, scene string) ([]SceneItem, error) {
	req := struct {
		SceneName string `json:"sceneName"`
	}{scene}

	var resp struct {
		SceneItems []SceneItem `json:"sceneItems"`
	}
	if err := c.Call(ctx, "GetSceneItemList", req, &resp); err != nil {
		return nil, err
	}
	return resp.SceneItems, nil
}
