package widget

import "github.com/fedichat/livechat-connector/internal/resolve"

// HeadingButton is a button a plugin contributes to the widget heading.
type HeadingButton struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

// Plugin is the capability set a widget behavior extension may implement.
// Plugins are discrete named strategies registered explicitly; the widget
// never gains behavior by runtime patching.
type Plugin interface {
	Name() string
	OnRoomJoin(roomJID string)
	OnAffiliationChange(occupantJID, affiliation string)
	OnHeadingButtonsRequested() []HeadingButton
}

// taskAppPlugin exposes the shared task drawer to moderators and owners.
type taskAppPlugin struct {
	restorable bool
}

func (p *taskAppPlugin) Name() string { return "task-app" }

func (p *taskAppPlugin) OnRoomJoin(string) {}

func (p *taskAppPlugin) OnAffiliationChange(string, string) {}

func (p *taskAppPlugin) OnHeadingButtonsRequested() []HeadingButton {
	return []HeadingButton{{ID: "task-app", Label: "Tasks", Icon: "list"}}
}

// viewerModePlugin shows the join prompt to read-mostly anonymous visitors.
type viewerModePlugin struct {
	prompt string
}

func (p *viewerModePlugin) Name() string { return "viewer-mode" }

func (p *viewerModePlugin) OnRoomJoin(string) {}

func (p *viewerModePlugin) OnAffiliationChange(string, string) {}

func (p *viewerModePlugin) OnHeadingButtonsRequested() []HeadingButton {
	return []HeadingButton{{ID: "viewer-join", Label: p.prompt}}
}

// SelectPlugins picks the strategies a resolved configuration calls for.
func SelectPlugins(cfg resolve.ConnectionConfig) []Plugin {
	var plugins []Plugin
	if cfg.TaskAppEnabled {
		plugins = append(plugins, &taskAppPlugin{restorable: cfg.TaskAppRestorable})
	}
	if cfg.ViewerMode {
		plugins = append(plugins, &viewerModePlugin{prompt: cfg.ViewerModePrompt})
	}
	return plugins
}
