package schema

// LayoutNodeKind discriminates layout document nodes.
type LayoutNodeKind string

const (
	// LayoutMenu is a named top-level menu container.
	LayoutMenu LayoutNodeKind = "menu"
	// LayoutPlaceholder is a named anchor point inside a menu.
	LayoutPlaceholder LayoutNodeKind = "placeholder"
	// LayoutSubmenu is a submenu bound to a registry action.
	LayoutSubmenu LayoutNodeKind = "submenu"
	// LayoutItem is a leaf item bound to a registry action.
	LayoutItem LayoutNodeKind = "item"
	// LayoutSeparator is a visual divider.
	LayoutSeparator LayoutNodeKind = "separator"
	// LayoutToolbar is a named toolbar container.
	LayoutToolbar LayoutNodeKind = "toolbar"
)

// LayoutNode is one node of the menu/toolbar layout tree. Menu, placeholder,
// and toolbar nodes carry an ID; submenu and item nodes carry an Action that
// must resolve in the accompanying ActionTable.
type LayoutNode struct {
	Kind   LayoutNodeKind
	ID     string
	Action ActionID
	Items  []LayoutNode
}

// LayoutDocument is the full menu and toolbar structure a host renders.
type LayoutDocument struct {
	Roots []LayoutNode
}

// Walk visits every node of the document depth-first.
func (d LayoutDocument) Walk(visit func(LayoutNode)) {
	var walk func(nodes []LayoutNode)
	walk = func(nodes []LayoutNode) {
		for _, n := range nodes {
			visit(n)
			walk(n.Items)
		}
	}
	walk(d.Roots)
}

// Well-known layout container ids, matching the host's menu and toolbar
// merge points.
const (
	// LayoutIDMainMenu is the host's root menu container.
	LayoutIDMainMenu = "main-menu"
	// LayoutIDCustomMenus is the host anchor where plugin menus merge.
	LayoutIDCustomMenus = "custom-menus"
	// LayoutIDMenuHolder is the anchor inside the plugin menu for prompt items.
	LayoutIDMenuHolder = "ai-menu-holder"
	// LayoutIDToolbarHeaderbar is the toolbar shown with a headerbar.
	LayoutIDToolbarHeaderbar = "main-toolbar-with-headerbar"
	// LayoutIDToolbarPlain is the toolbar shown without a headerbar.
	LayoutIDToolbarPlain = "main-toolbar-without-headerbar"
)
