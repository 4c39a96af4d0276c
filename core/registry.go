package core

import (
	"fmt"

	"pkt.systems/redpen/schema"
)

// BuildRegistry derives the action table and menu/toolbar layout from the
// prompt list and model state. It is a pure function of its arguments: no
// service state, no I/O, no clock. Identical inputs yield deeply equal
// outputs, so callers may rebuild at any time and swap the result wholesale.
//
// An empty prompt list returns schema.ErrEmptyConfiguration; nothing else
// fails. Malformed prompts are repaired into well-formed entries, never
// dropped.
func BuildRegistry(cfg schema.ServiceConfig, prompts schema.PromptList, models schema.ModelState) (schema.ActionTable, schema.LayoutDocument, error) {
	if len(prompts) == 0 {
		return nil, schema.LayoutDocument{}, schema.ErrEmptyConfiguration
	}

	table := make(schema.ActionTable, 0, len(prompts)+3+len(models.Available))
	seen := map[schema.ActionID]bool{
		schema.ActionIDMenu:      true,
		schema.ActionIDDropdown:  true,
		schema.ActionIDModelMenu: true,
	}

	for i, p := range prompts {
		id := uniqueActionID(seen, promptActionID(cfg, p, i))
		label := p.Name
		if label == "" {
			label = "(no label)"
		}
		table = append(table, schema.ActionDescriptor{
			ID:       id,
			Kind:     schema.ActionPrompt,
			Prompt:   p.ID,
			Label:    label,
			Tooltip:  p.Text,
			IconHint: cfg.PromptIcon,
		})
	}

	table = append(table,
		schema.ActionDescriptor{
			ID:      schema.ActionIDMenu,
			Kind:    schema.ActionMenu,
			Label:   cfg.MenuLabel,
			Tooltip: cfg.MenuTooltip,
		},
		schema.ActionDescriptor{
			ID:       schema.ActionIDDropdown,
			Kind:     schema.ActionDropdown,
			Label:    cfg.DropdownLabel,
			Tooltip:  cfg.DropdownTooltip,
			IconHint: cfg.PromptIcon,
		},
		schema.ActionDescriptor{
			ID:      schema.ActionIDModelMenu,
			Kind:    schema.ActionModelMenu,
			Label:   fmt.Sprintf("Model (%s)", models.Selected),
			Tooltip: cfg.ModelMenuTooltip,
		},
	)

	for _, m := range models.Available {
		id := uniqueActionID(seen, schema.ActionID(cfg.ModelActionPrefix+string(m)))
		label := string(m)
		if m == models.Selected {
			label = "✓ " + label
		}
		table = append(table, schema.ActionDescriptor{
			ID:      id,
			Kind:    schema.ActionModel,
			Model:   m,
			Label:   label,
			Tooltip: fmt.Sprintf("Use %s model", m),
		})
	}

	return table, buildLayout(table), nil
}

func promptActionID(cfg schema.ServiceConfig, p schema.Prompt, index int) schema.ActionID {
	slug := string(p.ID)
	if slug == "" {
		slug = schema.SlugifyPromptName(p.Name)
	}
	if slug == "" {
		slug = fmt.Sprintf("missing-%d", index)
	}
	return schema.ActionID(cfg.ActionPrefix + slug)
}

func uniqueActionID(seen map[schema.ActionID]bool, id schema.ActionID) schema.ActionID {
	if !seen[id] {
		seen[id] = true
		return id
	}
	for n := 2; ; n++ {
		candidate := schema.ActionID(fmt.Sprintf("%s-%d", id, n))
		if !seen[candidate] {
			seen[candidate] = true
			return candidate
		}
	}
}

// buildLayout assembles the menu and toolbar tree over a built table. Every
// action referenced here exists in the table, and every prompt, model,
// dropdown, and submenu entry of the table is reachable from a root.
func buildLayout(table schema.ActionTable) schema.LayoutDocument {
	var promptItems, modelItems []schema.LayoutNode
	for _, d := range table {
		switch d.Kind {
		case schema.ActionPrompt:
			promptItems = append(promptItems, schema.LayoutNode{Kind: schema.LayoutItem, Action: d.ID})
		case schema.ActionModel:
			modelItems = append(modelItems, schema.LayoutNode{Kind: schema.LayoutItem, Action: d.ID})
		}
	}

	menuItems := make([]schema.LayoutNode, 0, len(promptItems)+2)
	menuItems = append(menuItems, promptItems...)
	menuItems = append(menuItems,
		schema.LayoutNode{Kind: schema.LayoutSeparator},
		schema.LayoutNode{Kind: schema.LayoutSubmenu, Action: schema.ActionIDModelMenu, Items: modelItems},
	)

	main := schema.LayoutNode{
		Kind: schema.LayoutMenu,
		ID:   schema.LayoutIDMainMenu,
		Items: []schema.LayoutNode{{
			Kind: schema.LayoutPlaceholder,
			ID:   schema.LayoutIDCustomMenus,
			Items: []schema.LayoutNode{{
				Kind:   schema.LayoutSubmenu,
				Action: schema.ActionIDMenu,
				Items: []schema.LayoutNode{{
					Kind:  schema.LayoutPlaceholder,
					ID:    schema.LayoutIDMenuHolder,
					Items: menuItems,
				}},
			}},
		}},
	}

	toolbar := func(id string) schema.LayoutNode {
		return schema.LayoutNode{
			Kind:  schema.LayoutToolbar,
			ID:    id,
			Items: []schema.LayoutNode{{Kind: schema.LayoutItem, Action: schema.ActionIDDropdown}},
		}
	}

	return schema.LayoutDocument{Roots: []schema.LayoutNode{
		main,
		toolbar(schema.LayoutIDToolbarHeaderbar),
		toolbar(schema.LayoutIDToolbarPlain),
	}}
}

// promptChoices lists the prompt entries of a snapshot for the transient
// dropdown menu, in table order.
func promptChoices(snap schema.RegistrySnapshot) []schema.PromptChoice {
	choices := make([]schema.PromptChoice, 0, len(snap.Prompts))
	for _, d := range snap.Table {
		if d.Kind == schema.ActionPrompt {
			choices = append(choices, schema.PromptChoice{Action: d.ID, Label: d.Label})
		}
	}
	return choices
}
