package graph

import (
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/aretw0/inkwell/pkg/domain"
	"github.com/maruel/natural"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	// Visited lists visit keys ("knot" or "knot.stitch").
	Visited []string
	// Current is the visit key of the block being played, or "END".
	Current string
}

// OverlayFromState builds an overlay from a saved playthrough.
func OverlayFromState(st *domain.State) *GraphOverlay {
	if st == nil {
		return nil
	}
	o := &GraphOverlay{}
	for key, n := range st.Visits {
		if n > 0 {
			o.Visited = append(o.Visited, key)
		}
	}
	sort.Sort(natural.StringSlice(o.Visited))
	if st.Status == domain.StatusEnded {
		o.Current = domain.TargetEnd
	} else {
		o.Current = domain.VisitKey(st.Knot, st.Stitch)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of the story's knots and stitches.
// It applies semantic styling:
// - Start: ((Circle))
// - Offers choices: [/Parallelogram/]
// - END: (((Double circle)))
// - Default: [Rectangle]
// Diverts across knots are drawn dashed. Edges are labelled with the choice text
// or the condition that guards them. Overlay styles (Visited/Current) are applied
// when an overlay is given.
func GenerateMermaid(story *domain.Story, overlay *GraphOverlay) string {
	g := &generator{story: story, seen: make(map[string]bool)}
	return g.render(overlay)
}

type generator struct {
	story  *domain.Story
	sb     strings.Builder
	edges  []string
	seen   map[string]bool
	ids    map[string]bool
	hasEnd bool
}

func (g *generator) render(overlay *GraphOverlay) string {
	g.ids = make(map[string]bool)
	g.sb.WriteString("graph TD\n")
	start := g.start()

	knots := slices.Clone(g.story.Order)
	if root, ok := g.story.Knot(domain.RootKnot); ok && len(root.Root.Content) > 0 {
		knots = append([]string{domain.RootKnot}, knots...)
	}

	for _, name := range knots {
		k := g.story.Knots[name]
		if len(k.StitchOrder) == 0 {
			g.location(k.Root, start, "    ")
			continue
		}
		fmt.Fprintf(&g.sb, "    subgraph %s[\"%s\"]\n", subgraphID(name), escape(name))
		if len(k.Root.Content) > 0 {
			g.location(k.Root, start, "        ")
		}
		for _, s := range k.StitchOrder {
			g.location(k.Stitches[s], start, "        ")
		}
		g.sb.WriteString("    end\n")
	}

	if g.hasEnd {
		fmt.Fprintf(&g.sb, "    %s(((\"%s\")))\n", endID, domain.TargetEnd)
		g.ids[endID] = true
	}
	for _, e := range g.edges {
		g.sb.WriteString(e)
	}

	if overlay != nil {
		g.sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		g.sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		g.sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		styled := make(map[string]bool)
		for _, key := range overlay.Visited {
			id := keyID(key)
			// Visits of a knot without own content have no node of their own.
			if !g.ids[id] || styled[id] {
				continue
			}
			styled[id] = true
			fmt.Fprintf(&g.sb, "    class %s visited;\n", id)
		}
		if overlay.Current != "" {
			if id := keyID(overlay.Current); g.ids[id] {
				fmt.Fprintf(&g.sb, "    class %s current;\n", id)
			}
		}
	}

	return g.sb.String()
}

// start mirrors the runtime's default start location.
func (g *generator) start() string {
	if root, ok := g.story.Knot(domain.RootKnot); ok && len(root.Root.Content) > 0 {
		return nodeID(domain.RootKnot, "")
	}
	if len(g.story.Order) == 0 {
		return ""
	}
	k := g.story.Knots[g.story.Order[0]]
	return nodeID(k.Name, k.Entry())
}

func (g *generator) location(s *domain.Stitch, start, indent string) {
	id := nodeID(s.Knot, s.Name)
	g.ids[id] = true

	label := domain.VisitKey(s.Knot, s.Name)
	if s.Knot == domain.RootKnot {
		label = "(root)"
	}

	opener, closer := "[", "]"
	switch {
	case id == start:
		opener, closer = "((", "))"
	case offersChoices(s.Content):
		opener, closer = "[/", "/]"
	}
	fmt.Fprintf(&g.sb, "%s%s%s\"%s\"%s\n", indent, id, opener, escape(label), closer)

	g.walk(s, s.Content, "")
}

// walk collects the diverts of a block. label carries the text of the enclosing choice.
func (g *generator) walk(from *domain.Stitch, b domain.Block, label string) {
	for _, n := range b {
		switch v := n.(type) {
		case *domain.Choice:
			text := strings.TrimSpace(v.Selection.PlainText())
			if v.Fallback {
				text = "(fallback)"
			}
			if len(v.Conditions) > 0 {
				conds := make([]string, len(v.Conditions))
				for i, c := range v.Conditions {
					conds[i] = domain.FormatExpr(c)
				}
				text = strings.TrimSpace("[" + strings.Join(conds, " and ") + "] " + text)
			}
			g.walk(from, v.Block, text)
		case *domain.Gather:
			g.walk(from, v.Block, "")
		case *domain.Divert:
			edgeLabel := label
			if v.Condition != nil {
				edgeLabel = strings.TrimSpace(edgeLabel + " " + domain.FormatExpr(v.Condition))
			}
			g.edge(from, v, edgeLabel)
		}
	}
}

func (g *generator) edge(from *domain.Stitch, d *domain.Divert, label string) {
	fromID := nodeID(from.Knot, from.Name)

	var toID string
	isJump := false
	if d.Address.Terminal {
		toID = endID
		g.hasEnd = true
	} else {
		stitch := d.Address.Stitch
		if k, ok := g.story.Knot(d.Address.Knot); ok && stitch == "" {
			stitch = k.Entry()
		}
		toID = nodeID(d.Address.Knot, stitch)
		isJump = d.Address.Knot != from.Knot
	}

	arrow := "-->"
	if isJump {
		arrow = "-.->"
	}
	if label != "" {
		// Escape double quotes in label for Mermaid
		safe := escape(label)
		arrow = fmt.Sprintf("-- \"%s\" -->", safe)
		if isJump {
			arrow = fmt.Sprintf("-. \"%s\" .->", safe)
		}
	}

	line := fmt.Sprintf("    %s %s %s\n", fromID, arrow, toID)
	if g.seen[line] {
		return
	}
	g.seen[line] = true
	g.edges = append(g.edges, line)
}

func offersChoices(b domain.Block) bool {
	found := false
	domain.Walk(b, func(n domain.Node) {
		if _, ok := n.(*domain.Choice); ok {
			found = true
		}
	})
	return found
}

const endID = "END"

// nodeID prefixes every location so that knot names can never clash with Mermaid keywords.
func nodeID(knot, stitch string) string {
	if knot == domain.RootKnot {
		return "root"
	}
	id := "k_" + knot
	if stitch != "" {
		id += "__" + stitch
	}
	return id
}

func keyID(key string) string {
	if key == domain.TargetEnd {
		return endID
	}
	return nodeID(domain.SplitPath(key))
}

func subgraphID(knot string) string {
	return "s_" + knot
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// Locations lists the visit keys drawn by GenerateMermaid, naturally ordered.
func Locations(story *domain.Story) []string {
	set := make(map[string]bool)
	for name, k := range story.Knots {
		if len(k.Root.Content) > 0 || len(k.StitchOrder) == 0 {
			if name != domain.RootKnot || len(k.Root.Content) > 0 {
				set[domain.VisitKey(name, "")] = true
			}
		}
		for _, s := range k.StitchOrder {
			set[domain.VisitKey(name, s)] = true
		}
	}
	keys := slices.Collect(maps.Keys(set))
	sort.Sort(natural.StringSlice(keys))
	return keys
}
